package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/dto"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────
// WithTx works on a copy of the committed state and swaps it in only when fn
// succeeds, so a failing transaction leaves no trace. One mutex serializes
// every transaction, which stands in for the session row lock.

type memState struct {
	sesiones    map[uuid.UUID]model.CashSession
	movimientos []model.CashMovement
	pendientes  map[uuid.UUID]int64
}

func (s *memState) clone() *memState {
	out := &memState{
		sesiones:    make(map[uuid.UUID]model.CashSession, len(s.sesiones)),
		movimientos: append([]model.CashMovement(nil), s.movimientos...),
		pendientes:  make(map[uuid.UUID]int64, len(s.pendientes)),
	}
	for k, v := range s.sesiones {
		out.sesiones[k] = v
	}
	for k, v := range s.pendientes {
		out.pendientes[k] = v
	}
	return out
}

type memCajaRepo struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool

	// failCommit, when set, is returned by the next WithTx instead of committing.
	failCommit error
	txCount    int
}

var _ repository.CajaRepository = (*memCajaRepo)(nil)

func newMemCajaRepo() *memCajaRepo {
	return &memCajaRepo{
		mu: &sync.Mutex{},
		state: &memState{
			sesiones:   make(map[uuid.UUID]model.CashSession),
			pendientes: make(map[uuid.UUID]int64),
		},
	}
}

func (r *memCajaRepo) view(fn func(st *memState) error) error {
	if r.inTx {
		return fn(r.state)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.state)
}

func (r *memCajaRepo) WithTx(_ context.Context, fn func(tx repository.CajaRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCount++

	work := r.state.clone()
	if err := fn(&memCajaRepo{mu: r.mu, state: work, inTx: true}); err != nil {
		return err
	}
	if r.failCommit != nil {
		err := r.failCommit
		r.failCommit = nil
		return err
	}
	*r.state = *work
	return nil
}

func (r *memCajaRepo) CreateSesion(_ context.Context, s *model.CashSession) error {
	return r.view(func(st *memState) error {
		// stands in for uq_cash_sessions_company_register_active
		for _, other := range st.sesiones {
			if other.CompanyID == s.CompanyID && other.RegisterID == s.RegisterID && other.State.Active() {
				return apperrors.ErrRegisterAlreadyOpen.With("register_id", s.RegisterID)
			}
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		st.sesiones[s.ID] = *s
		return nil
	})
}

func (r *memCajaRepo) find(id uuid.UUID) (*model.CashSession, error) {
	var out *model.CashSession
	err := r.view(func(st *memState) error {
		s, ok := st.sesiones[id]
		if !ok {
			return apperrors.ErrNotFound.With("session_id", id.String())
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *memCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	return r.find(id)
}

func (r *memCajaRepo) LockSesion(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	return r.find(id)
}

func (r *memCajaRepo) FindSesionActiva(_ context.Context, companyID uuid.UUID, registerID int) (*model.CashSession, error) {
	var out *model.CashSession
	err := r.view(func(st *memState) error {
		for _, s := range st.sesiones {
			if s.CompanyID == companyID && s.RegisterID == registerID && s.State.Active() {
				s := s
				out = &s
			}
		}
		return nil
	})
	return out, err
}

func (r *memCajaRepo) ListSesiones(_ context.Context, f repository.SesionFilter) ([]model.CashSession, int64, error) {
	var all []model.CashSession
	_ = r.view(func(st *memState) error {
		for _, s := range st.sesiones {
			if f.RegisterID > 0 && s.RegisterID != f.RegisterID {
				continue
			}
			all = append(all, s)
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].OpeningTimestamp.After(all[j].OpeningTimestamp) })
	return all, int64(len(all)), nil
}

func (r *memCajaRepo) MarkCounting(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.view(func(st *memState) error {
		s, ok := st.sesiones[id]
		if !ok || s.State != model.SessionOpen {
			return apperrors.ErrSessionNotOpen
		}
		s.State = model.SessionCounting
		s.CountingStartedAt = &at
		st.sesiones[id] = s
		return nil
	})
}

func (r *memCajaRepo) FinalizeSesion(_ context.Context, s *model.CashSession) error {
	return r.view(func(st *memState) error {
		cur, ok := st.sesiones[s.ID]
		if !ok || cur.State != model.SessionCounting {
			return apperrors.ErrSessionNotInCounting
		}
		closed := *s
		closed.State = model.SessionClosed
		st.sesiones[s.ID] = closed
		return nil
	})
}

func (r *memCajaRepo) CreateMovimiento(_ context.Context, m *model.CashMovement) error {
	return r.view(func(st *memState) error {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		st.movimientos = append(st.movimientos, *m)
		return nil
	})
}

func (r *memCajaRepo) ListMovimientos(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var out []model.CashMovement
	_ = r.view(func(st *memState) error {
		for _, m := range st.movimientos {
			if m.SessionID == sessionID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, nil
}

func (r *memCajaRepo) CountPendingSales(_ context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	_ = r.view(func(st *memState) error {
		n = st.pendientes[sessionID]
		return nil
	})
	return n, nil
}

func (r *memCajaRepo) PurgePendingSales(_ context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	_ = r.view(func(st *memState) error {
		n = st.pendientes[sessionID]
		delete(st.pendientes, sessionID)
		return nil
	})
	return n, nil
}

// addPending parks n draft sales on a session.
func (r *memCajaRepo) addPending(sessionID uuid.UUID, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.pendientes[sessionID] += n
}

func (r *memCajaRepo) snapshot() *memState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// ── Payment method registry stub ─────────────────────────────────────────────

type stubMetodos struct {
	byCompany map[uuid.UUID][]model.PaymentMethod
}

func (s *stubMetodos) ListPaymentMethods(_ context.Context, companyID uuid.UUID) ([]model.PaymentMethod, error) {
	return s.byCompany[companyID], nil
}

func (s *stubMetodos) CreatePaymentMethod(_ context.Context, m *model.PaymentMethod) error {
	s.byCompany[m.CompanyID] = append(s.byCompany[m.CompanyID], *m)
	return nil
}

func (s *stubMetodos) Invalidate(context.Context, uuid.UUID) {}

// ── Post-close collaborators ─────────────────────────────────────────────────

type fakeInvalidator struct {
	mu     sync.Mutex
	users  []uuid.UUID
	err    error
	onCall func()
}

func (f *fakeInvalidator) InvalidateUserSessions(_ context.Context, userID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	if f.onCall != nil {
		f.onCall()
	}
	return f.err
}

type fakeAuditor struct {
	mu      sync.Mutex
	events  []dto.CierreCajaEvent
	ctxErrs []error
	err     error
}

func (f *fakeAuditor) EnqueueAuditoriaCaja(ctx context.Context, evt dto.CierreCajaEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

// ── Supervisor directory stub ────────────────────────────────────────────────

type stubDirectory struct {
	codes map[string]model.Supervisor
	delay time.Duration
	err   error
}

func (d *stubDirectory) LookupSupervisorCode(_ context.Context, code string, _ uuid.UUID) (*model.Supervisor, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	if sup, ok := d.codes[code]; ok {
		return &sup, nil
	}
	return nil, nil
}
