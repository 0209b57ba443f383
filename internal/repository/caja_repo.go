package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SesionFilter narrows ListSesiones. Zero values mean "no filter".
type SesionFilter struct {
	CompanyID  uuid.UUID
	RegisterID int
	State      model.SessionState
	Page       int
	Limit      int
}

// CajaRepository is the transactional store behind the cash module.
// Movements are append-only: there is deliberately no update or delete for them.
type CajaRepository interface {
	// WithTx runs fn against a repository bound to one transaction. fn may be
	// replayed after a transient storage failure, so it must not keep state
	// from a previous attempt.
	WithTx(ctx context.Context, fn func(tx CajaRepository) error) error

	CreateSesion(ctx context.Context, s *model.CashSession) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// LockSesion reads the session with SELECT ... FOR UPDATE. Only meaningful inside WithTx.
	LockSesion(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// FindSesionActiva returns the OPEN or COUNTING session of a company's register, or nil.
	FindSesionActiva(ctx context.Context, companyID uuid.UUID, registerID int) (*model.CashSession, error)
	ListSesiones(ctx context.Context, f SesionFilter) ([]model.CashSession, int64, error)
	// MarkCounting moves an OPEN session to COUNTING.
	MarkCounting(ctx context.Context, id uuid.UUID, at time.Time) error
	// FinalizeSesion writes the closing snapshot, conditional on state COUNTING.
	FinalizeSesion(ctx context.Context, s *model.CashSession) error

	CreateMovimiento(ctx context.Context, m *model.CashMovement) error
	ListMovimientos(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)

	CountPendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error)
	PurgePendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type cajaRepo struct {
	db            *gorm.DB
	retryAttempts int
}

func NewCajaRepository(db *gorm.DB, retryAttempts int) CajaRepository {
	if retryAttempts < 1 {
		retryAttempts = DefaultRetryAttempts
	}
	return &cajaRepo{db: db, retryAttempts: retryAttempts}
}

func (r *cajaRepo) WithTx(ctx context.Context, fn func(tx CajaRepository) error) error {
	return runTx(ctx, r.db, r.retryAttempts, func(tx *gorm.DB) error {
		return fn(&cajaRepo{db: tx, retryAttempts: 1})
	})
}

// ── Sesiones ──────────────────────────────────────────────────────────────────

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.CashSession) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrRegisterAlreadyOpen.With("register_id", s.RegisterID).Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("create cash session: %w", err)
	}
	return nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return sesionOrNotFound(&s, id, err)
}

func (r *cajaRepo) LockSesion(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	return sesionOrNotFound(&s, id, err)
}

func sesionOrNotFound(s *model.CashSession, id uuid.UUID, err error) (*model.CashSession, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound.Msg("cash session not found").With("session_id", id.String()).Wrap(err)
	}
	if err != nil {
		return nil, fmt.Errorf("find cash session %s: %w", id, err)
	}
	return s, nil
}

func (r *cajaRepo) FindSesionActiva(ctx context.Context, companyID uuid.UUID, registerID int) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND register_id = ? AND state <> ?", companyID, registerID, model.SessionClosed).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active session for register %d of company %s: %w", registerID, companyID, err)
	}
	return &s, nil
}

func (r *cajaRepo) ListSesiones(ctx context.Context, f SesionFilter) ([]model.CashSession, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.CashSession{})
		if f.CompanyID != uuid.Nil {
			q = q.Where("company_id = ?", f.CompanyID)
		}
		if f.RegisterID > 0 {
			q = q.Where("register_id = ?", f.RegisterID)
		}
		if f.State != "" {
			q = q.Where("state = ?", f.State)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count cash sessions: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var sesiones []model.CashSession
	err := scoped().Order("opening_timestamp DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sesiones).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list cash sessions: %w", err)
	}
	return sesiones, total, nil
}

func (r *cajaRepo) MarkCounting(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.CashSession{}).
		Where("id = ? AND state = ?", id, model.SessionOpen).
		Updates(map[string]any{
			"state":               model.SessionCounting,
			"counting_started_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark session %s counting: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.ErrSessionNotOpen.With("session_id", id.String())
	}
	return nil
}

func (r *cajaRepo) FinalizeSesion(ctx context.Context, s *model.CashSession) error {
	res := r.db.WithContext(ctx).Model(&model.CashSession{}).
		Where("id = ? AND state = ?", s.ID, model.SessionCounting).
		Updates(map[string]any{
			"state":             model.SessionClosed,
			"closing_timestamp": s.ClosingTimestamp,
			"closing_user_id":   s.ClosingUserID,
			"expected_cash":     s.ExpectedCash,
			"counted_cash":      s.CountedCash,
			"variance":          s.Variance,
			"classification":    s.Classification,
			"justification":     s.Justification,
			"authorized":        s.Authorized,
			"supervisor_id":     s.SupervisorID,
		})
	if res.Error != nil {
		return fmt.Errorf("finalize session %s: %w", s.ID, res.Error)
	}
	if res.RowsAffected != 1 {
		return apperrors.ErrSessionNotInCounting.With("session_id", s.ID.String())
	}
	return nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.CashMovement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("append %s movement: %w", m.Type, err)
	}
	return nil
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&movs).Error
	if err != nil {
		return nil, fmt.Errorf("list movements of %s: %w", sessionID, err)
	}
	return movs, nil
}

// ── Ventas pendientes ─────────────────────────────────────────────────────────

func (r *cajaRepo) CountPendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PendingSale{}).Where("session_id = ?", sessionID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count pending sales of %s: %w", sessionID, err)
	}
	return n, nil
}

// PurgePendingSales deletes drafts and their line items. Callers run it
// inside WithTx so both deletes commit together.
func (r *cajaRepo) PurgePendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	drafts := db.Model(&model.PendingSale{}).Select("id").Where("session_id = ?", sessionID)

	if err := db.Where("pending_sale_id IN (?)", drafts).Delete(&model.PendingSaleItem{}).Error; err != nil {
		return 0, fmt.Errorf("purge pending sale items of %s: %w", sessionID, err)
	}
	res := db.Where("session_id = ?", sessionID).Delete(&model.PendingSale{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge pending sales of %s: %w", sessionID, res.Error)
	}
	return res.RowsAffected, nil
}
