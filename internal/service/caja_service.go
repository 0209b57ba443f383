package service

import (
	"context"
	"strings"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/dto"
	"blendcaja/internal/infra"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("blendcaja/internal/service")

// SessionInvalidator ends the operator's terminal session after a close.
type SessionInvalidator interface {
	InvalidateUserSessions(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// AuditPublisher receives one event per committed close.
type AuditPublisher interface {
	EnqueueAuditoriaCaja(ctx context.Context, evt dto.CierreCajaEvent) error
}

// ── Inputs / outputs ──────────────────────────────────────────────────────────

type OpenSessionInput struct {
	CompanyID    uuid.UUID
	RegisterID   int
	UserID       uuid.UUID
	OpeningFloat decimal.Decimal
}

type MovementInput struct {
	SessionID       uuid.UUID
	Type            model.MovementType
	PaymentMethodID uuid.UUID
	Amount          decimal.Decimal
	ChangeGiven     decimal.Decimal
	UserID          uuid.UUID
	SaleID          *uuid.UUID
	Description     string
}

// TenderLine is one payment of a checkout.
type TenderLine struct {
	PaymentMethodID uuid.UUID
	Amount          decimal.Decimal
	ChangeGiven     decimal.Decimal
}

type SaleInput struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	SaleID    uuid.UUID
	Tenders   []TenderLine
}

type CloseSessionInput struct {
	SessionID     uuid.UUID
	UserID        uuid.UUID
	CountedCash   decimal.Decimal
	Justification string
	Authorization *SupervisorAuthorization
}

type CloseResult struct {
	Session *model.CashSession
	Report  VarianceReport
	// Replayed is true when the session had already been closed by an
	// identical request and the stored outcome was returned unchanged.
	Replayed bool
}

type MethodTotal struct {
	Method model.PaymentMethod
	Total  decimal.Decimal
}

type SessionSummary struct {
	Session      *model.CashSession
	OpeningFloat decimal.Decimal
	ExpectedCash decimal.Decimal
	Totals       []MethodTotal
	Movements    []model.CashMovement
	PendingSales int64
}

type CajaService interface {
	OpenSession(ctx context.Context, in OpenSessionInput) (*model.CashSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error)
	GetActiveSession(ctx context.Context, companyID uuid.UUID, registerID int) (*model.CashSession, error)
	ListSessions(ctx context.Context, f repository.SesionFilter) ([]model.CashSession, int64, error)

	AppendMovement(ctx context.Context, in MovementInput) (*model.CashMovement, error)
	RecordSale(ctx context.Context, in SaleInput) ([]model.CashMovement, error)
	ComputeExpectedCash(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	TotalsByPaymentMethod(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	BeginCounting(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error)
	ReconcilePreview(ctx context.Context, sessionID uuid.UUID, counted decimal.Decimal) (*VarianceReport, error)
	CloseSession(ctx context.Context, in CloseSessionInput) (*CloseResult, error)

	GetSessionSummary(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error)
}

// CajaDeps wires a CajaService. Invalidator, Auditor and Metrics are optional.
type CajaDeps struct {
	Repo        repository.CajaRepository
	MetodosPago MetodoPagoService
	Policy      VariancePolicy
	Invalidator SessionInvalidator
	Auditor     AuditPublisher
	Metrics     *infra.Metrics
	Now         func() time.Time
}

type cajaService struct {
	repo        repository.CajaRepository
	metodos     MetodoPagoService
	policy      VariancePolicy
	invalidator SessionInvalidator
	auditor     AuditPublisher
	metrics     *infra.Metrics
	now         func() time.Time
}

func NewCajaService(deps CajaDeps) CajaService {
	s := &cajaService{
		repo:        deps.Repo,
		metodos:     deps.MetodosPago,
		policy:      deps.Policy,
		invalidator: deps.Invalidator,
		auditor:     deps.Auditor,
		metrics:     deps.Metrics,
		now:         deps.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ── OpenSession ───────────────────────────────────────────────────────────────
// Exclusivity per register is enforced by uq_cash_sessions_company_register_active,
// not by a read-then-insert check.

func (s *cajaService) OpenSession(ctx context.Context, in OpenSessionInput) (_ *model.CashSession, err error) {
	ctx, span := tracer.Start(ctx, "caja.OpenSession", trace.WithAttributes(attribute.Int("register_id", in.RegisterID)))
	defer func() { endSpan(span, err) }()

	if in.RegisterID < 1 {
		return nil, apperrors.ErrValidation.Msg("register_id must be positive")
	}
	if in.OpeningFloat.IsNegative() {
		return nil, apperrors.ErrInvalidAmount.Msg("opening float cannot be negative").With("opening_float", in.OpeningFloat)
	}
	if err := requireCents("opening_float", in.OpeningFloat); err != nil {
		return nil, err
	}

	metodos, err := s.metodos.ListPaymentMethods(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	efectivo, ok := cashMetodo(metodos)
	if !ok {
		return nil, apperrors.ErrUnknownPaymentMethod.Msg("company has no active cash payment method")
	}

	var sesion *model.CashSession
	err = s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		now := s.now()
		sesion = &model.CashSession{
			ID:               uuid.New(),
			CompanyID:        in.CompanyID,
			RegisterID:       in.RegisterID,
			OpeningUserID:    in.UserID,
			OpeningTimestamp: now,
			OpeningFloat:     in.OpeningFloat,
			State:            model.SessionOpen,
		}
		if err := tx.CreateSesion(ctx, sesion); err != nil {
			return err
		}
		return tx.CreateMovimiento(ctx, &model.CashMovement{
			ID:              uuid.New(),
			SessionID:       sesion.ID,
			Type:            model.MovementOpeningFloat,
			PaymentMethodID: efectivo.ID,
			Amount:          in.OpeningFloat,
			UserID:          in.UserID,
			Description:     "Fondo inicial",
			CreatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SessionOpened()
	log.Info().
		Str("session_id", sesion.ID.String()).
		Int("register_id", sesion.RegisterID).
		Str("opening_float", sesion.OpeningFloat.String()).
		Msg("caja: session opened")
	return sesion, nil
}

func (s *cajaService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error) {
	return s.repo.FindSesionByID(ctx, sessionID)
}

func (s *cajaService) GetActiveSession(ctx context.Context, companyID uuid.UUID, registerID int) (*model.CashSession, error) {
	sesion, err := s.repo.FindSesionActiva(ctx, companyID, registerID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, apperrors.ErrNotFound.Msg("register has no active session").With("register_id", registerID)
	}
	return sesion, nil
}

func (s *cajaService) ListSessions(ctx context.Context, f repository.SesionFilter) ([]model.CashSession, int64, error) {
	return s.repo.ListSesiones(ctx, f)
}

// ── Movement ledger ───────────────────────────────────────────────────────────
// Movements are immutable: no Update/Delete. Input is validated before the
// session row is locked; the state guard runs under the lock.

func (s *cajaService) AppendMovement(ctx context.Context, in MovementInput) (_ *model.CashMovement, err error) {
	ctx, span := tracer.Start(ctx, "caja.AppendMovement", trace.WithAttributes(attribute.String("session_id", in.SessionID.String())))
	defer func() { endSpan(span, err) }()

	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidMovementType.With("type", string(in.Type))
	}
	if in.Type == model.MovementOpeningFloat {
		return nil, apperrors.ErrInvalidMovementType.Msg("opening float is only recorded when the session opens").With("type", string(in.Type))
	}

	sesion, err := s.repo.FindSesionByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	metodos, err := s.metodos.ListPaymentMethods(ctx, sesion.CompanyID)
	if err != nil {
		return nil, err
	}
	tender := TenderLine{PaymentMethodID: in.PaymentMethodID, Amount: in.Amount, ChangeGiven: in.ChangeGiven}
	if err := validateTender(in.Type, tender, metodos); err != nil {
		return nil, err
	}

	var mov *model.CashMovement
	err = s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		locked, err := tx.LockSesion(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if locked.State != model.SessionOpen {
			return apperrors.ErrSessionNotWritable.With("state", string(locked.State))
		}
		mov = &model.CashMovement{
			ID:              uuid.New(),
			SessionID:       in.SessionID,
			Type:            in.Type,
			PaymentMethodID: in.PaymentMethodID,
			Amount:          in.Amount,
			ChangeGiven:     in.ChangeGiven,
			Description:     strings.TrimSpace(in.Description),
			UserID:          in.UserID,
			SaleID:          in.SaleID,
			CreatedAt:       s.now(),
		}
		return tx.CreateMovimiento(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// RecordSale appends one SALE_PROCEEDS per tender line, all or none.
func (s *cajaService) RecordSale(ctx context.Context, in SaleInput) (_ []model.CashMovement, err error) {
	ctx, span := tracer.Start(ctx, "caja.RecordSale", trace.WithAttributes(attribute.String("session_id", in.SessionID.String())))
	defer func() { endSpan(span, err) }()

	if len(in.Tenders) == 0 {
		return nil, apperrors.ErrValidation.Msg("sale needs at least one tender line")
	}

	sesion, err := s.repo.FindSesionByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	metodos, err := s.metodos.ListPaymentMethods(ctx, sesion.CompanyID)
	if err != nil {
		return nil, err
	}
	for _, t := range in.Tenders {
		if err := validateTender(model.MovementSaleProceeds, t, metodos); err != nil {
			return nil, err
		}
	}

	var movs []model.CashMovement
	err = s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		movs = movs[:0]
		locked, err := tx.LockSesion(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if locked.State != model.SessionOpen {
			return apperrors.ErrSessionNotWritable.With("state", string(locked.State))
		}
		now := s.now()
		saleID := in.SaleID
		for _, t := range in.Tenders {
			mov := model.CashMovement{
				ID:              uuid.New(),
				SessionID:       in.SessionID,
				Type:            model.MovementSaleProceeds,
				PaymentMethodID: t.PaymentMethodID,
				Amount:          t.Amount,
				ChangeGiven:     t.ChangeGiven,
				UserID:          in.UserID,
				SaleID:          &saleID,
				CreatedAt:       now,
			}
			if err := tx.CreateMovimiento(ctx, &mov); err != nil {
				return err
			}
			movs = append(movs, mov)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

// requireCents rejects amounts that do not fit decimal(12,2). Trailing zeros
// such as 1.500 are accepted.
func requireCents(field string, v decimal.Decimal) error {
	if !v.Equal(v.Round(2)) {
		return apperrors.ErrInvalidAmount.Msg(field+" has more than two decimal places").With(field, v)
	}
	return nil
}

func validateTender(typ model.MovementType, t TenderLine, metodos []model.PaymentMethod) error {
	if !t.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount.Msg("amount must be greater than zero").With("amount", t.Amount)
	}
	if t.ChangeGiven.IsNegative() {
		return apperrors.ErrInvalidAmount.Msg("change given cannot be negative").With("change_given", t.ChangeGiven)
	}
	if err := requireCents("amount", t.Amount); err != nil {
		return err
	}
	if err := requireCents("change_given", t.ChangeGiven); err != nil {
		return err
	}
	metodo, ok := findMetodo(metodos, t.PaymentMethodID)
	if !ok || !metodo.Active {
		return apperrors.ErrUnknownPaymentMethod.With("payment_method_id", t.PaymentMethodID.String())
	}
	if t.ChangeGiven.IsPositive() {
		if typ != model.MovementSaleProceeds || !metodo.IsCash {
			return apperrors.ErrValidation.Msg("change is only given on cash sale proceeds").With("payment_method_id", metodo.ID.String())
		}
		if t.ChangeGiven.GreaterThan(t.Amount) {
			return apperrors.ErrInvalidAmount.Msg("change given exceeds amount tendered").With("change_given", t.ChangeGiven)
		}
	}
	return nil
}

func (s *cajaService) ComputeExpectedCash(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	_, movs, metodos, err := s.loadLedger(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return ExpectedCash(movs, cashMethodsOf(metodos)), nil
}

func (s *cajaService) TotalsByPaymentMethod(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	_, movs, metodos, err := s.loadLedger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return TotalsByPaymentMethod(movs, cashMethodsOf(metodos)), nil
}

// loadLedger reads a session and its movements without locks.
func (s *cajaService) loadLedger(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, []model.CashMovement, []model.PaymentMethod, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	metodos, err := s.metodos.ListPaymentMethods(ctx, sesion.CompanyID)
	if err != nil {
		return nil, nil, nil, err
	}
	return sesion, movs, metodos, nil
}

// ── BeginCounting ─────────────────────────────────────────────────────────────
// Pending-sale count and transition share one transaction under the row lock,
// so no draft can slip in between the check and the state change.

func (s *cajaService) BeginCounting(ctx context.Context, sessionID uuid.UUID) (_ *model.CashSession, err error) {
	ctx, span := tracer.Start(ctx, "caja.BeginCounting", trace.WithAttributes(attribute.String("session_id", sessionID.String())))
	defer func() { endSpan(span, err) }()

	var sesion *model.CashSession
	err = s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		locked, err := tx.LockSesion(ctx, sessionID)
		if err != nil {
			return err
		}
		if !locked.State.CanTransitionTo(model.SessionCounting) {
			return apperrors.ErrSessionNotOpen.With("state", string(locked.State))
		}
		pending, err := tx.CountPendingSales(ctx, sessionID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return apperrors.ErrPendingSalesExist.With("count", pending)
		}
		now := s.now()
		if err := tx.MarkCounting(ctx, sessionID, now); err != nil {
			return err
		}
		locked.State = model.SessionCounting
		locked.CountingStartedAt = &now
		sesion = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("session_id", sessionID.String()).Int("register_id", sesion.RegisterID).Msg("caja: counting started")
	return sesion, nil
}

// ── ReconcilePreview ──────────────────────────────────────────────────────────
// Blind count preview: no locks, no writes. CloseSession recomputes everything.

func (s *cajaService) ReconcilePreview(ctx context.Context, sessionID uuid.UUID, counted decimal.Decimal) (*VarianceReport, error) {
	if counted.IsNegative() {
		return nil, apperrors.ErrInvalidAmount.Msg("counted cash cannot be negative").With("counted_cash", counted)
	}
	if err := requireCents("counted_cash", counted); err != nil {
		return nil, err
	}
	_, movs, metodos, err := s.loadLedger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report := Reconcile(ExpectedCash(movs, cashMethodsOf(metodos)), counted, s.policy)
	return &report, nil
}

// ── CloseSession ──────────────────────────────────────────────────────────────
// Inside one transaction holding the session lock:
//   1. state must be COUNTING (or an identical earlier close is replayed)
//   2. expected cash is recomputed from the ledger and reconciled
//   3. REQUIRES_REVIEW needs a valid supervisor authorization
//   4. any non-zero variance needs a justification
//   5. conditional UPDATE ... WHERE state = 'COUNTING'
// Post-commit effects (token revocation, audit event) never undo the close.

func (s *cajaService) CloseSession(ctx context.Context, in CloseSessionInput) (_ *CloseResult, err error) {
	ctx, span := tracer.Start(ctx, "caja.CloseSession", trace.WithAttributes(attribute.String("session_id", in.SessionID.String())))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			if kind, ok := apperrors.KindOf(err); ok {
				s.metrics.CloseRejected(string(kind))
			} else {
				s.metrics.CloseRejected("storage")
			}
		}
	}()

	if in.CountedCash.IsNegative() {
		return nil, apperrors.ErrInvalidAmount.Msg("counted cash cannot be negative").With("counted_cash", in.CountedCash)
	}
	if err := requireCents("counted_cash", in.CountedCash); err != nil {
		return nil, err
	}
	justification := strings.TrimSpace(in.Justification)

	current, err := s.repo.FindSesionByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	metodos, err := s.metodos.ListPaymentMethods(ctx, current.CompanyID)
	if err != nil {
		return nil, err
	}
	cash := cashMethodsOf(metodos)

	var result *CloseResult
	err = s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		result = nil
		sesion, err := tx.LockSesion(ctx, in.SessionID)
		if err != nil {
			return err
		}
		if sesion.State == model.SessionClosed {
			if replay, ok := s.replayedClose(sesion, in, justification); ok {
				result = replay
				return nil
			}
		}
		if sesion.State != model.SessionCounting {
			return apperrors.ErrSessionNotInCounting.With("state", string(sesion.State))
		}

		movs, err := tx.ListMovimientos(ctx, sesion.ID)
		if err != nil {
			return err
		}
		report := Reconcile(ExpectedCash(movs, cash), in.CountedCash, s.policy)

		validAuth := in.Authorization != nil && in.Authorization.Valid && in.Authorization.SupervisorID != uuid.Nil
		if report.RequiresAuthorization && !validAuth {
			log.Warn().
				Str("session_id", sesion.ID.String()).
				Str("variance", report.Variance.String()).
				Msg("caja: close blocked, variance requires supervisor authorization")
			return apperrors.ErrVarianceUnauthorized.
				With("classification", string(report.Classification)).
				With("variance", report.Variance).
				With("pct_threshold", s.policy.PctThreshold).
				With("abs_threshold", s.policy.AbsThreshold)
		}
		if !report.Variance.IsZero() && !s.policy.justificationOK(justification) {
			return apperrors.ErrMissingJustification.With("min_length", s.policy.MinJustificationLength)
		}

		now := s.now()
		closedBy := in.UserID
		expected, counted, variance := report.ExpectedCash, report.CountedCash, report.Variance
		classification := report.Classification
		sesion.ClosingTimestamp = &now
		sesion.ClosingUserID = &closedBy
		sesion.ExpectedCash = &expected
		sesion.CountedCash = &counted
		sesion.Variance = &variance
		sesion.Classification = &classification
		sesion.Justification = nil
		if !variance.IsZero() {
			sesion.Justification = &justification
		}
		sesion.Authorized = report.RequiresAuthorization && validAuth
		sesion.SupervisorID = nil
		if validAuth {
			supervisorID := in.Authorization.SupervisorID
			sesion.SupervisorID = &supervisorID
		}

		if err := tx.FinalizeSesion(ctx, sesion); err != nil {
			return err
		}
		sesion.State = model.SessionClosed
		result = &CloseResult{Session: sesion, Report: report}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		log.Info().Str("session_id", in.SessionID.String()).Msg("caja: close replayed, returning stored result")
		return result, nil
	}

	s.metrics.SessionClosed(string(result.Report.Classification), result.Report.Variance)
	log.Info().
		Str("session_id", result.Session.ID.String()).
		Int("register_id", result.Session.RegisterID).
		Str("classification", string(result.Report.Classification)).
		Str("variance", result.Report.Variance.String()).
		Bool("authorized", result.Session.Authorized).
		Msg("caja: session closed")

	s.afterClose(ctx, result.Session)
	return result, nil
}

// replayedClose rebuilds the stored outcome when a CLOSED session was closed
// by the same user with the same count and justification.
func (s *cajaService) replayedClose(sesion *model.CashSession, in CloseSessionInput, justification string) (*CloseResult, bool) {
	if sesion.ClosingUserID == nil || *sesion.ClosingUserID != in.UserID {
		return nil, false
	}
	if sesion.CountedCash == nil || !sesion.CountedCash.Equal(in.CountedCash) {
		return nil, false
	}
	stored := ""
	if sesion.Justification != nil {
		stored = *sesion.Justification
	}
	if sesion.Variance != nil && !sesion.Variance.IsZero() && stored != justification {
		return nil, false
	}
	if sesion.ExpectedCash == nil || sesion.Classification == nil {
		return nil, false
	}

	report := Reconcile(*sesion.ExpectedCash, *sesion.CountedCash, s.policy)
	report.Classification = *sesion.Classification
	report.RequiresAuthorization = report.Classification == model.VarianceRequiresReview
	return &CloseResult{Session: sesion, Report: report, Replayed: true}, true
}

func (s *cajaService) afterClose(ctx context.Context, sesion *model.CashSession) {
	ctx = context.WithoutCancel(ctx)

	if s.invalidator != nil && sesion.ClosingUserID != nil {
		if err := s.invalidator.InvalidateUserSessions(ctx, *sesion.ClosingUserID, *sesion.ClosingTimestamp); err != nil {
			s.metrics.PostCloseFailure("invalidate_session")
			log.Error().Err(err).Str("session_id", sesion.ID.String()).Msg("caja: could not invalidate operator session")
		}
	}

	if s.auditor != nil {
		if err := s.auditor.EnqueueAuditoriaCaja(ctx, cierreEvent(sesion)); err != nil {
			s.metrics.PostCloseFailure("audit")
			log.Error().Err(err).Str("session_id", sesion.ID.String()).Msg("caja: could not publish close audit event")
		}
	}
}

func cierreEvent(sesion *model.CashSession) dto.CierreCajaEvent {
	evt := dto.CierreCajaEvent{
		SessionID:      sesion.ID.String(),
		RegisterID:     sesion.RegisterID,
		CompanyID:      sesion.CompanyID.String(),
		ExpectedCash:   *sesion.ExpectedCash,
		CountedCash:    *sesion.CountedCash,
		Variance:       *sesion.Variance,
		Classification: string(*sesion.Classification),
		Authorized:     sesion.Authorized,
		Justification:  sesion.Justification,
		ClosedBy:       sesion.ClosingUserID.String(),
		ClosedAt:       *sesion.ClosingTimestamp,
	}
	if sesion.SupervisorID != nil {
		id := sesion.SupervisorID.String()
		evt.SupervisorID = &id
	}
	return evt
}

// ── GetSessionSummary ─────────────────────────────────────────────────────────

func (s *cajaService) GetSessionSummary(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error) {
	sesion, movs, metodos, err := s.loadLedger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountPendingSales(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cash := cashMethodsOf(metodos)
	byMethod := TotalsByPaymentMethod(movs, cash)
	totals := make([]MethodTotal, 0, len(byMethod))
	for _, m := range metodos {
		if t, ok := byMethod[m.ID]; ok {
			totals = append(totals, MethodTotal{Method: m, Total: t})
			delete(byMethod, m.ID)
		}
	}
	// Methods deactivated after use still show up, without registry metadata
	for id, t := range byMethod {
		totals = append(totals, MethodTotal{Method: model.PaymentMethod{ID: id, Code: "desconocido"}, Total: t})
	}

	return &SessionSummary{
		Session:      sesion,
		OpeningFloat: sesion.OpeningFloat,
		ExpectedCash: ExpectedCash(movs, cash),
		Totals:       totals,
		Movements:    movs,
		PendingSales: pending,
	}, nil
}
