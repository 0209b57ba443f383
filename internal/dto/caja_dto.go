package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	RegisterID   int             `json:"register_id"   validate:"required,min=1"`
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
}

type MovimientoManualRequest struct {
	Type            string          `json:"type"              validate:"required,oneof=MANUAL_IN MANUAL_OUT"`
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"            validate:"required,gt=0"`
	Description     string          `json:"description"       validate:"required,min=3,max=255"`
}

type TenderRequest struct {
	PaymentMethodID string          `json:"payment_method_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"            validate:"required,gt=0"`
	ChangeGiven     decimal.Decimal `json:"change_given"      validate:"min=0"`
}

type RegistrarVentaRequest struct {
	SaleID  string          `json:"sale_id" validate:"required,uuid"`
	Tenders []TenderRequest `json:"tenders" validate:"required,min=1,dive"`
}

type ArqueoRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
}

type CierreRequest struct {
	CountedCash   decimal.Decimal `json:"counted_cash"   validate:"min=0"`
	Justification string          `json:"justification"  validate:"max=1000"`
	// SupervisorCode is validated server-side right before closing; a client
	// cannot submit a pre-approved authorization.
	SupervisorCode string `json:"supervisor_code" validate:"max=64"`
}

type ValidarSupervisorRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type PurgarVentasPendientesRequest struct {
	Confirm bool `json:"confirm" validate:"required"`
}

type HistorialFilter struct {
	RegisterID int    `form:"register_id" validate:"omitempty,min=1"`
	State      string `form:"state"       validate:"omitempty,oneof=OPEN COUNTING CLOSED"`
	Page       int    `form:"page"        validate:"omitempty,min=1"`
	Limit      int    `form:"limit"       validate:"omitempty,min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID                string           `json:"id"`
	CompanyID         string           `json:"company_id"`
	RegisterID        int              `json:"register_id"`
	OpeningUserID     string           `json:"opening_user_id"`
	OpeningTimestamp  time.Time        `json:"opening_timestamp"`
	OpeningFloat      decimal.Decimal  `json:"opening_float"`
	State             string           `json:"state"`
	CountingStartedAt *time.Time       `json:"counting_started_at"`
	ClosingTimestamp  *time.Time       `json:"closing_timestamp"`
	ClosingUserID     *string          `json:"closing_user_id"`
	ExpectedCash      *decimal.Decimal `json:"expected_cash"`
	CountedCash       *decimal.Decimal `json:"counted_cash"`
	Variance          *decimal.Decimal `json:"variance"`
	Classification    *string          `json:"classification"`
	Justification     *string          `json:"justification"`
	Authorized        bool             `json:"authorized"`
	SupervisorID      *string          `json:"supervisor_id"`
}

type MovimientoResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	PaymentMethodID string          `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	ChangeGiven     decimal.Decimal `json:"change_given"`
	Description     string          `json:"description,omitempty"`
	UserID          string          `json:"user_id"`
	SaleID          *string         `json:"sale_id,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

type TotalMetodoResponse struct {
	PaymentMethodID string          `json:"payment_method_id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	IsCash          bool            `json:"is_cash"`
	Total           decimal.Decimal `json:"total"`
}

type ResumenCajaResponse struct {
	Sesion                SesionCajaResponse    `json:"session"`
	OpeningFloat          decimal.Decimal       `json:"opening_float"`
	ExpectedCash          decimal.Decimal       `json:"expected_cash"`
	TotalsByPaymentMethod []TotalMetodoResponse `json:"totals_by_payment_method"`
	Movimientos           []MovimientoResponse  `json:"movements"`
	PendingSales          int64                 `json:"pending_sales"`
}

type ArqueoResponse struct {
	SessionID             string          `json:"session_id"`
	ExpectedCash          decimal.Decimal `json:"expected_cash"`
	CountedCash           decimal.Decimal `json:"counted_cash"`
	Variance              decimal.Decimal `json:"variance"`
	VariancePct           decimal.Decimal `json:"variance_pct"`
	Classification        string          `json:"classification"` // EXACT | ACCEPTABLE | REQUIRES_REVIEW
	RequiresAuthorization bool            `json:"requires_authorization"`
	PctThreshold          decimal.Decimal `json:"pct_threshold"`
	AbsThreshold          decimal.Decimal `json:"abs_threshold"`
}

type CierreResponse struct {
	Sesion   SesionCajaResponse `json:"session"`
	Arqueo   ArqueoResponse     `json:"reconciliation"`
	Replayed bool               `json:"replayed"`
}

type SupervisorValidacionResponse struct {
	Valid          bool    `json:"valid"`
	SupervisorID   *string `json:"supervisor_id"`
	SupervisorName string  `json:"supervisor_name,omitempty"`
}

type VentasPendientesResponse struct {
	SessionID string `json:"session_id"`
	Count     int64  `json:"count"`
}

type HistorialResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// ─── Async events ────────────────────────────────────────────────────────────

// CierreCajaEvent is published to jobs:auditoria_caja after a close commits.
type CierreCajaEvent struct {
	SessionID      string          `json:"session_id"`
	RegisterID     int             `json:"register_id"`
	CompanyID      string          `json:"company_id"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	CountedCash    decimal.Decimal `json:"counted_cash"`
	Variance       decimal.Decimal `json:"variance"`
	Classification string          `json:"classification"`
	Authorized     bool            `json:"authorized"`
	SupervisorID   *string         `json:"supervisor_id"`
	Justification  *string         `json:"justification"`
	ClosedBy       string          `json:"closed_by"`
	ClosedAt       time.Time       `json:"closed_at"`
}
