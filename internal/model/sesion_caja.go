package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionState: "OPEN" -> "COUNTING" -> "CLOSED". No other transition exists.
type SessionState string

const (
	SessionOpen     SessionState = "OPEN"
	SessionCounting SessionState = "COUNTING"
	SessionClosed   SessionState = "CLOSED"
)

func (s SessionState) CanTransitionTo(next SessionState) bool {
	switch s {
	case SessionOpen:
		return next == SessionCounting
	case SessionCounting:
		return next == SessionClosed
	default:
		return false
	}
}

// Active reports whether the session still owns its register.
func (s SessionState) Active() bool {
	return s == SessionOpen || s == SessionCounting
}

// VarianceClassification: "EXACT" | "ACCEPTABLE" | "REQUIRES_REVIEW"
type VarianceClassification string

const (
	VarianceExact          VarianceClassification = "EXACT"
	VarianceAcceptable     VarianceClassification = "ACCEPTABLE"
	VarianceRequiresReview VarianceClassification = "REQUIRES_REVIEW"
)

// CashSession is the lifecycle of one register shift. At most one session per
// (CompanyID, RegisterID) may be OPEN or COUNTING
// (uq_cash_sessions_company_register_active).
// Closing fields are written once, when the session reaches CLOSED.
type CashSession struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	RegisterID        int             `gorm:"not null;index"`
	OpeningUserID     uuid.UUID       `gorm:"type:uuid;not null"`
	OpeningTimestamp  time.Time       `gorm:"not null"`
	OpeningFloat      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	State             SessionState    `gorm:"type:varchar(20);not null;index"`
	CountingStartedAt *time.Time

	// Closing snapshot. ExpectedCash and Classification are stored, never recomputed.
	ClosingTimestamp *time.Time
	ClosingUserID    *uuid.UUID              `gorm:"type:uuid"`
	ExpectedCash     *decimal.Decimal        `gorm:"type:decimal(12,2)"`
	CountedCash      *decimal.Decimal        `gorm:"type:decimal(12,2)"`
	Variance         *decimal.Decimal        `gorm:"type:decimal(12,2)"`
	Classification   *VarianceClassification `gorm:"type:varchar(20)"`
	Justification    *string
	Authorized       bool       `gorm:"not null;default:false"`
	SupervisorID     *uuid.UUID `gorm:"type:uuid"`

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

func (CashSession) TableName() string { return "cash_sessions" }

func (s *CashSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MovementType: "OPENING_FLOAT" | "SALE_PROCEEDS" | "MANUAL_IN" | "MANUAL_OUT"
type MovementType string

const (
	MovementOpeningFloat MovementType = "OPENING_FLOAT"
	MovementSaleProceeds MovementType = "SALE_PROCEEDS"
	MovementManualIn     MovementType = "MANUAL_IN"
	MovementManualOut    MovementType = "MANUAL_OUT"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementOpeningFloat, MovementSaleProceeds, MovementManualIn, MovementManualOut:
		return true
	}
	return false
}

// CashMovement is an immutable ledger entry. Amount is unsigned; the sign is
// implied by Type. Movements are NEVER modified or deleted.
type CashMovement struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type            MovementType    `gorm:"type:varchar(20);not null"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ChangeGiven is only non-zero for cash SALE_PROCEEDS
	ChangeGiven decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Description string
	UserID      uuid.UUID  `gorm:"type:uuid;not null"`
	SaleID      *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

func (CashMovement) TableName() string { return "cash_movements" }

func (m *CashMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
