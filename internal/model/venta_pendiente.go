package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PendingSale is a draft sale parked on a register ("venta en espera").
// It moves no money; it only blocks the session from entering COUNTING.
type PendingSale struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Nota      *string
	CreatedAt time.Time

	Items []PendingSaleItem `gorm:"foreignKey:PendingSaleID"`
}

func (PendingSale) TableName() string { return "pending_sales" }

func (p *PendingSale) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type PendingSaleItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PendingSaleID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (PendingSaleItem) TableName() string { return "pending_sale_items" }

func (i *PendingSaleItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
