package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod is a tender type configured per company ("efectivo", "debito",
// "credito", "transferencia", ...). Only IsCash methods count towards expected cash.
type PaymentMethod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payment_methods_company_code" json:"company_id"`
	Code      string    `gorm:"type:varchar(30);not null;uniqueIndex:uq_payment_methods_company_code" json:"code"`
	Name      string    `gorm:"not null" json:"name"`
	IsCash    bool      `gorm:"not null;default:false" json:"is_cash"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

func (p *PaymentMethod) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
