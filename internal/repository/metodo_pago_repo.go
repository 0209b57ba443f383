package repository

import (
	"context"
	"fmt"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetodoPagoRepository interface {
	// ListByCompany returns active and inactive methods; movements recorded
	// with a since-deactivated method must still be attributed correctly.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.PaymentMethod, error)
	Create(ctx context.Context, m *model.PaymentMethod) error
}

type metodoPagoRepo struct{ db *gorm.DB }

func NewMetodoPagoRepository(db *gorm.DB) MetodoPagoRepository { return &metodoPagoRepo{db: db} }

func (r *metodoPagoRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.PaymentMethod, error) {
	var metodos []model.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("code ASC").
		Find(&metodos).Error
	if err != nil {
		return nil, fmt.Errorf("list payment methods of %s: %w", companyID, err)
	}
	return metodos, nil
}

func (r *metodoPagoRepo) Create(ctx context.Context, m *model.PaymentMethod) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrValidation.Msg("payment method code already exists").With("code", m.Code).Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("create payment method %s: %w", m.Code, err)
	}
	return nil
}
