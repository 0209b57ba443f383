package repository

import (
	"context"
	"fmt"

	"blendcaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsuarioRepository interface {
	// ListSupervisores returns active supervisors of a company that have an
	// authorization code configured.
	ListSupervisores(ctx context.Context, companyID uuid.UUID) ([]model.Usuario, error)
	// UpsertSupervisor creates u or, when the username exists, replaces its
	// company, name, role and code.
	UpsertSupervisor(ctx context.Context, u *model.Usuario) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) ListSupervisores(ctx context.Context, companyID uuid.UUID) ([]model.Usuario, error) {
	var users []model.Usuario
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND rol = ? AND activo = ? AND codigo_supervisor_hash IS NOT NULL",
			companyID, model.RolSupervisor, true).
		Order("nombre ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list supervisors of %s: %w", companyID, err)
	}
	return users, nil
}

func (r *usuarioRepo) UpsertSupervisor(ctx context.Context, u *model.Usuario) error {
	u.Rol = model.RolSupervisor
	u.Activo = true
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"company_id", "nombre", "rol", "codigo_supervisor_hash", "activo", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return fmt.Errorf("upsert supervisor %s: %w", u.Username, err)
	}
	return nil
}
