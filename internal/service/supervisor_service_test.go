package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"
	"blendcaja/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidateSupervisorCode(t *testing.T) {
	laura := model.Supervisor{ID: uuid.New(), Nombre: "Laura"}
	companyID := uuid.New()

	t.Run("valid code", func(t *testing.T) {
		svc := service.NewSupervisorService(&stubDirectory{codes: map[string]model.Supervisor{"4321": laura}}, time.Second)
		auth, err := svc.ValidateSupervisorCode(context.Background(), " 4321 ", companyID)
		require.NoError(t, err)
		assert.True(t, auth.Valid)
		assert.Equal(t, laura.ID, auth.SupervisorID)
		assert.Equal(t, "Laura", auth.SupervisorName)
	})

	t.Run("wrong code is not an error", func(t *testing.T) {
		svc := service.NewSupervisorService(&stubDirectory{codes: map[string]model.Supervisor{"4321": laura}}, time.Second)
		auth, err := svc.ValidateSupervisorCode(context.Background(), "0000", companyID)
		require.NoError(t, err)
		assert.False(t, auth.Valid)
		assert.Equal(t, uuid.Nil, auth.SupervisorID)
	})

	t.Run("empty code", func(t *testing.T) {
		svc := service.NewSupervisorService(&stubDirectory{err: errors.New("must not be called")}, time.Second)
		auth, err := svc.ValidateSupervisorCode(context.Background(), "   ", companyID)
		require.NoError(t, err)
		assert.False(t, auth.Valid)
	})

	t.Run("directory failure", func(t *testing.T) {
		svc := service.NewSupervisorService(&stubDirectory{err: errors.New("connection refused")}, time.Second)
		auth, err := svc.ValidateSupervisorCode(context.Background(), "4321", companyID)
		assert.Nil(t, auth)
		assert.ErrorIs(t, err, apperrors.ErrAuthServiceUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := &stubDirectory{codes: map[string]model.Supervisor{"4321": laura}, delay: 200 * time.Millisecond}
		svc := service.NewSupervisorService(slow, 20*time.Millisecond)

		start := time.Now()
		auth, err := svc.ValidateSupervisorCode(context.Background(), "4321", companyID)
		assert.Less(t, time.Since(start), 150*time.Millisecond, "the gate does not wait for a stuck directory")
		assert.Nil(t, auth)
		assert.ErrorIs(t, err, apperrors.ErrAuthServiceUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// ── Local directory ─────────────────────────────────────────────────────────

type memUsuarioRepo struct {
	users []model.Usuario
	err   error
}

var _ repository.UsuarioRepository = (*memUsuarioRepo)(nil)

func (r *memUsuarioRepo) ListSupervisores(_ context.Context, companyID uuid.UUID) ([]model.Usuario, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.Usuario
	for _, u := range r.users {
		if u.CompanyID == companyID && u.Rol == model.RolSupervisor && u.Activo {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsuarioRepo) UpsertSupervisor(_ context.Context, u *model.Usuario) error {
	r.users = append(r.users, *u)
	return nil
}

func hashed(t *testing.T, code string) *string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(b)
	return &s
}

func TestLocalSupervisorDirectory(t *testing.T) {
	companyID := uuid.New()
	laura := model.Usuario{ID: uuid.New(), CompanyID: companyID, Nombre: "Laura", Rol: model.RolSupervisor, Activo: true, CodigoSupervisorHash: hashed(t, "4321")}
	sinCodigo := model.Usuario{ID: uuid.New(), CompanyID: companyID, Nombre: "Pablo", Rol: model.RolSupervisor, Activo: true}
	otraEmpresa := model.Usuario{ID: uuid.New(), CompanyID: uuid.New(), Nombre: "Ana", Rol: model.RolSupervisor, Activo: true, CodigoSupervisorHash: hashed(t, "9999")}
	cajero := model.Usuario{ID: uuid.New(), CompanyID: companyID, Nombre: "Juan", Rol: model.RolCajero, Activo: true, CodigoSupervisorHash: hashed(t, "1111")}

	repo := &memUsuarioRepo{users: []model.Usuario{sinCodigo, laura, otraEmpresa, cajero}}
	svc := service.NewSupervisorService(service.NewLocalSupervisorDirectory(repo), time.Second)
	ctx := context.Background()

	auth, err := svc.ValidateSupervisorCode(ctx, "4321", companyID)
	require.NoError(t, err)
	assert.True(t, auth.Valid)
	assert.Equal(t, laura.ID, auth.SupervisorID)

	auth, err = svc.ValidateSupervisorCode(ctx, "9999", companyID)
	require.NoError(t, err)
	assert.False(t, auth.Valid, "codes are scoped to the company")

	auth, err = svc.ValidateSupervisorCode(ctx, "1111", companyID)
	require.NoError(t, err)
	assert.False(t, auth.Valid, "cashiers cannot authorize")

	repo.err = errors.New("db gone")
	_, err = svc.ValidateSupervisorCode(ctx, "4321", companyID)
	assert.ErrorIs(t, err, apperrors.ErrAuthServiceUnavailable)
}

func TestHashSupervisorCode(t *testing.T) {
	hash, err := service.HashSupervisorCode("4321")
	require.NoError(t, err)
	assert.NotEqual(t, "4321", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("4321")))
}
