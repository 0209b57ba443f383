package service

import (
	"context"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VentasPendientesService guards the OPEN → COUNTING transition. Drafts are
// never purged implicitly; the operator must ask for it.
type VentasPendientesService interface {
	CountPendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error)
	PurgePendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type ventasPendientesService struct {
	repo repository.CajaRepository
}

func NewVentasPendientesService(repo repository.CajaRepository) VentasPendientesService {
	return &ventasPendientesService{repo: repo}
}

func (s *ventasPendientesService) CountPendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	if _, err := s.repo.FindSesionByID(ctx, sessionID); err != nil {
		return 0, err
	}
	return s.repo.CountPendingSales(ctx, sessionID)
}

// PurgePendingSales deletes every draft of an OPEN session and its line
// items in one transaction.
func (s *ventasPendientesService) PurgePendingSales(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var purged int64
	err := s.repo.WithTx(ctx, func(tx repository.CajaRepository) error {
		sesion, err := tx.LockSesion(ctx, sessionID)
		if err != nil {
			return err
		}
		if sesion.State != model.SessionOpen {
			return apperrors.ErrSessionNotOpen.With("state", string(sesion.State))
		}
		purged, err = tx.PurgePendingSales(ctx, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		log.Warn().Str("session_id", sessionID.String()).Int64("purged", purged).Msg("caja: pending sales purged by operator")
	}
	return purged, nil
}
