package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const defaultSupervisorTimeout = 5 * time.Second

// SupervisorAuthorization is the gate's verdict on a supervisor code. It is
// consumed by exactly one CloseSession call and never cached.
type SupervisorAuthorization struct {
	Valid          bool
	SupervisorID   uuid.UUID
	SupervisorName string
}

// SupervisorDirectory resolves a supervisor code. It returns (nil, nil) when
// no supervisor of companyID owns the code, and an error only when the
// directory itself could not answer.
type SupervisorDirectory interface {
	LookupSupervisorCode(ctx context.Context, code string, companyID uuid.UUID) (*model.Supervisor, error)
}

type SupervisorService interface {
	ValidateSupervisorCode(ctx context.Context, code string, companyID uuid.UUID) (*SupervisorAuthorization, error)
}

type supervisorService struct {
	dir     SupervisorDirectory
	timeout time.Duration
}

func NewSupervisorService(dir SupervisorDirectory, timeout time.Duration) SupervisorService {
	if timeout <= 0 {
		timeout = defaultSupervisorTimeout
	}
	return &supervisorService{dir: dir, timeout: timeout}
}

// ── ValidateSupervisorCode ────────────────────────────────────────────────────
// Wrong code → Valid=false, nil error. Timeout or directory failure →
// ErrAuthServiceUnavailable, so callers can tell "bad code" from "cannot check".

func (s *supervisorService) ValidateSupervisorCode(ctx context.Context, code string, companyID uuid.UUID) (*SupervisorAuthorization, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &SupervisorAuthorization{Valid: false}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type lookup struct {
		sup *model.Supervisor
		err error
	}
	done := make(chan lookup, 1)
	go func() {
		sup, err := s.dir.LookupSupervisorCode(ctx, code, companyID)
		done <- lookup{sup: sup, err: err}
	}()

	var res lookup
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		log.Warn().Err(res.err).Str("company_id", companyID.String()).Msg("supervisor: validation unavailable")
		return nil, apperrors.ErrAuthServiceUnavailable.Wrap(res.err)
	}
	if res.sup == nil {
		log.Info().Str("company_id", companyID.String()).Msg("supervisor: code rejected")
		return &SupervisorAuthorization{Valid: false}, nil
	}
	return &SupervisorAuthorization{
		Valid:          true,
		SupervisorID:   res.sup.ID,
		SupervisorName: res.sup.Nombre,
	}, nil
}

// ── Local directory ───────────────────────────────────────────────────────────
// Used when no identity service is configured: supervisor codes are stored
// bcrypt-hashed in the usuarios table.

type localSupervisorDirectory struct {
	repo repository.UsuarioRepository
}

func NewLocalSupervisorDirectory(repo repository.UsuarioRepository) SupervisorDirectory {
	return &localSupervisorDirectory{repo: repo}
}

func (d *localSupervisorDirectory) LookupSupervisorCode(ctx context.Context, code string, companyID uuid.UUID) (*model.Supervisor, error) {
	supervisores, err := d.repo.ListSupervisores(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("supervisor directory: %w", err)
	}
	for _, u := range supervisores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u.CodigoSupervisorHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*u.CodigoSupervisorHash), []byte(code)) == nil {
			return &model.Supervisor{ID: u.ID, Nombre: u.Nombre}, nil
		}
	}
	return nil, nil
}

// HashSupervisorCode hashes a code for storage in CodigoSupervisorHash.
func HashSupervisorCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
