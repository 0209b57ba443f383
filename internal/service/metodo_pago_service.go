package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"blendcaja/internal/apperrors"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultMetodoPagoCacheTTL = 10 * time.Minute

// MetodoPagoService is the read side of the payment method registry.
type MetodoPagoService interface {
	ListPaymentMethods(ctx context.Context, companyID uuid.UUID) ([]model.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, m *model.PaymentMethod) error
	// Invalidate drops the cached list after the registry changed.
	Invalidate(ctx context.Context, companyID uuid.UUID)
}

type metodoPagoService struct {
	repo repository.MetodoPagoRepository
	rdb  *redis.Client // nil disables the cache
	ttl  time.Duration
}

func NewMetodoPagoService(repo repository.MetodoPagoRepository, rdb *redis.Client, ttl time.Duration) MetodoPagoService {
	if ttl <= 0 {
		ttl = defaultMetodoPagoCacheTTL
	}
	return &metodoPagoService{repo: repo, rdb: rdb, ttl: ttl}
}

func metodoPagoCacheKey(companyID uuid.UUID) string {
	return "metodos_pago:" + companyID.String()
}

// ListPaymentMethods reads through Redis. Cache failures are logged and the
// registry table is used instead; they never fail the caller.
func (s *metodoPagoService) ListPaymentMethods(ctx context.Context, companyID uuid.UUID) ([]model.PaymentMethod, error) {
	key := metodoPagoCacheKey(companyID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var metodos []model.PaymentMethod
			if err := json.Unmarshal(cached, &metodos); err == nil {
				return metodos, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("company_id", companyID.String()).Msg("metodos_pago: cache read failed")
		}
	}

	metodos, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if b, err := json.Marshal(metodos); err == nil {
			if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Str("company_id", companyID.String()).Msg("metodos_pago: cache write failed")
			}
		}
	}
	return metodos, nil
}

func (s *metodoPagoService) CreatePaymentMethod(ctx context.Context, m *model.PaymentMethod) error {
	m.Code = strings.ToLower(strings.TrimSpace(m.Code))
	if m.Code == "" || strings.TrimSpace(m.Name) == "" {
		return apperrors.ErrValidation.Msg("payment method needs a code and a name")
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	s.Invalidate(ctx, m.CompanyID)
	return nil
}

func (s *metodoPagoService) Invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, metodoPagoCacheKey(companyID)).Err(); err != nil {
		log.Warn().Err(err).Str("company_id", companyID.String()).Msg("metodos_pago: cache invalidation failed")
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func findMetodo(metodos []model.PaymentMethod, id uuid.UUID) (model.PaymentMethod, bool) {
	for _, m := range metodos {
		if m.ID == id {
			return m, true
		}
	}
	return model.PaymentMethod{}, false
}

// cashMetodo picks the method the opening float is recorded with: the
// "efectivo" code when present, otherwise the first active cash method.
func cashMetodo(metodos []model.PaymentMethod) (model.PaymentMethod, bool) {
	var first *model.PaymentMethod
	for i := range metodos {
		if !metodos[i].IsCash || !metodos[i].Active {
			continue
		}
		if metodos[i].Code == "efectivo" {
			return metodos[i], true
		}
		if first == nil {
			first = &metodos[i]
		}
	}
	if first == nil {
		return model.PaymentMethod{}, false
	}
	return *first, true
}
