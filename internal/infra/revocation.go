package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// revocationTTL outlives the longest token lifetime issued by the identity service.
const revocationTTL = 24 * time.Hour

// TokenRevoker stores per-user revocation markers in Redis. Any token issued
// at or before the marker is rejected by the JWT middleware, which forces the
// operator to re-authenticate after closing their register.
type TokenRevoker struct {
	rdb *redis.Client
}

func NewTokenRevoker(rdb *redis.Client) *TokenRevoker {
	return &TokenRevoker{rdb: rdb}
}

func revocationKey(userID uuid.UUID) string {
	return "auth:revoked:" + userID.String()
}

// InvalidateUserSessions marks every token of userID issued up to at as revoked.
func (r *TokenRevoker) InvalidateUserSessions(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if err := r.rdb.Set(ctx, revocationKey(userID), at.Unix(), revocationTTL).Err(); err != nil {
		return fmt.Errorf("revocation: set marker: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token for userID issued at issuedAt was revoked.
func (r *TokenRevoker) IsRevoked(ctx context.Context, userID uuid.UUID, issuedAt time.Time) (bool, error) {
	val, err := r.rdb.Get(ctx, revocationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation: get marker: %w", err)
	}
	revokedAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation: corrupt marker %q: %w", val, err)
	}
	return issuedAt.Unix() <= revokedAt, nil
}
