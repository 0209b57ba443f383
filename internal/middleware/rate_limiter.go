package middleware

import (
	"net/http"
	"strconv"

	"blendcaja/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// ── Supervisor code rate limiter ─────────────────────────────────────────────
// Supervisor codes are short, so validation attempts are throttled per
// authenticated user (per IP before authentication).

// NewRateLimiter builds an in-memory limiter from a "<limit>-<period>" rate,
// e.g. "10-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit rejects requests once the caller exhausted the limiter budget.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if v, ok := c.Get(ClaimsKey); ok {
			if claims, ok := v.(*JWTClaims); ok && claims.UserID != "" {
				key = "user:" + claims.UserID
			}
		}

		res, err := l.Get(c.Request.Context(), key)
		if err != nil {
			log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter: lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if res.Reached {
			log.Warn().Str("key", key).Int64("limit", res.Limit).Msg("rate limiter: limit reached")
			c.Header("Retry-After", strconv.FormatInt(res.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
