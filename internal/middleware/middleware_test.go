package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, secret string, claims JWTClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func validClaims(rol string) JWTClaims {
	now := time.Now()
	return JWTClaims{
		UserID:    uuid.NewString(),
		Username:  "cajero1",
		Rol:       rol,
		CompanyID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

type stubRevocation struct {
	revoked bool
	err     error
	calls   int
}

func (s *stubRevocation) IsRevoked(context.Context, uuid.UUID, time.Time) (bool, error) {
	s.calls++
	return s.revoked, s.err
}

func protectedEngine(rev RevocationChecker, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(testSecret, rev)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Username)
	})
	r.GET("/p", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	expired := validClaims("cajero")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noCompany := validClaims("cajero")
	noCompany.CompanyID = ""

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", signToken(t, testSecret, validClaims("cajero")), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "otro", validClaims("cajero")), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"no company", signToken(t, testSecret, noCompany), http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
	}
	r := protectedEngine(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, get(r, "/p", tc.token).Code)
		})
	}
}

func TestJWTAuth_Revocation(t *testing.T) {
	token := signToken(t, testSecret, validClaims("cajero"))

	ok := &stubRevocation{}
	assert.Equal(t, http.StatusOK, get(protectedEngine(ok), "/p", token).Code)
	assert.Equal(t, 1, ok.calls)

	revoked := &stubRevocation{revoked: true}
	w := get(protectedEngine(revoked), "/p", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Sesion finalizada")

	down := &stubRevocation{err: errors.New("redis down")}
	assert.Equal(t, http.StatusServiceUnavailable, get(protectedEngine(down), "/p", token).Code)
}

func TestRequireRole(t *testing.T) {
	r := protectedEngine(nil, "supervisor", "administrador")

	assert.Equal(t, http.StatusForbidden, get(r, "/p", signToken(t, testSecret, validClaims("cajero"))).Code)
	assert.Equal(t, http.StatusOK, get(r, "/p", signToken(t, testSecret, validClaims("supervisor"))).Code)
}

func TestRateLimit(t *testing.T) {
	l, err := NewRateLimiter("3-M")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/p", JWTAuth(testSecret, nil), RateLimit(l), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	alice := signToken(t, testSecret, validClaims("supervisor"))
	bob := signToken(t, testSecret, validClaims("supervisor"))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, get(r, "/p", alice).Code)
	}
	w := get(r, "/p", alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, get(r, "/p", bob).Code, "budget is per user")

	_, err = NewRateLimiter("mucho")
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := get(r, "/p", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRecoveryAndErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery(), ErrorHandler())
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/err", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := get(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")

	w = get(r, "/err", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "Error interno del servidor")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://pos.blend.local"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "https://pos.blend.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pos.blend.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
