package router

import (
	"errors"
	"fmt"

	"blendcaja/internal/config"
	"blendcaja/internal/handler"
	"blendcaja/internal/infra"
	"blendcaja/internal/middleware"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"
	"blendcaja/internal/service"
	"blendcaja/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
//
// rdb may be nil: the payment method cache, token revocation and audit
// events are then disabled. metrics may be nil to skip /metrics.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, metrics *infra.Metrics) (*gin.Engine, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("router: JWT_SECRET is required")
	}
	if err := cfg.ValidateVariancePolicy(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	supervisorLimiter, err := middleware.NewRateLimiter(cfg.SupervisorRateLimit)
	if err != nil {
		return nil, fmt.Errorf("router: SUPERVISOR_RATE_LIMIT %q: %w", cfg.SupervisorRateLimit, err)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db, cfg.StoreRetryAttempts)
	metodoPagoRepo := repository.NewMetodoPagoRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)

	// ── Supervisor directory ─────────────────────────────────────────────────
	var directory service.SupervisorDirectory
	if cfg.IdentityServiceURL != "" {
		directory = infra.NewIdentityClient(cfg.IdentityServiceURL, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	} else {
		directory = service.NewLocalSupervisorDirectory(usuarioRepo)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	metodosSvc := service.NewMetodoPagoService(metodoPagoRepo, rdb, cfg.PaymentMethodCacheTTL)
	deps := service.CajaDeps{
		Repo:        cajaRepo,
		MetodosPago: metodosSvc,
		Policy: service.VariancePolicy{
			PctThreshold:           decimal.NewFromFloat(cfg.VariancePctThreshold),
			AbsThreshold:           decimal.NewFromFloat(cfg.VarianceAbsThreshold),
			MinJustificationLength: cfg.MinJustificationLength,
		},
		Metrics: metrics,
	}
	// Assigned only when non-nil so the interfaces stay nil without Redis.
	var revoker middleware.RevocationChecker
	if rdb != nil {
		tokenRevoker := infra.NewTokenRevoker(rdb)
		revoker = tokenRevoker
		deps.Invalidator = tokenRevoker
		deps.Auditor = worker.NewDispatcher(rdb)
	} else {
		log.Warn().Msg("router: redis disabled, closes will not revoke tokens nor publish audit events")
	}
	cajaSvc := service.NewCajaService(deps)
	ventasSvc := service.NewVentasPendientesService(cajaRepo)
	supervisorSvc := service.NewSupervisorService(directory, cfg.SupervisorValidationTimeout)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc, ventasSvc, supervisorSvc)
	metodosH := handler.NewMetodosPagoHandler(metodosSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	if metrics != nil && cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret, revoker)
	v1 := r.Group("/v1", jwtMW)
	{
		operadores := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
		gerencia := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)

		caja := v1.Group("/caja", operadores)
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.GET("/activa", cajaH.GetActiva)
			caja.GET("/historial", gerencia, cajaH.Historial)
			caja.POST("/supervisor/validar", middleware.RateLimit(supervisorLimiter), cajaH.ValidarSupervisor)

			caja.POST("/:id/movimientos", cajaH.RegistrarMovimiento)
			caja.POST("/:id/ventas", cajaH.RegistrarVenta)
			caja.GET("/:id/resumen", cajaH.Resumen)
			caja.GET("/:id/ventas-pendientes", cajaH.VentasPendientes)
			caja.DELETE("/:id/ventas-pendientes", cajaH.PurgarVentasPendientes)
			caja.POST("/:id/conteo", cajaH.IniciarConteo)
			caja.POST("/:id/arqueo", cajaH.Arqueo)
			// the close re-validates supervisor codes, so it shares the limiter
			caja.POST("/:id/cierre", middleware.RateLimit(supervisorLimiter), cajaH.Cerrar)
		}

		metodos := v1.Group("/metodos-pago")
		{
			metodos.GET("", operadores, metodosH.Listar)
			metodos.POST("", middleware.RequireRole(model.RolAdministrador), metodosH.Crear)
		}
	}

	return r, nil
}
