package handler

import (
	"net/http"
	"strconv"

	"blendcaja/internal/apierror"
	"blendcaja/internal/apperrors"
	"blendcaja/internal/dto"
	"blendcaja/internal/middleware"
	"blendcaja/internal/model"
	"blendcaja/internal/repository"
	"blendcaja/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct {
	caja         service.CajaService
	ventas       service.VentasPendientesService
	supervisores service.SupervisorService
}

func NewCajaHandler(caja service.CajaService, ventas service.VentasPendientesService, supervisores service.SupervisorService) *CajaHandler {
	return &CajaHandler{caja: caja, ventas: ventas, supervisores: supervisores}
}

// sesionDeEmpresa resolves :id and hides sessions of other companies behind
// a 404. A cashier bound to a punto de venta only reaches sessions of that
// register. It writes the response itself when it returns false.
func (h *CajaHandler) sesionDeEmpresa(c *gin.Context) (*model.CashSession, bool) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, false
	}
	sesion, err := h.caja.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	claims := middleware.GetClaims(c)
	if sesion.CompanyID != claims.CompanyUUID() {
		respondError(c, apperrors.ErrNotFound.With("session_id", id.String()))
		return nil, false
	}
	if !cajaAsignada(claims, sesion.RegisterID) {
		c.JSON(http.StatusForbidden, apierror.New("La caja no está asignada a este usuario"))
		return nil, false
	}
	return sesion, true
}

// cajaAsignada reports whether the caller may operate registerID. Only
// cashiers with a punto_de_venta claim are restricted.
func cajaAsignada(claims *middleware.JWTClaims, registerID int) bool {
	return claims.Rol != model.RolCajero || claims.PuntoDeVenta == nil || *claims.PuntoDeVenta == registerID
}

// Abrir opens a session on the register in the body, recording the float.
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	if !cajaAsignada(claims, req.RegisterID) {
		c.JSON(http.StatusForbidden, apierror.New("La caja no está asignada a este usuario"))
		return
	}

	sesion, err := h.caja.OpenSession(c.Request.Context(), service.OpenSessionInput{
		CompanyID:    claims.CompanyUUID(),
		RegisterID:   req.RegisterID,
		UserID:       claims.UserUUID(),
		OpeningFloat: req.OpeningFloat,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSesionResponse(sesion))
}

// GetActiva returns the OPEN or COUNTING session of ?register_id=.
func (h *CajaHandler) GetActiva(c *gin.Context) {
	registerID, err := strconv.Atoi(c.Query("register_id"))
	if err != nil || registerID < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("register_id inválido"))
		return
	}
	claims := middleware.GetClaims(c)
	if !cajaAsignada(claims, registerID) {
		c.JSON(http.StatusForbidden, apierror.New("La caja no está asignada a este usuario"))
		return
	}
	sesion, err := h.caja.GetActiveSession(c.Request.Context(), claims.CompanyUUID(), registerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSesionResponse(sesion))
}

// Historial returns a paginated list of the company's sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	var f dto.HistorialFilter
	if !bindQuery(c, &f) {
		return
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}

	sesiones, total, err := h.caja.ListSessions(c.Request.Context(), repository.SesionFilter{
		CompanyID:  middleware.GetClaims(c).CompanyUUID(),
		RegisterID: f.RegisterID,
		State:      model.SessionState(f.State),
		Page:       f.Page,
		Limit:      f.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, toSesionResponse(&sesiones[i]))
	}
	c.JSON(http.StatusOK, dto.HistorialResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit})
}

// RegistrarMovimiento records a manual cash in or out.
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}

	mov, err := h.caja.AppendMovement(c.Request.Context(), service.MovementInput{
		SessionID:       sesion.ID,
		Type:            model.MovementType(req.Type),
		PaymentMethodID: uuid.MustParse(req.PaymentMethodID),
		Amount:          req.Amount,
		UserID:          middleware.GetClaims(c).UserUUID(),
		Description:     req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMovimientoResponse(*mov))
}

// RegistrarVenta records the tender lines of a finalized checkout.
func (h *CajaHandler) RegistrarVenta(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tenders := make([]service.TenderLine, 0, len(req.Tenders))
	for _, t := range req.Tenders {
		tenders = append(tenders, service.TenderLine{
			PaymentMethodID: uuid.MustParse(t.PaymentMethodID),
			Amount:          t.Amount,
			ChangeGiven:     t.ChangeGiven,
		})
	}
	movs, err := h.caja.RecordSale(c.Request.Context(), service.SaleInput{
		SessionID: sesion.ID,
		UserID:    middleware.GetClaims(c).UserUUID(),
		SaleID:    uuid.MustParse(req.SaleID),
		Tenders:   tenders,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMovimientosResponse(movs))
}

func (h *CajaHandler) Resumen(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	sum, err := h.caja.GetSessionSummary(c.Request.Context(), sesion.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResumenResponse(sum))
}

func (h *CajaHandler) VentasPendientes(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	n, err := h.ventas.CountPendingSales(c.Request.Context(), sesion.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VentasPendientesResponse{SessionID: sesion.ID.String(), Count: n})
}

// PurgarVentasPendientes discards every draft of the session. The body must
// carry {"confirm": true}.
func (h *CajaHandler) PurgarVentasPendientes(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	var req dto.PurgarVentasPendientesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	n, err := h.ventas.PurgePendingSales(c.Request.Context(), sesion.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VentasPendientesResponse{SessionID: sesion.ID.String(), Count: n})
}

// IniciarConteo moves the session to COUNTING; movements are rejected from here on.
func (h *CajaHandler) IniciarConteo(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	counting, err := h.caja.BeginCounting(c.Request.Context(), sesion.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSesionResponse(counting))
}

// Arqueo previews the reconciliation of a blind count without writing.
func (h *CajaHandler) Arqueo(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	report, err := h.caja.ReconcilePreview(c.Request.Context(), sesion.ID, req.CountedCash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toArqueoResponse(sesion.ID, *report))
}

// ValidarSupervisor lets the POS check a code before submitting the close.
// The result is informational; Cerrar validates the code again.
func (h *CajaHandler) ValidarSupervisor(c *gin.Context) {
	var req dto.ValidarSupervisorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	auth, err := h.supervisores.ValidateSupervisorCode(c.Request.Context(), req.Code, middleware.GetClaims(c).CompanyUUID())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.SupervisorValidacionResponse{Valid: auth.Valid}
	if auth.Valid {
		id := auth.SupervisorID.String()
		resp.SupervisorID = &id
		resp.SupervisorName = auth.SupervisorName
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar validates the supervisor code (if any) and closes the session.
func (h *CajaHandler) Cerrar(c *gin.Context) {
	sesion, ok := h.sesionDeEmpresa(c)
	if !ok {
		return
	}
	var req dto.CierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	var auth *service.SupervisorAuthorization
	if req.SupervisorCode != "" {
		var err error
		auth, err = h.supervisores.ValidateSupervisorCode(c.Request.Context(), req.SupervisorCode, claims.CompanyUUID())
		if err != nil {
			respondError(c, err)
			return
		}
	}

	res, err := h.caja.CloseSession(c.Request.Context(), service.CloseSessionInput{
		SessionID:     sesion.ID,
		UserID:        claims.UserUUID(),
		CountedCash:   req.CountedCash,
		Justification: req.Justification,
		Authorization: auth,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CierreResponse{
		Sesion:   toSesionResponse(res.Session),
		Arqueo:   toArqueoResponse(res.Session.ID, res.Report),
		Replayed: res.Replayed,
	})
}
