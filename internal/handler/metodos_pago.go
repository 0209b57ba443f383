package handler

import (
	"net/http"

	"blendcaja/internal/middleware"
	"blendcaja/internal/model"
	"blendcaja/internal/service"

	"github.com/gin-gonic/gin"
)

type MetodosPagoHandler struct{ svc service.MetodoPagoService }

func NewMetodosPagoHandler(svc service.MetodoPagoService) *MetodosPagoHandler {
	return &MetodosPagoHandler{svc: svc}
}

type crearMetodoPagoRequest struct {
	Code   string `json:"code"    validate:"required,min=2,max=30"`
	Name   string `json:"name"    validate:"required,max=60"`
	IsCash bool   `json:"is_cash"`
}

// Listar returns every payment method of the caller's company, inactive included.
func (h *MetodosPagoHandler) Listar(c *gin.Context) {
	metodos, err := h.svc.ListPaymentMethods(c.Request.Context(), middleware.GetClaims(c).CompanyUUID())
	if err != nil {
		respondError(c, err)
		return
	}
	if metodos == nil {
		metodos = []model.PaymentMethod{}
	}
	c.JSON(http.StatusOK, metodos)
}

func (h *MetodosPagoHandler) Crear(c *gin.Context) {
	var req crearMetodoPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	m := &model.PaymentMethod{
		CompanyID: middleware.GetClaims(c).CompanyUUID(),
		Code:      req.Code,
		Name:      req.Name,
		IsCash:    req.IsCash,
		Active:    true,
	}
	if err := h.svc.CreatePaymentMethod(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}
