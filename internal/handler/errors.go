package handler

import (
	"errors"
	"net/http"

	"blendcaja/internal/apierror"
	"blendcaja/internal/apperrors"
	"blendcaja/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	status int
	msg    string
}

// errorTable maps each domain error kind to its HTTP status and operator message.
var errorTable = map[apperrors.Kind]errorResponse{
	apperrors.KindNotFound:               {http.StatusNotFound, "Recurso no encontrado"},
	apperrors.KindValidation:             {http.StatusUnprocessableEntity, "Datos invalidos"},
	apperrors.KindRegisterAlreadyOpen:    {http.StatusConflict, "La caja ya tiene una sesión abierta"},
	apperrors.KindPendingSalesExist:      {http.StatusConflict, "Hay ventas pendientes sin resolver. Finalícelas o descártelas antes del arqueo."},
	apperrors.KindSessionNotWritable:     {http.StatusConflict, "La sesión de caja no admite movimientos"},
	apperrors.KindSessionNotOpen:         {http.StatusConflict, "La sesión de caja no está abierta"},
	apperrors.KindSessionNotInCounting:   {http.StatusConflict, "La sesión de caja no está en arqueo"},
	apperrors.KindMissingJustification:   {http.StatusUnprocessableEntity, "La diferencia de caja requiere una justificación"},
	apperrors.KindVarianceUnauthorized:   {http.StatusForbidden, "La diferencia supera el umbral permitido. Se requiere autorización de un supervisor."},
	apperrors.KindAuthServiceUnavailable: {http.StatusServiceUnavailable, "No se pudo validar el código de supervisor. Intente nuevamente."},
	apperrors.KindInvalidAmount:          {http.StatusBadRequest, "Monto inválido"},
	apperrors.KindUnknownPaymentMethod:   {http.StatusBadRequest, "Método de pago desconocido o inactivo"},
	apperrors.KindInvalidMovementType:    {http.StatusBadRequest, "Tipo de movimiento inválido"},
}

// respondError writes the envelope for err. Domain errors carry their kind
// and details; anything else is logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if resp, ok := errorTable[appErr.Kind]; ok {
			if resp.status >= http.StatusInternalServerError {
				log.Warn().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("handler: dependency unavailable")
			}
			c.JSON(resp.status, apierror.WithCode(string(appErr.Kind), resp.msg, appErr.Details))
			return
		}
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("handler: unexpected error")
	c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
}
