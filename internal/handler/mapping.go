package handler

import (
	"blendcaja/internal/dto"
	"blendcaja/internal/model"
	"blendcaja/internal/service"

	"github.com/google/uuid"
)

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toSesionResponse(s *model.CashSession) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:                s.ID.String(),
		CompanyID:         s.CompanyID.String(),
		RegisterID:        s.RegisterID,
		OpeningUserID:     s.OpeningUserID.String(),
		OpeningTimestamp:  s.OpeningTimestamp,
		OpeningFloat:      s.OpeningFloat,
		State:             string(s.State),
		CountingStartedAt: s.CountingStartedAt,
		ClosingTimestamp:  s.ClosingTimestamp,
		ClosingUserID:     uuidPtrString(s.ClosingUserID),
		ExpectedCash:      s.ExpectedCash,
		CountedCash:       s.CountedCash,
		Variance:          s.Variance,
		Justification:     s.Justification,
		Authorized:        s.Authorized,
		SupervisorID:      uuidPtrString(s.SupervisorID),
	}
	if s.Classification != nil {
		c := string(*s.Classification)
		resp.Classification = &c
	}
	return resp
}

func toMovimientoResponse(m model.CashMovement) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:              m.ID.String(),
		Type:            string(m.Type),
		PaymentMethodID: m.PaymentMethodID.String(),
		Amount:          m.Amount,
		ChangeGiven:     m.ChangeGiven,
		Description:     m.Description,
		UserID:          m.UserID.String(),
		SaleID:          uuidPtrString(m.SaleID),
		Timestamp:       m.CreatedAt,
	}
}

func toMovimientosResponse(movs []model.CashMovement) []dto.MovimientoResponse {
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, toMovimientoResponse(m))
	}
	return out
}

func toArqueoResponse(sessionID uuid.UUID, r service.VarianceReport) dto.ArqueoResponse {
	return dto.ArqueoResponse{
		SessionID:             sessionID.String(),
		ExpectedCash:          r.ExpectedCash,
		CountedCash:           r.CountedCash,
		Variance:              r.Variance,
		VariancePct:           r.VariancePct,
		Classification:        string(r.Classification),
		RequiresAuthorization: r.RequiresAuthorization,
		PctThreshold:          r.Policy.PctThreshold,
		AbsThreshold:          r.Policy.AbsThreshold,
	}
}

func toResumenResponse(sum *service.SessionSummary) dto.ResumenCajaResponse {
	totals := make([]dto.TotalMetodoResponse, 0, len(sum.Totals))
	for _, t := range sum.Totals {
		totals = append(totals, dto.TotalMetodoResponse{
			PaymentMethodID: t.Method.ID.String(),
			Code:            t.Method.Code,
			Name:            t.Method.Name,
			IsCash:          t.Method.IsCash,
			Total:           t.Total,
		})
	}
	return dto.ResumenCajaResponse{
		Sesion:                toSesionResponse(sum.Session),
		OpeningFloat:          sum.OpeningFloat,
		ExpectedCash:          sum.ExpectedCash,
		TotalsByPaymentMethod: totals,
		Movimientos:           toMovimientosResponse(sum.Movements),
		PendingSales:          sum.PendingSales,
	}
}
