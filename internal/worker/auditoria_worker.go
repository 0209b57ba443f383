package worker

// auditoria_worker.go
// Consumes QueueAuditoriaCaja: every committed close is logged for the audit
// trail, and closes classified REQUIRES_REVIEW are mailed to supervisors.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blendcaja/internal/dto"
	"blendcaja/internal/model"

	"github.com/rs/zerolog/log"
)

// AlertSender is satisfied by *infra.Mailer.
type AlertSender interface {
	Configured() bool
	SendAlerta(to []string, subject, body string) error
}

type AuditoriaWorker struct {
	mailer AlertSender
	to     []string
}

// NewAuditoriaWorker builds the audit consumer. With no recipients or an
// unconfigured mailer, alerts are skipped and events are only logged.
func NewAuditoriaWorker(mailer AlertSender, recipients string) *AuditoriaWorker {
	var to []string
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	return &AuditoriaWorker{mailer: mailer, to: to}
}

// Handlers returns the job table the pool dispatches with.
func (w *AuditoriaWorker) Handlers() Handlers {
	return Handlers{JobAuditoriaCaja: w.Process}
}

func (w *AuditoriaWorker) Process(_ context.Context, raw json.RawMessage) error {
	var evt dto.CierreCajaEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		// undecodable payloads never succeed on retry
		log.Error().Err(err).Msg("auditoria_worker: invalid payload")
		return nil
	}

	log.Info().
		Str("session_id", evt.SessionID).
		Int("register_id", evt.RegisterID).
		Str("classification", evt.Classification).
		Str("expected_cash", evt.ExpectedCash.String()).
		Str("counted_cash", evt.CountedCash.String()).
		Str("variance", evt.Variance.String()).
		Bool("authorized", evt.Authorized).
		Str("closed_by", evt.ClosedBy).
		Msg("auditoria: cierre de caja")

	if evt.Classification != string(model.VarianceRequiresReview) {
		return nil
	}
	if len(w.to) == 0 || w.mailer == nil || !w.mailer.Configured() {
		log.Debug().Str("session_id", evt.SessionID).Msg("auditoria_worker: alert recipients not configured, skipping mail")
		return nil
	}

	subject, body := alertaDiferencia(evt)
	if err := w.mailer.SendAlerta(w.to, subject, body); err != nil {
		return fmt.Errorf("auditoria_worker: alert for %s: %w", evt.SessionID, err)
	}
	log.Info().Str("session_id", evt.SessionID).Strs("to", w.to).Msg("auditoria_worker: variance alert sent")
	return nil
}

func alertaDiferencia(evt dto.CierreCajaEvent) (string, string) {
	subject := fmt.Sprintf("[Caja %d] Cierre con diferencia %s", evt.RegisterID, evt.Variance.StringFixed(2))

	var b strings.Builder
	fmt.Fprintf(&b, "Sesión: %s\n", evt.SessionID)
	fmt.Fprintf(&b, "Caja: %d\n", evt.RegisterID)
	fmt.Fprintf(&b, "Cerrada por: %s el %s\n", evt.ClosedBy, evt.ClosedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Efectivo esperado: %s\n", evt.ExpectedCash.StringFixed(2))
	fmt.Fprintf(&b, "Efectivo contado: %s\n", evt.CountedCash.StringFixed(2))
	fmt.Fprintf(&b, "Diferencia: %s\n", evt.Variance.StringFixed(2))
	if evt.SupervisorID != nil {
		fmt.Fprintf(&b, "Autorizó: %s\n", *evt.SupervisorID)
	}
	if evt.Justification != nil {
		fmt.Fprintf(&b, "Justificación: %s\n", *evt.Justification)
	}
	return subject, b.String()
}
