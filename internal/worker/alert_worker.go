package worker

// alert_worker.go
// Delivers branch alerts from QueueAlert by email. Recipients are resolved
// from the branch row at delivery time, not enqueue time, so an email change
// takes effect for queued alerts too. SMTP calls go through the circuit
// breaker: when the relay is down jobs fast-fail into the DLQ and the retry
// cron re-drives them once the breaker closes.

import (
	"context"
	"encoding/json"
	"fmt"

	"tillpoint/internal/domain"
	"tillpoint/internal/infra"
	"tillpoint/internal/repository"

	"github.com/rs/zerolog/log"
)

type AlertWorker struct {
	branches repository.BranchRepository
	mailer   *infra.Mailer
	cb       *infra.CircuitBreaker
}

func NewAlertWorker(branches repository.BranchRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker) *AlertWorker {
	return &AlertWorker{branches: branches, mailer: mailer, cb: cb}
}

func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var alert domain.Alert
	if err := json.Unmarshal(raw, &alert); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload, dropping")
		return nil
	}

	branch, err := w.branches.FindByID(ctx, alert.BranchID)
	if err != nil {
		return fmt.Errorf("alert_worker: resolve branch %s: %w", alert.BranchID, err)
	}

	to := recipients(branch.OwnerEmail, branch.ManagerEmail)
	if len(to) == 0 {
		log.Warn().
			Str("branch_id", alert.BranchID.String()).
			Str("kind", string(alert.Kind)).
			Msg("alert_worker: branch has no alert recipients, dropping")
		return nil
	}

	subject := alert.Subject
	if alert.HighPriority {
		subject = "[URGENT] " + subject
	}

	err = w.cb.Execute(func() error {
		return w.mailer.SendAlert(to, subject, alert.Body)
	})
	if err != nil {
		return fmt.Errorf("alert_worker: deliver %s for session %s: %w",
			alert.Kind, alert.SessionID, err)
	}

	log.Info().
		Str("kind", string(alert.Kind)).
		Str("session_id", alert.SessionID.String()).
		Int("recipients", len(to)).
		Msg("alert_worker: alert delivered")
	return nil
}

func recipients(addrs ...string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
