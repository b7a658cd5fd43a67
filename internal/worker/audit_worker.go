package worker

// audit_worker.go
// Persists session lifecycle events from QueueAudit into the audit_events
// table. The insert ignores conflicts on (session_id, occurred_at), so a
// replayed queue entry is a no-op and at-least-once delivery is safe.

import (
	"context"
	"encoding/json"
	"fmt"

	"tillpoint/internal/domain"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/rs/zerolog/log"
)

type AuditWorker struct {
	repo repository.AuditRepository
}

func NewAuditWorker(repo repository.AuditRepository) *AuditWorker {
	return &AuditWorker{repo: repo}
}

func (w *AuditWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var entry domain.AuditEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Malformed payload never becomes valid; drop instead of DLQ-looping.
		log.Error().Err(err).Msg("audit_worker: invalid payload, dropping")
		return nil
	}

	event := &model.AuditEvent{
		Action:       string(entry.Action),
		SessionID:    entry.SessionID,
		RegisterID:   entry.RegisterID,
		BranchID:     entry.BranchID,
		ActorID:      entry.ActorID,
		SupervisorID: entry.SupervisorID,
		BeforeState:  rawOrNull(entry.Before),
		AfterState:   rawOrNull(entry.After),
		OccurredAt:   entry.At,
	}
	if entry.Reason != "" {
		event.Reason = &entry.Reason
	}

	if err := w.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("audit_worker: persist %s for session %s: %w",
			entry.Action, entry.SessionID, err)
	}

	log.Info().
		Str("action", string(entry.Action)).
		Str("session_id", entry.SessionID.String()).
		Msg("audit_worker: event persisted")
	return nil
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
