package worker

// retry_cron.go
// Background goroutine that periodically re-drives dead-lettered jobs back
// into their source queues. Audit jobs are always eligible (the insert is
// idempotent); alert jobs wait for the SMTP circuit breaker to leave the
// open state first. Entries past the attempt limit are parked.

import (
	"context"
	"encoding/json"
	"time"

	"tillpoint/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxJobAttempts counts the original delivery plus retries.
	MaxJobAttempts = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB     *redis.Client
	AlertCB *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// moves eligible DLQ entries back to their queues. It respects the context
// for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				redriveQueue(ctx, cfg.RDB, QueueAudit)
				// Skip alerts while the breaker is open, re-enqueueing would
				// just bounce them straight back to the DLQ.
				if cfg.AlertCB.State() != infra.CBOpen {
					redriveQueue(ctx, cfg.RDB, QueueAlert)
				} else {
					log.Debug().Msg("retry_cron: smtp breaker open, skipping alert redrive")
				}
			}
		}
	}()
}

func redriveQueue(ctx context.Context, rdb *redis.Client, queue string) {
	dlqKey := DLQPrefix + queue

	for i := 0; i < retryBatchSize; i++ {
		raw, err := rdb.RPop(ctx, dlqKey).Result()
		if err != nil {
			return // empty queue or redis error; next tick retries
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: unreadable DLQ entry, parking")
			_ = rdb.LPush(ctx, ParkedPrefix+queue, raw).Err()
			continue
		}

		if entry.Attempts >= MaxJobAttempts {
			if err := rdb.LPush(ctx, ParkedPrefix+queue, raw).Err(); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to park entry")
				continue
			}
			log.Error().
				Str("queue", queue).
				Str("job_type", entry.JobType).
				Int("attempts", entry.Attempts).
				Str("last_error", entry.Reason).
				Msg("retry_cron: max attempts exceeded, parked for manual inspection")
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload, Attempts: entry.Attempts}
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to marshal job")
			continue
		}
		if err := rdb.LPush(ctx, queue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to re-enqueue job")
			continue
		}

		log.Info().
			Str("queue", queue).
			Str("job_type", entry.JobType).
			Int("attempts", entry.Attempts).
			Msg("retry_cron: job re-enqueued from DLQ")
	}
}
