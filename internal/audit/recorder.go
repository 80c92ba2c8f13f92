// Package audit emits mutation events on a best-effort side channel. A
// recording failure is logged and swallowed; it must never affect the
// transactional outcome of the mutation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Recorder pushes audit events onto the Redis queue consumed by the audit
// worker.
type Recorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRecorder creates a new Recorder.
func NewRecorder(rdb *redis.Client, log zerolog.Logger) *Recorder {
	return &Recorder{
		rdb: rdb,
		log: log.With().Str("component", "audit_recorder").Logger(),
	}
}

// Record enqueues one event, fire-and-forget.
func (r *Recorder) Record(ctx context.Context, actor, action, entityType, entityID string, diff map[string]any) {
	event := model.AuditEvent{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Diff:       diff,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).Str("action", action).Msg("Marshal audit event failed")
		return
	}

	if err := r.rdb.RPush(ctx, config.QueueKey.AuditEventQueue(), payload).Err(); err != nil {
		r.log.Warn().Err(err).Str("action", action).Msg("Audit enqueue failed, event dropped")
	}
}
