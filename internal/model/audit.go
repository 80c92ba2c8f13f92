package model

import "time"

// AuditEvent describes one content or session mutation. Events are emitted
// fire-and-forget; a failure to record one never blocks the mutation that
// produced it.
type AuditEvent struct {
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Diff       map[string]any `json:"diff,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
