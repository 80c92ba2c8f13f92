package config

import "fmt"

type QueueKeyStruct struct{}

// AuditEventQueue is the Redis list audit events are pushed onto by the
// recorder and consumed from by the audit worker.
func (r *QueueKeyStruct) AuditEventQueue() string {
	return "audit_events_queue"
}

// SessionRemainingKey returns the cache key holding the last reported
// countdown for a practice session.
func (r *QueueKeyStruct) SessionRemainingKey(sessionID string) string {
	return fmt.Sprintf("session:%s:remaining", sessionID)
}

var QueueKey = &QueueKeyStruct{}
