package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// AuditRepository persists audit events. Only the audit worker writes here;
// request paths never touch this table directly.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert stores one audit event.
func (r *AuditRepository) Insert(ctx context.Context, e *model.AuditEvent) error {
	var diffJSON []byte
	if e.Diff != nil {
		var err error
		diffJSON, err = json.Marshal(e.Diff)
		if err != nil {
			return fmt.Errorf("marshal diff: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (actor, action, entity_type, entity_id, diff, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Actor, e.Action, e.EntityType, e.EntityID, diffJSON, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
