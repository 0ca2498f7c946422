package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entities that carry an audit trail. Every journal posting, reversal and
// document transition lands in audit_logs against one of these.
const (
	EntityJournalEntry   = "journal_entry"
	EntitySourceDocument = "source_document"
)

// AuditLog is one immutable trail record: which actor moved which entry or
// document, with the posting context (doc type, amounts, entry id) in Meta.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to the audit_logs table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the trail record. The table is append-only; rows are never
// updated or deleted once written.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID <= 0 {
		return errors.New("audit log requires an action, entity and entity id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, log.At)
	return err
}
