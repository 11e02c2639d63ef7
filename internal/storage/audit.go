package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backoffice/internal/model"
)

// AppendAudit writes one entry to the append-only audit log. There is no
// update or delete path anywhere in this package.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return appendAuditTx(ctx, tx, entry)
	})
}

// appendAuditTx inserts an audit entry inside a caller-owned transaction so
// state mutations and their audit trail commit together.
func appendAuditTx(ctx context.Context, tx *sql.Tx, entry *model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_entries (id, entity, entity_id, action, before, after, timestamp, source, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Entity, entry.EntityID, string(entry.Action),
		entry.Before, entry.After, entry.Timestamp, string(entry.Source), entry.Notes)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns the audit trail for one entity, oldest first.
// Empty entityID returns every entry for the entity type.
func (s *SQLiteStorage) ListAuditEntries(ctx context.Context, entity, entityID string) ([]model.AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, entity, entity_id, action, before, after, timestamp, source, notes
		FROM audit_entries WHERE entity = ?`
	args := []any{entity}
	if entityID != "" {
		query += " AND entity_id = ?"
		args = append(args, entityID)
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditEntry
	for rows.Next() {
		var (
			entry  model.AuditEntry
			action string
			source sql.NullString
			before sql.NullString
			after  sql.NullString
			notes  sql.NullString
		)
		err := rows.Scan(&entry.ID, &entry.Entity, &entry.EntityID, &action,
			&before, &after, &entry.Timestamp, &source, &notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = model.AuditAction(action)
		entry.Source = model.RecordSource(source.String)
		entry.Before = before.String
		entry.After = after.String
		entry.Notes = notes.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
