package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

const recordColumns = `id, kind, amount, event_date, description, status, link,
	moved_from, entity_hint, entity_id, manual_override, payment_date, tax_lines, source`

// SaveRecord persists a new financial record and its create audit entry in
// one transaction. The store assigns the id when the caller left it empty;
// the assigned audit entry id is returned.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *model.FinancialRecord) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateRecord(record); err != nil {
		return "", err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = model.StatusUnmatched
	}
	if record.Source == "" {
		record.Source = model.SourceManual
	}

	taxLines, err := marshalTaxLines(record.TaxLines)
	if err != nil {
		return "", err
	}

	auditID := uuid.NewString()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (
				id, kind, amount, event_date, description, status, link,
				moved_from, entity_hint, entity_id, manual_override,
				payment_date, tax_lines, source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			string(record.Kind),
			record.Amount.String(),
			record.EventDate,
			record.Description,
			string(record.Status),
			record.Link,
			record.MovedFrom,
			record.EntityHint,
			record.EntityID,
			record.ManualOverride,
			nullableTime(record.PaymentDate),
			taxLines,
			string(record.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
		}

		return appendAuditTx(ctx, tx, &model.AuditEntry{
			ID:        auditID,
			Entity:    string(record.Kind),
			EntityID:  record.ID,
			Action:    model.AuditCreate,
			After:     string(record.Status),
			Timestamp: time.Now().UTC(),
			Source:    record.Source,
			Notes:     record.Description,
		})
	})
	if err != nil {
		return "", err
	}
	return auditID, nil
}

// GetRecord retrieves a single record by id.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*model.FinancialRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM records WHERE id = ?", recordColumns), id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns records matching the filter in insertion order, which
// keeps matching passes deterministic across runs over the same snapshot.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter service.RecordFilter) ([]model.FinancialRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM records", recordColumns)
	var clauses []string
	var args []any

	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MissingEntity {
		clauses = append(clauses, "(entity_id IS NULL OR entity_id = '')", "manual_override = 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FinancialRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// TransitionStatus applies a conditional status update: the write succeeds
// only if the record still has the expected prior status, and the matching
// audit entry lands in the same transaction. A lost race surfaces as
// common.ErrStoreConflict and is the caller's cue to soft-skip.
func (s *SQLiteStorage) TransitionStatus(ctx context.Context, transition service.StatusTransition) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateTransition(transition); err != nil {
		return "", err
	}

	auditID := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE records
			SET status = ?,
			    link = CASE WHEN ? != '' THEN ? ELSE link END,
			    payment_date = COALESCE(?, payment_date)
			WHERE id = ? AND status = ?
		`,
			string(transition.To),
			transition.Link, transition.Link,
			nullableTime(transition.PaymentDate),
			transition.RecordID,
			string(transition.From),
		)
		if err != nil {
			return fmt.Errorf("failed to transition record %s: %w", transition.RecordID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return s.conflictOrMissing(ctx, tx, transition.RecordID)
		}

		var kind string
		if err := tx.QueryRowContext(ctx, "SELECT kind FROM records WHERE id = ?", transition.RecordID).Scan(&kind); err != nil {
			return fmt.Errorf("failed to read record kind: %w", err)
		}

		return appendAuditTx(ctx, tx, &model.AuditEntry{
			ID:        auditID,
			Entity:    kind,
			EntityID:  transition.RecordID,
			Action:    model.AuditUpdate,
			Before:    string(transition.From),
			After:     string(transition.To),
			Timestamp: time.Now().UTC(),
			Source:    transition.Source,
			Notes:     transition.Notes,
		})
	})
	if err != nil {
		return "", err
	}
	return auditID, nil
}

// SetEntityLink fills a record's entity foreign key. The update is
// conditional on the key still being empty and manual_override unset, so
// manually-set links are never overwritten.
func (s *SQLiteStorage) SetEntityLink(ctx context.Context, recordID, entityID string, source model.RecordSource) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(recordID, "recordID"); err != nil {
		return "", err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return "", err
	}

	auditID := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE records SET entity_id = ?
			WHERE id = ? AND (entity_id IS NULL OR entity_id = '') AND manual_override = 0
		`, entityID, recordID)
		if err != nil {
			return fmt.Errorf("failed to link record %s: %w", recordID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return s.conflictOrMissing(ctx, tx, recordID)
		}

		var kind string
		if err := tx.QueryRowContext(ctx, "SELECT kind FROM records WHERE id = ?", recordID).Scan(&kind); err != nil {
			return fmt.Errorf("failed to read record kind: %w", err)
		}

		return appendAuditTx(ctx, tx, &model.AuditEntry{
			ID:        auditID,
			Entity:    kind,
			EntityID:  recordID,
			Action:    model.AuditLink,
			After:     entityID,
			Timestamp: time.Now().UTC(),
			Source:    source,
			Notes:     "auto-linked by natural key",
		})
	})
	if err != nil {
		return "", err
	}
	return auditID, nil
}

// conflictOrMissing distinguishes "someone else got there first" from
// "record does not exist" after a conditional update touched zero rows.
func (s *SQLiteStorage) conflictOrMissing(ctx context.Context, tx *sql.Tx, recordID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM records WHERE id = ?", recordID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record %s: %w", recordID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check record %s: %w", recordID, err)
	}
	return fmt.Errorf("record %s: %w", recordID, common.ErrStoreConflict)
}

// scanner abstracts sql.Row and sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.FinancialRecord, error) {
	var (
		record      model.FinancialRecord
		kind        string
		amount      string
		status      string
		source      string
		link        sql.NullString
		movedFrom   sql.NullString
		entityHint  sql.NullString
		entityID    sql.NullString
		description sql.NullString
		paymentDate sql.NullTime
		taxLines    sql.NullString
	)

	err := row.Scan(
		&record.ID, &kind, &amount, &record.EventDate, &description, &status,
		&link, &movedFrom, &entityHint, &entityID, &record.ManualOverride,
		&paymentDate, &taxLines, &source,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = model.RecordKind(kind)
	record.Status = model.RecordStatus(status)
	record.Source = model.RecordSource(source)
	record.Description = description.String
	record.Link = link.String
	record.MovedFrom = movedFrom.String
	record.EntityHint = entityHint.String
	record.EntityID = entityID.String
	if paymentDate.Valid {
		paid := paymentDate.Time
		record.PaymentDate = &paid
	}

	record.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("record %s has malformed amount %q: %w", record.ID, amount, err)
	}

	if taxLines.Valid && taxLines.String != "" {
		if err := json.Unmarshal([]byte(taxLines.String), &record.TaxLines); err != nil {
			return nil, fmt.Errorf("record %s has malformed tax lines: %w", record.ID, err)
		}
	}

	return &record, nil
}

func marshalTaxLines(lines []model.TaxLineItem) (string, error) {
	if len(lines) == 0 {
		return "", nil
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tax lines: %w", err)
	}
	return string(data), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
