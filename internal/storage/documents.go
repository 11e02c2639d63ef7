package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
)

// SaveDocument persists a classified document.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.ClassifiedDocument) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, subject, sender, body_excerpt, category, confidence, matched_rule, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Subject, doc.Sender, doc.BodyExcerpt, doc.Category, doc.Confidence, doc.MatchedRule, doc.Processed, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document with its full correction history.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*model.ClassifiedDocument, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var doc model.ClassifiedDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, sender, body_excerpt, category, confidence, matched_rule, processed, created_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Subject, &doc.Sender, &doc.BodyExcerpt, &doc.Category,
		&doc.Confidence, &doc.MatchedRule, &doc.Processed, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_category, to_category, corrected_by, corrected_at
		FROM corrections WHERE document_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c model.Correction
		var by sql.NullString
		if err := rows.Scan(&c.FromCategory, &c.ToCategory, &by, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		c.By = by.String
		doc.Corrections = append(doc.Corrections, c)
	}
	return &doc, rows.Err()
}

// ListUnprocessedDocuments returns documents awaiting downstream extraction.
func (s *SQLiteStorage) ListUnprocessedDocuments(ctx context.Context, limit int) ([]model.ClassifiedDocument, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, subject, sender, body_excerpt, category, confidence, matched_rule, processed, created_at
		FROM documents WHERE processed = 0 ORDER BY rowid`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.ClassifiedDocument
	for rows.Next() {
		var doc model.ClassifiedDocument
		if err := rows.Scan(&doc.ID, &doc.Subject, &doc.Sender, &doc.BodyExcerpt, &doc.Category,
			&doc.Confidence, &doc.MatchedRule, &doc.Processed, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkDocumentProcessed flips the processed flag once a downstream step
// consumed the document.
func (s *SQLiteStorage) MarkDocumentProcessed(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE documents SET processed = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark document %s processed: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// AppendCorrection records a manual category override: the correction row
// and the document's new category are written in one transaction. History
// is append-only.
func (s *SQLiteStorage) AppendCorrection(ctx context.Context, docID string, correction model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(docID, "docID"); err != nil {
		return err
	}
	if err := validateString(correction.ToCategory, "toCategory"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE documents SET category = ? WHERE id = ?",
			correction.ToCategory, docID)
		if err != nil {
			return fmt.Errorf("failed to update document %s: %w", docID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("document %s: %w", docID, common.ErrNotFound)
		}

		at := correction.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO corrections (document_id, from_category, to_category, corrected_by, corrected_at)
			VALUES (?, ?, ?, ?, ?)
		`, docID, correction.FromCategory, correction.ToCategory, correction.By, at)
		if err != nil {
			return fmt.Errorf("failed to insert correction: %w", err)
		}
		return nil
	})
}
