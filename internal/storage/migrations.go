package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Financial records and entities",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS records (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					amount TEXT NOT NULL,
					event_date DATETIME NOT NULL,
					description TEXT,
					status TEXT NOT NULL DEFAULT 'unmatched',
					link TEXT,
					moved_from TEXT,
					entity_hint TEXT,
					entity_id TEXT,
					manual_override BOOLEAN NOT NULL DEFAULT 0,
					payment_date DATETIME,
					tax_lines TEXT,
					source TEXT NOT NULL DEFAULT 'manual',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_records_kind_status ON records(kind, status)`,
				`CREATE INDEX idx_records_entity ON records(entity_id)`,

				`CREATE TABLE IF NOT EXISTS entities (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					name TEXT NOT NULL,
					natural_key TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_entities_kind ON entities(kind)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Classified documents, rules and learned associations",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					subject TEXT,
					sender TEXT,
					body_excerpt TEXT,
					category TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					matched_rule TEXT,
					processed BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_documents_processed ON documents(processed)`,

				`CREATE TABLE IF NOT EXISTS corrections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					document_id TEXT NOT NULL,
					from_category TEXT NOT NULL,
					to_category TEXT NOT NULL,
					corrected_by TEXT,
					corrected_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (document_id) REFERENCES documents(id)
				)`,
				`CREATE INDEX idx_corrections_document ON corrections(document_id)`,

				`CREATE TABLE IF NOT EXISTS classification_rules (
					name TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					target_section TEXT,
					target_collection TEXT,
					keywords TEXT,
					subject_patterns TEXT,
					sender_patterns TEXT,
					action TEXT,
					priority INTEGER NOT NULL DEFAULT 0,
					position INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS keyword_associations (
					keyword TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Append-only audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_entries (
					id TEXT PRIMARY KEY,
					entity TEXT NOT NULL,
					entity_id TEXT NOT NULL,
					action TEXT NOT NULL,
					before TEXT,
					after TEXT,
					timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
					source TEXT,
					notes TEXT
				)`,
				`CREATE INDEX idx_audit_entity ON audit_entries(entity, entity_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
			}
			// PRAGMA does not support placeholders.
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
				return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}
