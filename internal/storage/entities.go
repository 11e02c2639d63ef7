package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// SaveEntity persists a business entity, assigning an id when empty.
func (s *SQLiteStorage) SaveEntity(ctx context.Context, entity *model.Entity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntity(entity); err != nil {
		return err
	}

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (id, kind, name, natural_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, natural_key = excluded.natural_key
	`, entity.ID, string(entity.Kind), entity.Name, entity.NaturalKey)
	if err != nil {
		return fmt.Errorf("failed to save entity %s: %w", entity.ID, err)
	}
	return nil
}

// ListEntities returns all entities of a kind in insertion order.
func (s *SQLiteStorage) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, natural_key, created_at
		FROM entities WHERE kind = ? ORDER BY rowid
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []model.Entity
	for rows.Next() {
		var entity model.Entity
		var entityKind string
		if err := rows.Scan(&entity.ID, &entityKind, &entity.Name, &entity.NaturalKey, &entity.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entity.Kind = model.EntityKind(entityKind)
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// LinkStats aggregates the relationship health check for one record kind.
func (s *SQLiteStorage) LinkStats(ctx context.Context, kind model.RecordKind) (*service.LinkStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	stats := &service.LinkStats{Kind: kind}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN entity_id IS NOT NULL AND entity_id != '' THEN 1 ELSE 0 END), 0)
		FROM records WHERE kind = ?
	`, string(kind)).Scan(&stats.Total, &stats.Linked)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate link stats: %w", err)
	}

	stats.Unlinked = stats.Total - stats.Linked
	if stats.Total > 0 {
		stats.PercentageLinked = 100 * float64(stats.Linked) / float64(stats.Total)
	}
	return stats, nil
}
