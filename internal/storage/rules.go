package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ledgerline/backoffice/internal/model"
)

// ListRules returns the persisted classification rules in declaration
// order. The classifier re-sorts by priority itself.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, category, target_section, target_collection,
		       keywords, subject_patterns, sender_patterns, action, priority, position
		FROM classification_rules ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassificationRule
	for rows.Next() {
		var (
			rule                               model.ClassificationRule
			section, collection, action       sql.NullString
			keywords, subjectPats, senderPats sql.NullString
		)
		err := rows.Scan(&rule.Name, &rule.Category, &section, &collection,
			&keywords, &subjectPats, &senderPats, &action, &rule.Priority, &rule.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.TargetSection = section.String
		rule.TargetCollection = collection.String
		rule.Action = model.RuleAction(action.String)
		if err := unmarshalStrings(keywords, &rule.Keywords); err != nil {
			return nil, fmt.Errorf("rule %s has malformed keywords: %w", rule.Name, err)
		}
		if err := unmarshalStrings(subjectPats, &rule.SubjectPatterns); err != nil {
			return nil, fmt.Errorf("rule %s has malformed subject patterns: %w", rule.Name, err)
		}
		if err := unmarshalStrings(senderPats, &rule.SenderPatterns); err != nil {
			return nil, fmt.Errorf("rule %s has malformed sender patterns: %w", rule.Name, err)
		}

		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveRule inserts or replaces a classification rule by name.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	keywords, err := marshalStrings(rule.Keywords)
	if err != nil {
		return err
	}
	subjectPats, err := marshalStrings(rule.SubjectPatterns)
	if err != nil {
		return err
	}
	senderPats, err := marshalStrings(rule.SenderPatterns)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO classification_rules
			(name, category, target_section, target_collection, keywords,
			 subject_patterns, sender_patterns, action, priority, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			target_section = excluded.target_section,
			target_collection = excluded.target_collection,
			keywords = excluded.keywords,
			subject_patterns = excluded.subject_patterns,
			sender_patterns = excluded.sender_patterns,
			action = excluded.action,
			priority = excluded.priority,
			position = excluded.position
	`, rule.Name, rule.Category, rule.TargetSection, rule.TargetCollection,
		keywords, subjectPats, senderPats, string(rule.Action), rule.Priority, rule.Position)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.Name, err)
	}
	return nil
}

// ListKeywordAssociations returns the learned keyword-to-category table in
// insertion order.
func (s *SQLiteStorage) ListKeywordAssociations(ctx context.Context) ([]model.KeywordAssociation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT keyword, category, updated_at FROM keyword_associations ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var associations []model.KeywordAssociation
	for rows.Next() {
		var assoc model.KeywordAssociation
		if err := rows.Scan(&assoc.Keyword, &assoc.Category, &assoc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword association: %w", err)
		}
		associations = append(associations, assoc)
	}
	return associations, rows.Err()
}

// UpsertKeywordAssociation records or re-targets one learned keyword. The
// table only ever grows or updates in place; static rules are untouched.
func (s *SQLiteStorage) UpsertKeywordAssociation(ctx context.Context, keyword, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO keyword_associations (keyword, category, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(keyword) DO UPDATE SET category = excluded.category, updated_at = CURRENT_TIMESTAMP
	`, keyword, category)
	if err != nil {
		return fmt.Errorf("failed to upsert keyword association %q: %w", keyword, err)
	}
	return nil
}

func marshalStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(column sql.NullString, target *[]string) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(column.String), target)
}
