package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord validates a financial record before persisting.
func validateRecord(record *model.FinancialRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidRecord)
	}
	if record.EventDate.IsZero() {
		return fmt.Errorf("%w: missing event date", ErrInvalidRecord)
	}
	return nil
}

// validateEntity validates an entity before persisting.
func validateEntity(entity *model.Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity", ErrNilParameter)
	}
	if entity.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidEntity)
	}
	if strings.TrimSpace(entity.Name) == "" && strings.TrimSpace(entity.NaturalKey) == "" {
		return fmt.Errorf("%w: needs a name or natural key", ErrInvalidEntity)
	}
	return nil
}

// validateDocument validates a classified document before persisting.
func validateDocument(doc *model.ClassifiedDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if strings.TrimSpace(doc.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidDocument)
	}
	if doc.Confidence < 0 || doc.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidDocument)
	}
	return nil
}

// validateRule validates a classification rule before persisting.
func validateRule(rule *model.ClassificationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	return nil
}

// validateTransition checks the transition request against the forward-only
// state machine before touching the database.
func validateTransition(t service.StatusTransition) error {
	if t.RecordID == "" {
		return fmt.Errorf("%w: missing record id", ErrInvalidTransition)
	}
	if !t.From.CanTransition(t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	return nil
}
