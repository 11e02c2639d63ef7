// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerline/backoffice/internal/model"
)

// RecordFilter defines filtering options for record queries. A zero Limit
// means no bound; flows always pass their batch bound.
type RecordFilter struct {
	Kind          model.RecordKind
	Status        model.RecordStatus
	MissingEntity bool
	Limit         int
}

// StatusTransition is one conditional record-status update. The store
// applies it only if the record's current status equals From, and writes the
// matching audit entry in the same storage transaction so a transition is a
// single terminal write.
type StatusTransition struct {
	RecordID    string
	From        model.RecordStatus
	To          model.RecordStatus
	Link        string
	PaymentDate *time.Time
	Source      model.RecordSource
	Notes       string
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Record operations
	SaveRecord(ctx context.Context, record *model.FinancialRecord) (auditID string, err error)
	GetRecord(ctx context.Context, id string) (*model.FinancialRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.FinancialRecord, error)
	// TransitionStatus fails with common.ErrStoreConflict when another
	// process already moved the record past transition.From.
	TransitionStatus(ctx context.Context, transition StatusTransition) (auditID string, err error)
	SetEntityLink(ctx context.Context, recordID, entityID string, source model.RecordSource) (auditID string, err error)

	// Entity operations
	SaveEntity(ctx context.Context, entity *model.Entity) error
	ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error)
	LinkStats(ctx context.Context, kind model.RecordKind) (*LinkStats, error)

	// Document operations
	SaveDocument(ctx context.Context, doc *model.ClassifiedDocument) error
	GetDocument(ctx context.Context, id string) (*model.ClassifiedDocument, error)
	ListUnprocessedDocuments(ctx context.Context, limit int) ([]model.ClassifiedDocument, error)
	MarkDocumentProcessed(ctx context.Context, id string) error
	AppendCorrection(ctx context.Context, docID string, correction model.Correction) error

	// Classification rule operations
	ListRules(ctx context.Context) ([]model.ClassificationRule, error)
	SaveRule(ctx context.Context, rule *model.ClassificationRule) error
	ListKeywordAssociations(ctx context.Context) ([]model.KeywordAssociation, error)
	UpsertKeywordAssociation(ctx context.Context, keyword, category string) error

	// Audit log (append-only)
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	ListAuditEntries(ctx context.Context, entity, entityID string) ([]model.AuditEntry, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// FlowReport summarizes one reconciliation pass. It is returned even on
// partial failure so a caller can tell "ran clean" from "ran with skips".
type FlowReport struct {
	Flow       string
	AuditIDs   []string
	Scanned    int
	Matched    int
	Reconciled int
	Skipped    int
	Errors     int
}

// LinkStats is the relationship health check for one dependent record kind.
type LinkStats struct {
	Kind             model.RecordKind
	Total            int
	Linked           int
	Unlinked         int
	PercentageLinked float64
}
