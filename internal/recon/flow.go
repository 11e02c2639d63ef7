// Package recon implements the reconciliation flows: cash-to-bank
// migration, tax-filing settlement against bank statements, and entity
// auto-linking. All three share one shape: scan unmatched records, match
// against the opposite pool, transition both sides with one audit entry
// each, and report counts.
package recon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// Flow is one runnable reconciliation pass. Runs are batch-bounded and
// idempotent: records that already transitioned are excluded from the scan
// pool by construction, so re-running over an unchanged store matches
// nothing new.
type Flow interface {
	Name() string
	Run(ctx context.Context) (*service.FlowReport, error)
}

// recordOutcome folds a per-record error into the report: conflicts are
// soft skips, validation and not-found are counted errors, nothing
// per-record stops the pass.
func recordOutcome(report *service.FlowReport, flow, recordID string, err error) {
	switch {
	case errors.Is(err, common.ErrStoreConflict):
		report.Skipped++
		slog.Debug("record already handled by another pass",
			"flow", flow, "record", recordID)
	case common.IsValidation(err), errors.Is(err, common.ErrNotFound):
		report.Errors++
		common.LogError(err, "skipping record", common.Fields{
			"flow": flow, "record": recordID,
		})
	default:
		report.Errors++
		common.LogError(err, "record operation failed", common.Fields{
			"flow": flow, "record": recordID,
		})
	}
}

// canceled reports whether the pass should stop before starting the next
// record's read-match-write unit.
func canceled(ctx context.Context, flow string) bool {
	if ctx.Err() != nil {
		slog.Info("pass canceled, stopping after current record", "flow", flow)
		return true
	}
	return false
}

// removeRecord drops a consumed candidate from the in-memory pool so a
// single pass can never hand the same record to two queries.
func removeRecord(pool []model.FinancialRecord, id string) []model.FinancialRecord {
	for i := range pool {
		if pool[i].ID == id {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}

// findByID returns the pool record with the given id.
func findByID(pool []model.FinancialRecord, id string) (*model.FinancialRecord, bool) {
	for i := range pool {
		if pool[i].ID == id {
			return &pool[i], true
		}
	}
	return nil, false
}
