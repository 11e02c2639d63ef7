package recon

import (
	"context"
	"fmt"

	"github.com/ledgerline/backoffice/internal/match"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// cashBankRationale is recorded on every migrated entry.
const cashBankRationale = "found corresponding payment in bank statement"

// CashBankFlow migrates cash-ledger outflows that actually settled through
// the bank: for each unmatched outflow CashEntry with a matching unmatched
// BankMovement, it creates a bank-backed entry carrying the original fields
// plus a moved_from link, and marks the CashEntry superseded. Superseded
// entries are never deleted, preserving the audit trail.
type CashBankFlow struct {
	store     service.Storage
	matchCfg  match.Config
	source    model.RecordSource
	batchSize int
}

// NewCashBankFlow creates the cash-to-bank migration flow.
func NewCashBankFlow(store service.Storage, matchCfg match.Config, batchSize int, source model.RecordSource) *CashBankFlow {
	return &CashBankFlow{
		store:     store,
		matchCfg:  matchCfg,
		batchSize: batchSize,
		source:    source,
	}
}

// Name implements Flow.
func (f *CashBankFlow) Name() string { return "cash-bank" }

// Run executes one batch-bounded pass.
func (f *CashBankFlow) Run(ctx context.Context) (*service.FlowReport, error) {
	report := &service.FlowReport{Flow: f.Name()}

	entries, err := f.store.ListRecords(ctx, service.RecordFilter{
		Kind:   model.KindCashEntry,
		Status: model.StatusUnmatched,
		Limit:  f.batchSize,
	})
	if err != nil {
		return report, fmt.Errorf("scanning cash entries: %w", err)
	}

	pool, err := f.store.ListRecords(ctx, service.RecordFilter{
		Kind:   model.KindBankMovement,
		Status: model.StatusUnmatched,
	})
	if err != nil {
		return report, fmt.Errorf("loading bank movement pool: %w", err)
	}

	for i := range entries {
		if canceled(ctx, f.Name()) {
			break
		}
		entry := &entries[i]
		report.Scanned++

		if !entry.IsOutflow() {
			continue
		}

		candidate, err := match.FindBestMatch(entry, pool, f.matchCfg)
		if err != nil {
			recordOutcome(report, f.Name(), entry.ID, err)
			continue
		}
		if candidate == nil {
			continue // stays unmatched, retryable on the next run
		}

		movement, ok := findByID(pool, candidate.CandidateID)
		if !ok {
			continue
		}

		if err := f.migrate(ctx, report, entry, movement); err != nil {
			recordOutcome(report, f.Name(), entry.ID, err)
			continue
		}

		pool = removeRecord(pool, movement.ID)
		report.Matched++
	}

	return report, nil
}

// migrate performs the create-supersede-claim sequence for one matched
// pair. Each step is a single terminal write; if the run dies between
// steps, the next pass's exclusion-by-status repairs the remainder.
func (f *CashBankFlow) migrate(ctx context.Context, report *service.FlowReport, entry, movement *model.FinancialRecord) error {
	moved := model.FinancialRecord{
		Kind:        model.KindBankEntry,
		Amount:      entry.Amount,
		EventDate:   entry.EventDate,
		Description: entry.Description,
		Status:      model.StatusMatched,
		Link:        movement.ID,
		MovedFrom:   entry.ID,
		EntityHint:  entry.EntityHint,
		EntityID:    entry.EntityID,
		Source:      model.SourceAutoRepair,
	}
	createID, err := f.store.SaveRecord(ctx, &moved)
	if err != nil {
		return fmt.Errorf("creating bank-backed entry: %w", err)
	}
	report.AuditIDs = append(report.AuditIDs, createID)

	supersedeID, err := f.store.TransitionStatus(ctx, service.StatusTransition{
		RecordID: entry.ID,
		From:     model.StatusUnmatched,
		To:       model.StatusSuperseded,
		Link:     moved.ID,
		Source:   f.source,
		Notes:    cashBankRationale,
	})
	if err != nil {
		return err
	}
	report.AuditIDs = append(report.AuditIDs, supersedeID)

	claimID, err := f.store.TransitionStatus(ctx, service.StatusTransition{
		RecordID: movement.ID,
		From:     model.StatusUnmatched,
		To:       model.StatusMatched,
		Link:     moved.ID,
		Source:   f.source,
		Notes:    "claimed by cash-to-bank migration",
	})
	if err != nil {
		return err
	}
	report.AuditIDs = append(report.AuditIDs, claimID)

	return nil
}
