package recon

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerline/backoffice/internal/match"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// TaxBankFlow reconciles unpaid tax filings against bank movements. The
// movement pool is pre-filtered by agency keywords on the description, in
// addition to the amount/date tolerances; on match both sides are marked
// reconciled and the filing's payment date is stamped from the movement, so
// neither can be matched again.
type TaxBankFlow struct {
	store       service.Storage
	matchCfg    match.Config
	source      model.RecordSource
	agencyTerms []string
	batchSize   int
}

// NewTaxBankFlow creates the tax-filing reconciliation flow. agencyTerms
// are the case-insensitive description keywords that identify tax-agency
// payments in the bank statement.
func NewTaxBankFlow(store service.Storage, matchCfg match.Config, agencyTerms []string, batchSize int, source model.RecordSource) *TaxBankFlow {
	return &TaxBankFlow{
		store:       store,
		matchCfg:    matchCfg,
		agencyTerms: agencyTerms,
		batchSize:   batchSize,
		source:      source,
	}
}

// Name implements Flow.
func (f *TaxBankFlow) Name() string { return "tax-bank" }

// Run executes one batch-bounded pass.
func (f *TaxBankFlow) Run(ctx context.Context) (*service.FlowReport, error) {
	report := &service.FlowReport{Flow: f.Name()}

	filings, err := f.store.ListRecords(ctx, service.RecordFilter{
		Kind:   model.KindTaxFiling,
		Status: model.StatusUnmatched,
		Limit:  f.batchSize,
	})
	if err != nil {
		return report, fmt.Errorf("scanning tax filings: %w", err)
	}

	movements, err := f.store.ListRecords(ctx, service.RecordFilter{
		Kind:   model.KindBankMovement,
		Status: model.StatusUnmatched,
	})
	if err != nil {
		return report, fmt.Errorf("loading bank movement pool: %w", err)
	}
	pool := f.filterByAgencyTerms(movements)

	for i := range filings {
		if canceled(ctx, f.Name()) {
			break
		}
		filing := &filings[i]
		report.Scanned++

		total := filing.TotalDue()
		if total.IsZero() {
			continue // nothing due, nothing to reconcile
		}

		// Movements record the payment as an outflow; sign invariance in
		// the match config absorbs the convention difference.
		query := *filing
		query.Amount = total

		candidate, err := match.FindBestMatch(&query, pool, f.matchCfg)
		if err != nil {
			recordOutcome(report, f.Name(), filing.ID, err)
			continue
		}
		if candidate == nil {
			continue
		}

		movement, ok := findByID(pool, candidate.CandidateID)
		if !ok {
			continue
		}

		if err := f.settle(ctx, report, filing, movement); err != nil {
			recordOutcome(report, f.Name(), filing.ID, err)
			continue
		}

		pool = removeRecord(pool, movement.ID)
		report.Matched++
		report.Reconciled++
	}

	return report, nil
}

// filterByAgencyTerms keeps only movements whose description contains at
// least one agency keyword. An empty term list disables the filter.
func (f *TaxBankFlow) filterByAgencyTerms(movements []model.FinancialRecord) []model.FinancialRecord {
	if len(f.agencyTerms) == 0 {
		return movements
	}
	var out []model.FinancialRecord
	for _, m := range movements {
		description := strings.ToLower(m.Description)
		for _, term := range f.agencyTerms {
			if term != "" && strings.Contains(description, strings.ToLower(term)) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// settle marks both sides reconciled, stamping the filing's payment date
// from the movement.
func (f *TaxBankFlow) settle(ctx context.Context, report *service.FlowReport, filing, movement *model.FinancialRecord) error {
	paid := movement.EventDate

	filingAudit, err := f.store.TransitionStatus(ctx, service.StatusTransition{
		RecordID:    filing.ID,
		From:        model.StatusUnmatched,
		To:          model.StatusReconciled,
		Link:        movement.ID,
		PaymentDate: &paid,
		Source:      f.source,
		Notes:       "matched tax payment in bank statement",
	})
	if err != nil {
		return err
	}
	report.AuditIDs = append(report.AuditIDs, filingAudit)

	movementAudit, err := f.store.TransitionStatus(ctx, service.StatusTransition{
		RecordID: movement.ID,
		From:     model.StatusUnmatched,
		To:       model.StatusReconciled,
		Link:     filing.ID,
		Source:   f.source,
		Notes:    "settles tax filing " + filing.ID,
	})
	if err != nil {
		return err
	}
	report.AuditIDs = append(report.AuditIDs, movementAudit)

	return nil
}
