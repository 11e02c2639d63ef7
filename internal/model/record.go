// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind identifies which collection a financial record belongs to.
type RecordKind string

// Record kind constants.
const (
	KindCashEntry    RecordKind = "cash_entry"
	KindBankEntry    RecordKind = "bank_entry"
	KindBankMovement RecordKind = "bank_movement"
	KindTaxFiling    RecordKind = "tax_filing"
	KindInvoice      RecordKind = "invoice"
	KindCheck        RecordKind = "check"
	KindViolation    RecordKind = "violation"
)

// RecordStatus tracks where a record sits in the reconciliation lifecycle.
type RecordStatus string

// Record status constants. Statuses only advance forward; Superseded is
// terminal and reached only by migration flows.
const (
	StatusUnmatched  RecordStatus = "unmatched"
	StatusMatched    RecordStatus = "matched"
	StatusReconciled RecordStatus = "reconciled"
	StatusSuperseded RecordStatus = "superseded"
)

// statusRank orders statuses along the forward-only state machine.
var statusRank = map[RecordStatus]int{
	StatusUnmatched:  0,
	StatusMatched:    1,
	StatusReconciled: 2,
}

// CanTransition reports whether moving from s to next is a legal advance.
// Matched is an optional intermediate step, so unmatched may jump straight
// to reconciled. Superseded is only reachable from a non-terminal status.
func (s RecordStatus) CanTransition(next RecordStatus) bool {
	if s == StatusSuperseded || s == StatusReconciled {
		return false
	}
	if next == StatusSuperseded {
		return true
	}
	from, okFrom := statusRank[s]
	to, okTo := statusRank[next]
	return okFrom && okTo && to > from
}

// IsTerminal reports whether no further transitions are allowed.
func (s RecordStatus) IsTerminal() bool {
	return s == StatusReconciled || s == StatusSuperseded
}

// RecordSource records the provenance of a financial record.
type RecordSource string

// Record source constants.
const (
	SourceManual     RecordSource = "manual"
	SourceImport     RecordSource = "import"
	SourceAutoRepair RecordSource = "auto_repair"
	SourceScheduler  RecordSource = "scheduler"
)

// FinancialRecord is the generic shape shared by cash entries, bank
// movements, tax filings, invoices and checks. Outflows carry a negative
// amount, inflows a positive one.
type FinancialRecord struct {
	EventDate      time.Time
	PaymentDate    *time.Time
	ID             string
	Description    string
	Link           string
	MovedFrom      string
	EntityHint     string
	EntityID       string
	Kind           RecordKind
	Status         RecordStatus
	Source         RecordSource
	TaxLines       []TaxLineItem
	Amount         decimal.Decimal
	ManualOverride bool
}

// TotalDue returns the amount owed by a filing: the stored amount when
// present, otherwise the sum of its tributo line items.
func (r *FinancialRecord) TotalDue() decimal.Decimal {
	if !r.Amount.IsZero() || len(r.TaxLines) == 0 {
		return r.Amount
	}
	total := decimal.Zero
	for _, line := range r.TaxLines {
		total = total.Add(line.Amount)
	}
	return total
}

// IsOutflow reports whether the record represents money leaving the books.
func (r *FinancialRecord) IsOutflow() bool {
	return r.Amount.IsNegative()
}

// TaxLineItem is a single tributo line on a unified tax-payment form.
type TaxLineItem struct {
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// MatchCandidate is the transient result of a fuzzy match. It is produced
// by the match engine, consumed immediately by the calling flow, and never
// persisted.
type MatchCandidate struct {
	CandidateID    string
	AmountDelta    decimal.Decimal
	Score          float64
	TextSimilarity float64
	DateDeltaDays  int
	ExactAmount    bool
}
