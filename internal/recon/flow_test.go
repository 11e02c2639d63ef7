package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/match"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
	"github.com/ledgerline/backoffice/internal/storage"
)

func testStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func saveRecord(t *testing.T, store service.Storage, record *model.FinancialRecord) *model.FinancialRecord {
	t.Helper()
	_, err := store.SaveRecord(context.Background(), record)
	require.NoError(t, err)
	return record
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecordOutcome(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantSkipped int
		wantErrors  int
	}{
		{
			name:        "conflict is a soft skip",
			err:         common.ErrStoreConflict,
			wantSkipped: 1,
		},
		{
			name:       "validation failure is counted",
			err:        common.NewValidationError("amount", "malformed"),
			wantErrors: 1,
		},
		{
			name:       "missing record is counted",
			err:        common.ErrNotFound,
			wantErrors: 1,
		},
		{
			name:       "unexpected failure is counted",
			err:        errors.New("disk full"),
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &service.FlowReport{}
			recordOutcome(report, "test-flow", "record-1", tt.err)
			assert.Equal(t, tt.wantSkipped, report.Skipped)
			assert.Equal(t, tt.wantErrors, report.Errors)
		})
	}
}

func TestCashBankFlow_MigratesMatchedEntry(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	entry := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindCashEntry,
		Amount:      amt("-120.00"),
		EventDate:   day(2025, time.March, 10),
		Description: "Fornitore ABC",
		Source:      model.SourceImport,
	})
	movement := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-120.00"),
		EventDate:   day(2025, time.March, 12),
		Description: "PAGAMENTO FORNITORE ABC SRL",
		Source:      model.SourceImport,
	})

	flow := NewCashBankFlow(store, match.DefaultConfig(), 100, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0, report.Errors)
	assert.Len(t, report.AuditIDs, 3) // create + supersede + claim

	// The cash entry is superseded, pointing at its replacement.
	gotEntry, err := store.GetRecord(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuperseded, gotEntry.Status)
	assert.NotEmpty(t, gotEntry.Link)

	// The replacement is a bank-backed entry carrying the original fields.
	replacement, err := store.GetRecord(ctx, gotEntry.Link)
	require.NoError(t, err)
	assert.Equal(t, model.KindBankEntry, replacement.Kind)
	assert.Equal(t, entry.ID, replacement.MovedFrom)
	assert.Equal(t, movement.ID, replacement.Link)
	assert.True(t, replacement.Amount.Equal(entry.Amount))
	assert.Equal(t, model.StatusMatched, replacement.Status)
	assert.Equal(t, model.SourceAutoRepair, replacement.Source)

	// The bank movement is claimed so no later pass can reuse it.
	gotMovement, err := store.GetRecord(ctx, movement.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMatched, gotMovement.Status)

	// The audit trail records the migration on both sides.
	entryAudit, err := store.ListAuditEntries(ctx, string(model.KindCashEntry), entry.ID)
	require.NoError(t, err)
	require.Len(t, entryAudit, 2)
	assert.Equal(t, model.AuditUpdate, entryAudit[1].Action)
	assert.Equal(t, string(model.StatusSuperseded), entryAudit[1].After)
	assert.Equal(t, cashBankRationale, entryAudit[1].Notes)
}

func TestCashBankFlow_SecondRunMatchesNothing(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindCashEntry,
		Amount:      amt("-120.00"),
		EventDate:   day(2025, time.March, 10),
		Description: "Fornitore ABC",
	})
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-120.00"),
		EventDate:   day(2025, time.March, 12),
		Description: "PAGAMENTO FORNITORE ABC SRL",
	})

	flow := NewCashBankFlow(store, match.DefaultConfig(), 100, model.SourceScheduler)
	first, err := flow.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.Matched)

	second, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Scanned, "superseded entries leave the scan pool")
	assert.Equal(t, 0, second.Matched)
	assert.Equal(t, 0, second.Errors)
}

func TestCashBankFlow_IgnoresInflowsAndUnmatchable(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	inflow := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindCashEntry,
		Amount:      amt("300.00"),
		EventDate:   day(2025, time.March, 10),
		Description: "rimborso cliente",
	})
	lonely := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindCashEntry,
		Amount:      amt("-42.00"),
		EventDate:   day(2025, time.March, 10),
		Description: "cancelleria",
	})
	// Movement outside the date window.
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-42.00"),
		EventDate:   day(2025, time.April, 30),
		Description: "PAGAMENTO CANCELLERIA",
	})

	flow := NewCashBankFlow(store, match.DefaultConfig(), 100, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 0, report.Matched)
	assert.Equal(t, 0, report.Errors, "no match is not an error")

	for _, id := range []string{inflow.ID, lonely.ID} {
		got, err := store.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusUnmatched, got.Status)
	}
}

func TestCashBankFlow_PoolConsumedOncePerPass(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	// Two identical cash entries, one bank movement: only one can migrate.
	for i := 0; i < 2; i++ {
		saveRecord(t, store, &model.FinancialRecord{
			Kind:        model.KindCashEntry,
			Amount:      amt("-75.00"),
			EventDate:   day(2025, time.May, 5),
			Description: "noleggio furgone",
		})
	}
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-75.00"),
		EventDate:   day(2025, time.May, 6),
		Description: "ADDEBITO NOLEGGIO FURGONE",
	})

	flow := NewCashBankFlow(store, match.DefaultConfig(), 100, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)

	unmatched, err := store.ListRecords(ctx, service.RecordFilter{
		Kind:   model.KindCashEntry,
		Status: model.StatusUnmatched,
	})
	require.NoError(t, err)
	assert.Len(t, unmatched, 1, "second entry waits for the next statement import")
}

func TestCashBankFlow_BatchBound(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for i := 0; i < 5; i++ {
		saveRecord(t, store, &model.FinancialRecord{
			Kind:        model.KindCashEntry,
			Amount:      amt("-10.00"),
			EventDate:   day(2025, time.May, 5),
			Description: "spesa minuta",
		})
	}

	flow := NewCashBankFlow(store, match.DefaultConfig(), 2, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned, "pass visits at most batchSize records")
}

func TestTaxBankFlow_ReconcilesFiling(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	filing := saveRecord(t, store, &model.FinancialRecord{
		Kind:      model.KindTaxFiling,
		Amount:    amt("0"),
		EventDate: day(2025, time.June, 16),
		TaxLines: []model.TaxLineItem{
			{Code: "1001", Amount: amt("250.00")},
			{Code: "1601", Amount: amt("62.50")},
		},
		Description: "modello F24 giugno",
	})
	movement := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-312.50"),
		EventDate:   day(2025, time.June, 17),
		Description: "DELEGA AGENZIA ENTRATE F24",
	})
	// A same-amount movement that is not a tax payment must not be taken.
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-312.50"),
		EventDate:   day(2025, time.June, 16),
		Description: "BONIFICO FORNITORE XYZ",
	})

	flow := NewTaxBankFlow(store, match.DefaultConfig(), []string{"agenzia entrate", "f24"}, 100, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Reconciled)
	assert.Len(t, report.AuditIDs, 2)

	gotFiling, err := store.GetRecord(ctx, filing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReconciled, gotFiling.Status)
	assert.Equal(t, movement.ID, gotFiling.Link)
	require.NotNil(t, gotFiling.PaymentDate, "payment date stamped from the movement")
	assert.True(t, movement.EventDate.Equal(*gotFiling.PaymentDate))

	gotMovement, err := store.GetRecord(ctx, movement.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReconciled, gotMovement.Status)
	assert.Equal(t, filing.ID, gotMovement.Link)
}

func TestTaxBankFlow_SkipsZeroDueAndRerunsClean(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	zero := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindTaxFiling,
		Amount:      amt("0"),
		EventDate:   day(2025, time.June, 16),
		Description: "modello a saldo zero",
	})
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindTaxFiling,
		Amount:      amt("100.00"),
		EventDate:   day(2025, time.June, 16),
		Description: "modello F24",
	})
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindBankMovement,
		Amount:      amt("-100.00"),
		EventDate:   day(2025, time.June, 16),
		Description: "DELEGA F24 AGENZIA ENTRATE",
	})

	flow := NewTaxBankFlow(store, match.DefaultConfig(), []string{"f24"}, 100, model.SourceScheduler)
	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Reconciled)

	gotZero, err := store.GetRecord(ctx, zero.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnmatched, gotZero.Status)

	// Reconciled filings and movements leave both pools.
	second, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Scanned) // only the zero-due filing remains
	assert.Equal(t, 0, second.Reconciled)
}

func TestAutoLinkFlow_LinksUnambiguousHint(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	driver := &model.Entity{Kind: model.EntityDriver, Name: "Mario Rossi", NaturalKey: "RSSMRA80A01H501U"}
	require.NoError(t, store.SaveEntity(ctx, driver))

	violation := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindViolation,
		Amount:      amt("-90.00"),
		EventDate:   day(2025, time.July, 1),
		Description: "verbale eccesso velocita",
		EntityHint:  "rossi  mario", // reversed order, messy spacing
	})

	flow := NewAutoLinkFlow(store, []AutoLinkTarget{
		{RecordKind: model.KindViolation, EntityKind: model.EntityDriver},
	}, 100, model.SourceScheduler)

	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, report.AuditIDs, 1)

	got, err := store.GetRecord(ctx, violation.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, got.EntityID)
}

func TestAutoLinkFlow_AmbiguousHintLeftUnlinked(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for _, key := range []string{"RSSMRA80A01H501U", "RSSMRA85C15F205Z"} {
		require.NoError(t, store.SaveEntity(ctx, &model.Entity{
			Kind:       model.EntityDriver,
			Name:       "Mario Rossi",
			NaturalKey: key,
		}))
	}

	violation := saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindViolation,
		Amount:      amt("-90.00"),
		EventDate:   day(2025, time.July, 1),
		Description: "verbale divieto di sosta",
		EntityHint:  "Mario Rossi",
	})

	flow := NewAutoLinkFlow(store, []AutoLinkTarget{
		{RecordKind: model.KindViolation, EntityKind: model.EntityDriver},
	}, 100, model.SourceScheduler)

	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Matched)
	assert.Equal(t, 1, report.Skipped, "ambiguity is never guessed through")

	got, err := store.GetRecord(ctx, violation.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EntityID)
}

func TestAutoLinkFlow_ManualOverrideExempt(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveEntity(ctx, &model.Entity{
		Kind: model.EntityDriver, Name: "Mario Rossi", NaturalKey: "RSSMRA80A01H501U",
	}))

	pinned := saveRecord(t, store, &model.FinancialRecord{
		Kind:           model.KindViolation,
		Amount:         amt("-90.00"),
		EventDate:      day(2025, time.July, 1),
		Description:    "verbale con assegnazione manuale",
		EntityHint:     "Mario Rossi",
		ManualOverride: true,
	})

	flow := NewAutoLinkFlow(store, []AutoLinkTarget{
		{RecordKind: model.KindViolation, EntityKind: model.EntityDriver},
	}, 100, model.SourceScheduler)

	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Matched)

	got, err := store.GetRecord(ctx, pinned.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EntityID, "manually overridden records are never touched")
}

func TestAutoLinkFlow_MultipleTargets(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveEntity(ctx, &model.Entity{
		Kind: model.EntityDriver, Name: "Mario Rossi",
	}))
	require.NoError(t, store.SaveEntity(ctx, &model.Entity{
		Kind: model.EntitySupplier, Name: "Fornitore ABC", NaturalKey: "IT01234567890",
	}))

	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindViolation,
		Amount:      amt("-90.00"),
		EventDate:   day(2025, time.July, 1),
		Description: "verbale",
		EntityHint:  "Mario Rossi",
	})
	saveRecord(t, store, &model.FinancialRecord{
		Kind:        model.KindInvoice,
		Amount:      amt("-500.00"),
		EventDate:   day(2025, time.July, 2),
		Description: "fattura 42",
		EntityHint:  "IT01234567890",
	})

	flow := NewAutoLinkFlow(store, []AutoLinkTarget{
		{RecordKind: model.KindViolation, EntityKind: model.EntityDriver},
		{RecordKind: model.KindInvoice, EntityKind: model.EntitySupplier},
	}, 100, model.SourceScheduler)

	report, err := flow.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Matched)
}
