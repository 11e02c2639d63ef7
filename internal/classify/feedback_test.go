package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/storage"
)

func feedbackStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestReclassify(t *testing.T) {
	ctx := context.Background()
	store := feedbackStore(t)

	doc := &model.ClassifiedDocument{
		Subject:    "Comunicazione importante",
		Sender:     "noreply@example.com",
		Category:   model.CategoryUnclassified,
		Confidence: 0,
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	feedback := NewFeedback(store)
	require.NoError(t, feedback.Reclassify(ctx, doc.ID, "violations", "operator", "Prefettura"))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "violations", got.Category)
	require.Len(t, got.Corrections, 1)
	assert.Equal(t, model.CategoryUnclassified, got.Corrections[0].FromCategory)
	assert.Equal(t, "violations", got.Corrections[0].ToCategory)
	assert.Equal(t, "operator", got.Corrections[0].By)

	// The keyword was learned lowercased and now pre-classifies new
	// documents ahead of the static rules.
	associations, err := store.ListKeywordAssociations(ctx)
	require.NoError(t, err)
	require.Len(t, associations, 1)
	assert.Equal(t, "prefettura", associations[0].Keyword)
	assert.Equal(t, "violations", associations[0].Category)

	classifier := NewClassifier(DefaultRules(), associations)
	result := classifier.Classify(Document{
		Subject: "Atto della Prefettura di Milano",
		Sender:  "protocollo@prefettura.it",
	})
	assert.Equal(t, "violations", result.Category)
	assert.Equal(t, "learned:prefettura", result.MatchedRule)
}

func TestReclassify_SameCategoryIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := feedbackStore(t)

	doc := &model.ClassifiedDocument{
		Subject:  "Fattura n. 7",
		Category: "supplier-invoices",
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	feedback := NewFeedback(store)
	require.NoError(t, feedback.Reclassify(ctx, doc.ID, "supplier-invoices", "operator", "fattura"))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Corrections, "confirming the current category records nothing")

	associations, err := store.ListKeywordAssociations(ctx)
	require.NoError(t, err)
	assert.Empty(t, associations)
}

func TestReclassify_WithoutKeyword(t *testing.T) {
	ctx := context.Background()
	store := feedbackStore(t)

	doc := &model.ClassifiedDocument{
		Subject:  "Estratto conto marzo",
		Category: model.CategoryUnclassified,
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	feedback := NewFeedback(store)
	require.NoError(t, feedback.Reclassify(ctx, doc.ID, "bank-statements", "operator", ""))

	associations, err := store.ListKeywordAssociations(ctx)
	require.NoError(t, err)
	assert.Empty(t, associations, "no keyword, nothing learned")
}

func TestReclassify_Validation(t *testing.T) {
	ctx := context.Background()
	store := feedbackStore(t)

	feedback := NewFeedback(store)

	err := feedback.Reclassify(ctx, "some-id", "  ", "operator", "")
	assert.True(t, common.IsValidation(err))

	err = feedback.Reclassify(ctx, "missing", "violations", "operator", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
