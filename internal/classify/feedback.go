package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// Feedback applies manual category corrections: each one grows the
// document's correction history and may teach the classifier a keyword.
// Both paths are additive; prior rules are never altered.
type Feedback struct {
	store service.Storage
}

// NewFeedback creates the correction handler.
func NewFeedback(store service.Storage) *Feedback {
	return &Feedback{store: store}
}

// Reclassify overrides a document's category. When keyword is non-empty a
// keyword-to-category association is learned so future documents containing
// it are pre-classified to the corrected category.
func (f *Feedback) Reclassify(ctx context.Context, docID, toCategory, by, keyword string) error {
	if strings.TrimSpace(toCategory) == "" {
		return common.NewValidationError("category", "empty")
	}

	doc, err := f.store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", docID, err)
	}
	if doc.Category == toCategory {
		return nil
	}

	correction := newCorrection(doc.Category, toCategory, by)
	if err := f.store.AppendCorrection(ctx, docID, correction); err != nil {
		return fmt.Errorf("recording correction for %s: %w", docID, err)
	}

	if keyword = strings.TrimSpace(strings.ToLower(keyword)); keyword != "" {
		if err := f.store.UpsertKeywordAssociation(ctx, keyword, toCategory); err != nil {
			return fmt.Errorf("learning keyword %q: %w", keyword, err)
		}
	}

	return nil
}

func newCorrection(from, to, by string) model.Correction {
	return model.Correction{FromCategory: from, ToCategory: to, By: by, At: time.Now().UTC()}
}
