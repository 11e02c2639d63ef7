package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerline/backoffice/internal/classify"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify inbound documents",
	}

	cmd.AddCommand(classifyTestCmd())
	cmd.AddCommand(classifyRunCmd())
	cmd.AddCommand(classifyCorrectCmd())

	return cmd
}

func classifyTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Classify a literal document without persisting anything",
		Long:  `Evaluate the rule set against a literal subject/sender/body, for rule authoring and debugging.`,
		RunE:  runClassifyTest,
	}

	cmd.Flags().String("subject", "", "document subject")
	cmd.Flags().String("sender", "", "document sender")
	cmd.Flags().String("body", "", "document body")

	_ = viper.BindPFlag("classify.subject", cmd.Flags().Lookup("subject"))
	_ = viper.BindPFlag("classify.sender", cmd.Flags().Lookup("sender"))
	_ = viper.BindPFlag("classify.body", cmd.Flags().Lookup("body"))

	return cmd
}

func runClassifyTest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// Fall back to the built-in rule set so rule authoring works without
	// a database.
	classifier := classify.NewClassifier(classify.DefaultRules(), nil)
	if store, _, err := openStorage(ctx); err == nil {
		defer func() { _ = store.Close() }()
		if loaded, loadErr := loadClassifier(ctx, store); loadErr == nil {
			classifier = loaded
		}
	} else {
		slog.Debug("store unavailable, using built-in rules", "error", err)
	}

	result := classifier.Classify(classify.Document{
		Subject: viper.GetString("classify.subject"),
		Sender:  viper.GetString("classify.sender"),
		Body:    viper.GetString("classify.body"),
	})

	slog.Info("classification result",
		"category", result.Category,
		"confidence", fmt.Sprintf("%.2f", result.Confidence),
		"matched_rule", result.MatchedRule)
	return nil
}

func classifyRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Re-classify pending documents against the current rule set",
		RunE:  runClassifyRun,
	}
	cmd.Flags().Int("limit", 100, "maximum documents per pass")
	_ = viper.BindPFlag("classify.limit", cmd.Flags().Lookup("limit"))
	return cmd
}

func runClassifyRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, _, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	classifier, err := loadClassifier(ctx, store)
	if err != nil {
		return err
	}

	docs, err := store.ListUnprocessedDocuments(ctx, viper.GetInt("classify.limit"))
	if err != nil {
		return fmt.Errorf("listing pending documents: %w", err)
	}

	reclassified := 0
	for _, doc := range docs {
		result := classifier.Classify(classify.Document{
			Subject: doc.Subject,
			Sender:  doc.Sender,
			Body:    doc.BodyExcerpt,
		})
		if result.Category == doc.Category {
			continue
		}
		correction := model.Correction{
			FromCategory: doc.Category,
			ToCategory:   result.Category,
			By:           "classifier",
		}
		if err := store.AppendCorrection(ctx, doc.ID, correction); err != nil {
			slog.Error("failed to reclassify document", "document", doc.ID, "error", err)
			continue
		}
		reclassified++
	}

	slog.Info("classification pass finished",
		"pending", len(docs),
		"reclassified", reclassified)
	return nil
}

func classifyCorrectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <document-id> <category>",
		Short: "Manually override a document's category",
		Long: `Override a document's category. The correction is appended to the
document's history and, with --keyword, teaches the classifier a
keyword-to-category association for future documents.`,
		Args: cobra.ExactArgs(2),
		RunE: runClassifyCorrect,
	}
	cmd.Flags().String("keyword", "", "free-text keyword to associate with the corrected category")
	cmd.Flags().String("by", "admin", "who is making the correction")
	_ = viper.BindPFlag("classify.keyword", cmd.Flags().Lookup("keyword"))
	_ = viper.BindPFlag("classify.by", cmd.Flags().Lookup("by"))
	return cmd
}

func runClassifyCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, _, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	feedback := classify.NewFeedback(store)
	err = feedback.Reclassify(ctx, args[0], args[1],
		viper.GetString("classify.by"), viper.GetString("classify.keyword"))
	if err != nil {
		return err
	}

	slog.Info("document reclassified", "document", args[0], "category", args[1])
	return nil
}

func loadClassifier(ctx context.Context, store service.Storage) (*classify.Classifier, error) {
	rules, err := store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if len(rules) == 0 {
		rules = classify.DefaultRules()
	}

	associations, err := store.ListKeywordAssociations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading keyword associations: %w", err)
	}

	return classify.NewClassifier(rules, associations), nil
}
