package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ledgerline/backoffice/internal/classify"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the active rule set in priority order",
		RunE:  runRulesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Persist the built-in rule set into the store",
		RunE:  runRulesSeed,
	})

	return cmd
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, _, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rules, err := store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	if len(rules) == 0 {
		rules = classify.DefaultRules()
		slog.Info("no persisted rules, showing built-in set")
	}

	for _, rule := range rules {
		slog.Info("rule",
			"name", rule.Name,
			"category", rule.Category,
			"priority", rule.Priority,
			"keywords", rule.Keywords,
			"target", rule.TargetCollection)
	}
	return nil
}

func runRulesSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, _, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, rule := range classify.DefaultRules() {
		if err := store.SaveRule(ctx, &rule); err != nil {
			return fmt.Errorf("seeding rule %s: %w", rule.Name, err)
		}
	}

	slog.Info("seeded built-in rule set")
	return nil
}
