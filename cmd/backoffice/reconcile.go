package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ledgerline/backoffice/internal/config"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/recon"
	"github.com/ledgerline/backoffice/internal/service"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile [cash-bank|tax-bank|auto-link|all]",
		Short: "Run a reconciliation flow",
		Long: `Run one reconciliation pass. Each pass is batch-bounded and idempotent:
records that already transitioned are excluded from the next scan, so
re-running over an unchanged store produces no additional matches.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"cash-bank", "tax-bank", "auto-link", "all"},
		RunE:      runReconcile,
	}
	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, cfg, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	flows, err := selectFlows(store, cfg, args[0])
	if err != nil {
		return err
	}

	for _, flow := range flows {
		report, err := flow.Run(ctx)
		if report != nil {
			printReport(report)
		}
		if err != nil {
			return fmt.Errorf("flow %s failed: %w", flow.Name(), err)
		}
	}

	return nil
}

func selectFlows(store service.Storage, cfg *config.Config, name string) ([]recon.Flow, error) {
	matchCfg := cfg.MatchEngineConfig()
	batch := cfg.Recon.BatchSize

	cashBank := recon.NewCashBankFlow(store, matchCfg, batch, model.SourceManual)
	taxBank := recon.NewTaxBankFlow(store, matchCfg, cfg.Recon.AgencyTerms, batch, model.SourceManual)
	autoLink := recon.NewAutoLinkFlow(store, cfg.AutoLinkTargets(), batch, model.SourceManual)

	switch name {
	case "cash-bank":
		return []recon.Flow{cashBank}, nil
	case "tax-bank":
		return []recon.Flow{taxBank}, nil
	case "auto-link":
		return []recon.Flow{autoLink}, nil
	case "all":
		return []recon.Flow{cashBank, taxBank, autoLink}, nil
	default:
		return nil, fmt.Errorf("unknown flow: %s", name)
	}
}

func printReport(report *service.FlowReport) {
	slog.Info("reconciliation pass finished",
		"flow", report.Flow,
		"scanned", report.Scanned,
		"matched", report.Matched,
		"reconciled", report.Reconciled,
		"skipped", report.Skipped,
		"errors", report.Errors,
		"audit_entries", len(report.AuditIDs))
}
