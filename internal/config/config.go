// Package config materializes viper settings into an explicit configuration
// struct. Flows and the classifier receive this struct at construction;
// nothing in the engine reads the environment directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/match"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/recon"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Match    MatchConfig
	Recon    ReconConfig
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string
	Format string
}

// MatchConfig carries the fuzzy-match tolerances as configuration values.
// The defaults are policy to confirm with the business owner, not physics.
type MatchConfig struct {
	AmountTolerance    string
	DateWindowDays     int
	RequireTextOverlap bool
	SignInvariant      bool
}

// ReconConfig bounds and parameterizes the reconciliation flows.
type ReconConfig struct {
	AgencyTerms []string
	AutoLink    []AutoLinkPair
	BatchSize   int
}

// AutoLinkPair names one dependent-record-to-entity relationship the
// auto-linker maintains.
type AutoLinkPair struct {
	RecordKind string
	EntityKind string
}

// Load reads the configuration from viper, applying defaults for anything
// unset.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("database.path", defaultDatabasePath())
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	viper.SetDefault("match.amounttolerance", "0.01")
	viper.SetDefault("match.datewindowdays", 7)
	viper.SetDefault("match.requiretextoverlap", false)
	viper.SetDefault("match.signinvariant", true)

	viper.SetDefault("recon.batchsize", 500)
	viper.SetDefault("recon.agencyterms", []string{
		"agenzia entrate", "ag.entrate", "f24", "erario", "inps", "delega unificata",
	})
	viper.SetDefault("recon.autolink", []map[string]any{
		{"recordkind": string(model.KindViolation), "entitykind": string(model.EntityDriver)},
		{"recordkind": string(model.KindInvoice), "entitykind": string(model.EntitySupplier)},
	})
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "backoffice.db"
	}
	return filepath.Join(home, ".local", "share", "backoffice", "backoffice.db")
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if _, err := decimal.NewFromString(c.Match.AmountTolerance); err != nil {
		return fmt.Errorf("%w: match.amounttolerance %q", common.ErrInvalidConfig, c.Match.AmountTolerance)
	}
	if c.Match.DateWindowDays < 0 {
		return fmt.Errorf("%w: match.datewindowdays must not be negative", common.ErrInvalidConfig)
	}
	if c.Recon.BatchSize <= 0 {
		return fmt.Errorf("%w: recon.batchsize must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// MatchEngineConfig converts the raw configuration into the match engine's
// typed config.
func (c *Config) MatchEngineConfig() match.Config {
	tolerance, err := decimal.NewFromString(c.Match.AmountTolerance)
	if err != nil {
		tolerance = decimal.NewFromFloat(0.01)
	}
	return match.Config{
		AmountTolerance:    tolerance,
		DateWindowDays:     c.Match.DateWindowDays,
		RequireTextOverlap: c.Match.RequireTextOverlap,
		SignInvariant:      c.Match.SignInvariant,
	}
}

// AutoLinkTargets converts the configured pairs into the flow's typed form.
func (c *Config) AutoLinkTargets() []recon.AutoLinkTarget {
	targets := make([]recon.AutoLinkTarget, 0, len(c.Recon.AutoLink))
	for _, pair := range c.Recon.AutoLink {
		targets = append(targets, recon.AutoLinkTarget{
			RecordKind: model.RecordKind(pair.RecordKind),
			EntityKind: model.EntityKind(pair.EntityKind),
		})
	}
	return targets
}
