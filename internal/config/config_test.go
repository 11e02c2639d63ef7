package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "backoffice.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Match:    MatchConfig{AmountTolerance: "0.01", DateWindowDays: 7, SignInvariant: true},
		Recon: ReconConfig{
			BatchSize: 500,
			AutoLink: []AutoLinkPair{
				{RecordKind: string(model.KindViolation), EntityKind: string(model.EntityDriver)},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "malformed amount tolerance",
			mutate:  func(c *Config) { c.Match.AmountTolerance = "lots" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "negative date window",
			mutate:  func(c *Config) { c.Match.DateWindowDays = -1 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Recon.BatchSize = 0 },
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMatchEngineConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Match.AmountTolerance = "0.05"
	cfg.Match.DateWindowDays = 3
	cfg.Match.RequireTextOverlap = true

	engineCfg := cfg.MatchEngineConfig()
	assert.True(t, engineCfg.AmountTolerance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 3, engineCfg.DateWindowDays)
	assert.True(t, engineCfg.RequireTextOverlap)
	assert.True(t, engineCfg.SignInvariant)
	require.NoError(t, engineCfg.Validate())
}

func TestAutoLinkTargets(t *testing.T) {
	cfg := validConfig()
	cfg.Recon.AutoLink = append(cfg.Recon.AutoLink, AutoLinkPair{
		RecordKind: string(model.KindInvoice),
		EntityKind: string(model.EntitySupplier),
	})

	targets := cfg.AutoLinkTargets()
	require.Len(t, targets, 2)
	assert.Equal(t, model.KindViolation, targets[0].RecordKind)
	assert.Equal(t, model.EntityDriver, targets[0].EntityKind)
	assert.Equal(t, model.KindInvoice, targets[1].RecordKind)
	assert.Equal(t, model.EntitySupplier, targets[1].EntityKind)
}
