package recon

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
	"github.com/ledgerline/backoffice/internal/service"
)

// AutoLinkTarget pairs a dependent record kind with the entity kind its
// foreign key should point at, e.g. violations to drivers, invoices to
// suppliers.
type AutoLinkTarget struct {
	RecordKind model.RecordKind
	EntityKind model.EntityKind
}

// AutoLinkFlow fills missing entity foreign keys from natural-key lookups.
// A key only links when exactly one entity matches; ambiguity means the
// record is left unlinked, never guessed. Records with manual_override set
// are permanently exempt.
type AutoLinkFlow struct {
	store     service.Storage
	index     *gocache.Cache
	source    model.RecordSource
	targets   []AutoLinkTarget
	batchSize int
}

// entityIndexTTL bounds how stale the natural-key index may be between
// scheduled passes.
const entityIndexTTL = 5 * time.Minute

// NewAutoLinkFlow creates the entity auto-linking flow.
func NewAutoLinkFlow(store service.Storage, targets []AutoLinkTarget, batchSize int, source model.RecordSource) *AutoLinkFlow {
	return &AutoLinkFlow{
		store:     store,
		targets:   targets,
		batchSize: batchSize,
		source:    source,
		index:     gocache.New(entityIndexTTL, 2*entityIndexTTL),
	}
}

// Name implements Flow.
func (f *AutoLinkFlow) Name() string { return "auto-link" }

// Run executes one pass over every configured target pair.
func (f *AutoLinkFlow) Run(ctx context.Context) (*service.FlowReport, error) {
	report := &service.FlowReport{Flow: f.Name()}

	for _, target := range f.targets {
		if err := f.linkTarget(ctx, report, target); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (f *AutoLinkFlow) linkTarget(ctx context.Context, report *service.FlowReport, target AutoLinkTarget) error {
	records, err := f.store.ListRecords(ctx, service.RecordFilter{
		Kind:          target.RecordKind,
		MissingEntity: true,
		Limit:         f.batchSize,
	})
	if err != nil {
		return fmt.Errorf("scanning %s records: %w", target.RecordKind, err)
	}

	index, err := f.entityIndex(ctx, target.EntityKind)
	if err != nil {
		return fmt.Errorf("indexing %s entities: %w", target.EntityKind, err)
	}

	for i := range records {
		if canceled(ctx, f.Name()) {
			return nil
		}
		record := &records[i]
		report.Scanned++

		if record.ManualOverride {
			continue
		}

		key := model.NormalizeKey(record.EntityHint)
		if key == "" {
			continue
		}

		entityIDs := lookup(index, key)
		switch len(entityIDs) {
		case 0:
			continue // no candidate, retryable once the entity exists
		case 1:
			auditID, err := f.store.SetEntityLink(ctx, record.ID, entityIDs[0], f.source)
			if err != nil {
				recordOutcome(report, f.Name(), record.ID, err)
				continue
			}
			report.AuditIDs = append(report.AuditIDs, auditID)
			report.Matched++
		default:
			// Ambiguous: do nothing, leave unlinked.
			report.Skipped++
			common.LogDebug("ambiguous natural key, leaving unlinked", common.Fields{
				"flow":       f.Name(),
				"record":     record.ID,
				"key":        key,
				"candidates": len(entityIDs),
			})
		}
	}

	return nil
}

// entityIndex returns the natural-key index for an entity kind, cached
// between passes so scheduled runs do not rebuild it every minute.
func (f *AutoLinkFlow) entityIndex(ctx context.Context, kind model.EntityKind) (map[string][]string, error) {
	if cached, ok := f.index.Get(string(kind)); ok {
		return cached.(map[string][]string), nil
	}

	entities, err := f.store.ListEntities(ctx, kind)
	if err != nil {
		return nil, err
	}

	index := make(map[string][]string)
	for _, entity := range entities {
		for _, key := range entity.LookupKeys() {
			index[key] = appendUnique(index[key], entity.ID)
		}
	}

	f.index.Set(string(kind), index, gocache.DefaultExpiration)
	return index, nil
}

// lookup resolves a normalized hint against the index, also trying the
// reversed token order so "Rossi Mario" finds "Mario Rossi".
func lookup(index map[string][]string, key string) []string {
	ids := append([]string(nil), index[key]...)
	for _, id := range index[model.ReverseTokens(key)] {
		ids = appendUnique(ids, id)
	}
	return ids
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
