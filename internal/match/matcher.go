package match

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/backoffice/internal/common"
	"github.com/ledgerline/backoffice/internal/model"
)

// score weights for the composite audit score. Selection itself is
// lexicographic (exact amount, then date delta, then text similarity); the
// composite only exists so audit entries carry a single comparable number.
const (
	amountWeight = 0.5
	dateWeight   = 0.3
	textWeight   = 0.2
)

// FindBestMatch searches the pool for the candidate closest to the query
// under the configured tolerances. A nil candidate with nil error is the
// normal "no match" outcome; an error means the query itself was malformed.
func FindBestMatch(query *model.FinancialRecord, pool []model.FinancialRecord, cfg Config) (*model.MatchCandidate, error) {
	candidates, err := FindCandidates(query, pool, cfg)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// FindCandidates returns every candidate surviving the tolerance filters,
// best first. Ranking is deterministic: exact amount match, then smallest
// date delta, then highest text similarity, then pool order.
func FindCandidates(query *model.FinancialRecord, pool []model.FinancialRecord, cfg Config) ([]model.MatchCandidate, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var out []model.MatchCandidate
	order := make(map[string]int, len(pool))

	for i := range pool {
		cand := &pool[i]
		if cand.EventDate.IsZero() || cand.ID == "" {
			continue // malformed pool entries are the flow's problem, not ours
		}

		deltaDays := daysBetween(query.EventDate, cand.EventDate)
		if abs(deltaDays) > cfg.DateWindowDays {
			continue
		}

		amountDelta, exact, ok := amountWithinTolerance(query.Amount, cand.Amount, cfg)
		if !ok {
			continue
		}

		sim := Similarity(query.Description, cand.Description)
		if cfg.RequireTextOverlap && sim == 0 {
			continue
		}

		order[cand.ID] = i
		out = append(out, model.MatchCandidate{
			CandidateID:    cand.ID,
			AmountDelta:    amountDelta,
			DateDeltaDays:  deltaDays,
			TextSimilarity: sim,
			ExactAmount:    exact,
			Score:          compositeScore(amountDelta, exact, deltaDays, sim, cfg),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ExactAmount != b.ExactAmount {
			return a.ExactAmount
		}
		if abs(a.DateDeltaDays) != abs(b.DateDeltaDays) {
			return abs(a.DateDeltaDays) < abs(b.DateDeltaDays)
		}
		if a.TextSimilarity != b.TextSimilarity {
			return a.TextSimilarity > b.TextSimilarity
		}
		return order[a.CandidateID] < order[b.CandidateID]
	})

	return out, nil
}

// amountWithinTolerance compares candidate against query, optionally also
// against its negation, and reports the smallest absolute delta.
func amountWithinTolerance(query, candidate decimal.Decimal, cfg Config) (delta decimal.Decimal, exact, ok bool) {
	delta = candidate.Sub(query).Abs()
	if cfg.SignInvariant {
		if negDelta := candidate.Sub(query.Neg()).Abs(); negDelta.LessThan(delta) {
			delta = negDelta
		}
	}
	if delta.GreaterThan(cfg.AmountTolerance) {
		return delta, false, false
	}
	return delta, delta.IsZero(), true
}

func compositeScore(amountDelta decimal.Decimal, exact bool, deltaDays int, sim float64, cfg Config) float64 {
	amountScore := 1.0
	if !exact && !cfg.AmountTolerance.IsZero() {
		ratio, _ := amountDelta.Div(cfg.AmountTolerance).Float64()
		amountScore = 1.0 - ratio
	}

	dateScore := 1.0
	if cfg.DateWindowDays > 0 {
		dateScore = 1.0 - float64(abs(deltaDays))/float64(cfg.DateWindowDays)
	}

	return amountWeight*amountScore + dateWeight*dateScore + textWeight*sim
}

func validateQuery(query *model.FinancialRecord) error {
	if query == nil {
		return common.NewValidationError("record", "nil query")
	}
	if query.ID == "" {
		return common.NewValidationError("id", "empty")
	}
	if query.EventDate.IsZero() {
		return common.NewValidationError("event_date", "zero date")
	}
	return nil
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
