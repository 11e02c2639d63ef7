package classify

import "github.com/ledgerline/backoffice/internal/model"

// DefaultRules is the built-in rule set for the Italian back-office inbox.
// Stored rules take precedence once present; this set seeds a fresh
// installation and keeps the classify-test command usable without a store.
func DefaultRules() []model.ClassificationRule {
	return []model.ClassificationRule{
		{
			Name:             "violations",
			Category:         "violations",
			TargetSection:    "fleet",
			TargetCollection: "violations",
			Keywords:         []string{"verbale", "contestazione", "infrazione", "sanzione"},
			SubjectPatterns:  []string{`verbale\s+di\s+contestazione`, `\bV\d{9,}\b`},
			SenderPatterns:   []string{`@pec\.comune\.`, `poliziamunicipale`},
			Action:           model.ActionExtract,
			Priority:         90,
			Position:         0,
		},
		{
			Name:             "tax-filings",
			Category:         "tax",
			TargetSection:    "accounting",
			TargetCollection: "tax_filings",
			Keywords:         []string{"f24", "tributo", "agenzia delle entrate", "ravvedimento"},
			SubjectPatterns:  []string{`\bF24\b`, `delega\s+di\s+pagamento`},
			SenderPatterns:   []string{`@agenziaentrate\.`, `@pec\.agenziariscossione\.`},
			Action:           model.ActionExtract,
			Priority:         80,
			Position:         1,
		},
		{
			Name:             "supplier-invoices",
			Category:         "invoices",
			TargetSection:    "accounting",
			TargetCollection: "invoices",
			Keywords:         []string{"fattura", "nota di credito", "scadenza pagamento"},
			SubjectPatterns:  []string{`fattura\s+(n\.?|nr\.?|numero)`},
			Action:           model.ActionExtract,
			Priority:         70,
			Position:         2,
		},
		{
			Name:             "bank-statements",
			Category:         "bank",
			TargetSection:    "accounting",
			TargetCollection: "bank_statements",
			Keywords:         []string{"estratto conto", "movimenti conto", "saldo contabile"},
			Action:           model.ActionStore,
			Priority:         60,
			Position:         3,
		},
		{
			Name:             "catch-all",
			Category:         "general",
			TargetSection:    "inbox",
			TargetCollection: "documents",
			Action:           model.ActionStore,
			Priority:         0,
			Position:         4,
		},
	}
}
