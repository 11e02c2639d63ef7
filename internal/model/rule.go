package model

// RuleAction names what the downstream pipeline should do with a document
// once it lands in a category.
type RuleAction string

// Rule action constants.
const (
	ActionStore   RuleAction = "store"
	ActionExtract RuleAction = "extract"
	ActionIgnore  RuleAction = "ignore"
)

// ClassificationRule assigns inbound documents to a category. Rules are
// immutable at match time; Priority is a total order (ties broken by
// Position, the declaration order) so exactly one rule wins per document.
type ClassificationRule struct {
	Name             string
	Category         string
	TargetSection    string
	TargetCollection string
	Keywords         []string
	SubjectPatterns  []string
	SenderPatterns   []string
	Action           RuleAction
	Priority         int
	Position         int
}

// CategoryUnclassified is assigned when no rule matches a document.
const CategoryUnclassified = "unclassified"
