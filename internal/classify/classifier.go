// Package classify assigns inbound documents to business categories via a
// priority-ordered rule set, with a feedback path that learns from manual
// corrections.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ledgerline/backoffice/internal/model"
)

// Confidence tiers. A regex hit on subject or sender is a strong signal;
// keyword hits scale with the number of distinct keywords found.
const (
	regexConfidence    = 0.9
	learnedConfidence  = 0.7
	keywordBase        = 0.5
	keywordStep        = 0.1
	keywordCeiling     = 0.7
	singleKeywordFloor = 0.4
)

// Document is the raw inbound tuple handed to the classifier, already
// decoded to text.
type Document struct {
	Subject string
	Sender  string
	Body    string
}

// Result is the classification outcome. Classification is total: malformed
// or empty input yields the unclassified category with confidence 0, never
// an error.
type Result struct {
	Category    string
	MatchedRule string
	Confidence  float64
}

// Classifier evaluates rules in descending priority order; the first match
// wins. Learned keyword associations are consulted before the static rules
// so human corrections take precedence.
type Classifier struct {
	subjectRegex map[string][]*regexp.Regexp
	senderRegex  map[string][]*regexp.Regexp
	rules        []model.ClassificationRule
	associations []model.KeywordAssociation
}

// NewClassifier builds a classifier from an immutable rule set and the
// learned keyword associations. Invalid regex patterns are dropped at
// construction rather than failing every classification.
func NewClassifier(rules []model.ClassificationRule, associations []model.KeywordAssociation) *Classifier {
	sorted := make([]model.ClassificationRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Position < sorted[j].Position
	})

	c := &Classifier{
		rules:        sorted,
		associations: associations,
		subjectRegex: make(map[string][]*regexp.Regexp),
		senderRegex:  make(map[string][]*regexp.Regexp),
	}

	for _, rule := range sorted {
		for _, pattern := range rule.SubjectPatterns {
			if re, err := regexp.Compile("(?i)" + pattern); err == nil {
				c.subjectRegex[rule.Name] = append(c.subjectRegex[rule.Name], re)
			}
		}
		for _, pattern := range rule.SenderPatterns {
			if re, err := regexp.Compile("(?i)" + pattern); err == nil {
				c.senderRegex[rule.Name] = append(c.senderRegex[rule.Name], re)
			}
		}
	}

	return c
}

// Classify assigns a category to the document.
func (c *Classifier) Classify(doc Document) Result {
	if strings.TrimSpace(doc.Subject) == "" &&
		strings.TrimSpace(doc.Body) == "" &&
		strings.TrimSpace(doc.Sender) == "" {
		return Result{Category: model.CategoryUnclassified}
	}

	text := strings.ToLower(doc.Subject + " " + doc.Body)

	// Learned associations first: a correction-derived keyword pre-classifies
	// the document before any static rule is consulted.
	for _, assoc := range c.associations {
		if assoc.Keyword != "" && strings.Contains(text, strings.ToLower(assoc.Keyword)) {
			return Result{
				Category:    assoc.Category,
				Confidence:  learnedConfidence,
				MatchedRule: "learned:" + assoc.Keyword,
			}
		}
	}

	for _, rule := range c.rules {
		if result, ok := c.evaluate(rule, doc, text); ok {
			return result
		}
	}

	return Result{Category: model.CategoryUnclassified}
}

// evaluate tests one rule against the document. Regex hits outrank keyword
// hits when deriving confidence.
func (c *Classifier) evaluate(rule model.ClassificationRule, doc Document, loweredText string) (Result, bool) {
	for _, re := range c.senderRegex[rule.Name] {
		if re.MatchString(doc.Sender) {
			return Result{Category: rule.Category, Confidence: regexConfidence, MatchedRule: rule.Name}, true
		}
	}
	for _, re := range c.subjectRegex[rule.Name] {
		if re.MatchString(doc.Subject) {
			return Result{Category: rule.Category, Confidence: regexConfidence, MatchedRule: rule.Name}, true
		}
	}

	hits := 0
	for _, keyword := range rule.Keywords {
		if keyword != "" && strings.Contains(loweredText, strings.ToLower(keyword)) {
			hits++
		}
	}
	if hits > 0 {
		return Result{Category: rule.Category, Confidence: keywordConfidence(hits), MatchedRule: rule.Name}, true
	}

	// A catch-all rule has no keywords and no patterns and matches anything.
	if len(rule.Keywords) == 0 &&
		len(c.subjectRegex[rule.Name]) == 0 && len(c.senderRegex[rule.Name]) == 0 &&
		len(rule.SubjectPatterns) == 0 && len(rule.SenderPatterns) == 0 {
		return Result{Category: rule.Category, Confidence: singleKeywordFloor, MatchedRule: rule.Name}, true
	}

	return Result{}, false
}

func keywordConfidence(hits int) float64 {
	confidence := keywordBase + keywordStep*float64(hits-1)
	if confidence > keywordCeiling {
		return keywordCeiling
	}
	return confidence
}
