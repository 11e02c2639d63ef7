package model

import "time"

// ClassifiedDocument is an inbound document (email, attachment) after the
// classifier assigned it a category. Processed flips to true once a
// downstream extraction step consumes it; Corrections grows append-only
// whenever a human overrides the category.
type ClassifiedDocument struct {
	CreatedAt   time.Time
	ID          string
	Subject     string
	Sender      string
	BodyExcerpt string
	Category    string
	MatchedRule string
	Corrections []Correction
	Confidence  float64
	Processed   bool
}

// Correction records one manual category override.
type Correction struct {
	At           time.Time
	FromCategory string
	ToCategory   string
	By           string
}

// KeywordAssociation is a learned keyword-to-category mapping fed by manual
// corrections. Associations are additive: they pre-classify future documents
// but never remove or alter the static rule set.
type KeywordAssociation struct {
	UpdatedAt time.Time
	Keyword   string
	Category  string
}
