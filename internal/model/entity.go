package model

import (
	"strings"
	"time"
)

// EntityKind identifies a class of stable business entities.
type EntityKind string

// Entity kind constants.
const (
	EntityDriver   EntityKind = "driver"
	EntityVehicle  EntityKind = "vehicle"
	EntitySupplier EntityKind = "supplier"
	EntityEmployee EntityKind = "employee"
)

// Entity is a stable business entity addressable by a natural key: a plate
// number for vehicles, a VAT id or tax code for suppliers, a full name for
// people.
type Entity struct {
	CreatedAt  time.Time
	ID         string
	Kind       EntityKind
	Name       string
	NaturalKey string
}

// LookupKeys returns every normalized key under which this entity should be
// indexed. Person names are indexed in both token orders because source
// documents disagree on "First Last" versus "Last First".
func (e *Entity) LookupKeys() []string {
	seen := make(map[string]struct{}, 3)
	var keys []string
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(NormalizeKey(e.NaturalKey))
	add(NormalizeKey(e.Name))
	add(ReverseTokens(NormalizeKey(e.Name)))
	return keys
}

// NormalizeKey uppercases a natural key and collapses internal whitespace so
// that "mario  rossi" and "MARIO ROSSI" index identically.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// ReverseTokens flips the token order of a normalized key, turning
// "MARIO ROSSI" into "ROSSI MARIO".
func ReverseTokens(s string) string {
	tokens := strings.Fields(s)
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return strings.Join(tokens, " ")
}
