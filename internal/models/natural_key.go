package models

import "strings"

// NaturalKey identifies an assignment across systems that share no id: (lot, producer),
// trimmed and case-folded.
type NaturalKey struct {
	Lot      string
	Producer string
}

// NaturalKeyOf builds the normalized key of a lot/producer pair
func NaturalKeyOf(lot, producer string) NaturalKey {
	return NaturalKey{
		Lot:      strings.ToLower(strings.TrimSpace(lot)),
		Producer: strings.ToLower(strings.TrimSpace(producer)),
	}
}

// Empty reports whether either half of the key is missing
func (k NaturalKey) Empty() bool {
	return k.Lot == "" || k.Producer == ""
}
