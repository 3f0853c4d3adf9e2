package cachestore

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Purpose is a mutually exclusive cache namespace for a query.
type Purpose int

const (
	// PurposeTitlePage holds the raw title page when a search was a direct hit.
	PurposeTitlePage Purpose = iota + 1
	// PurposeHitList holds the ranked candidate list of a multi-result search.
	PurposeHitList
	// PurposeNoMatch is an empty sentinel for searches without matches.
	PurposeNoMatch
	// PurposeDetails holds a serialized movie details record.
	PurposeDetails
)

// Purposes lists every namespace in a stable order.
func Purposes() []Purpose {
	return []Purpose{PurposeTitlePage, PurposeHitList, PurposeNoMatch, PurposeDetails}
}

// Label is the suffix hashed into the key and used in storage names.
func (p Purpose) Label() string {
	switch p {
	case PurposeTitlePage:
		return "title"
	case PurposeHitList:
		return "hits"
	case PurposeNoMatch:
		return "miss"
	case PurposeDetails:
		return "details"
	default:
		return ""
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeTitlePage:
		return "TitlePage"
	case PurposeHitList:
		return "HitList"
	case PurposeNoMatch:
		return "NoMatch"
	case PurposeDetails:
		return "Details"
	default:
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
}

// Valid reports whether p is one of the known namespaces.
func (p Purpose) Valid() bool {
	return p.Label() != ""
}

// PurposeFromLabel maps a storage label back to its purpose.
func PurposeFromLabel(label string) (Purpose, bool) {
	for _, p := range Purposes() {
		if p.Label() == label {
			return p, true
		}
	}
	return 0, false
}

// EntryKey identifies one cache entry. Hash is derived from the raw query and
// the purpose label, so the same input maps to the same entry across runs.
type EntryKey struct {
	Hash    string
	Purpose Purpose
}

// Key derives the entry key for query under purpose: md5(query + "." + label).
func Key(query string, purpose Purpose) EntryKey {
	sum := md5.Sum([]byte(query + "." + purpose.Label()))
	return EntryKey{Hash: hex.EncodeToString(sum[:]), Purpose: purpose}
}

func (k EntryKey) String() string {
	return k.Hash
}
