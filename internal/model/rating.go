package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Rating is a claim-truthiness label from the closed rating vocabulary
type Rating string

const (
	RatingUnverified Rating = "unverified" // No usable evidence either way
	RatingDoubtful   Rating = "doubtful"   // Evidence leans against the claim
	RatingMixed      Rating = "mixed"      // Evidence conflicts
	RatingReliable   Rating = "reliable"   // Evidence leans toward the claim
	RatingSolid      Rating = "solid"      // Strong consensus support
)

// DefaultRating is substituted for any value outside the vocabulary
const DefaultRating = RatingUnverified

var ratings = []Rating{RatingUnverified, RatingDoubtful, RatingMixed, RatingReliable, RatingSolid}

var folder = cases.Fold()

// Ratings returns the vocabulary in ascending order of support
func Ratings() []Rating {
	out := make([]Rating, len(ratings))
	copy(out, ratings)
	return out
}

// Valid reports whether r is a member of the vocabulary
func (r Rating) Valid() bool {
	for _, v := range ratings {
		if r == v {
			return true
		}
	}
	return false
}

// NormalizeRating maps an untrusted label onto the vocabulary.
// Unknown, empty, or differently-cased values outside the set become DefaultRating.
func NormalizeRating(raw string) Rating {
	r := Rating(folder.String(strings.TrimSpace(raw)))
	if r.Valid() {
		return r
	}
	return DefaultRating
}

// RatingPattern renders the vocabulary as "a|b|c" for prompt templates
func RatingPattern() string {
	parts := make([]string, len(ratings))
	for i, r := range ratings {
		parts[i] = string(r)
	}
	return strings.Join(parts, "|")
}
