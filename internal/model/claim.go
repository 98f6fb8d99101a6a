package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Claim is a candidate factual statement returned by extraction
type Claim struct {
	Text  string `json:"text"`  // The claim text itself (<=140 chars by prompt contract)
	Index int    `json:"index"` // Position in the extracted list (0-based)
}

// Snippet is one piece of evidence returned by a search provider
type Snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Source is a citation attached to a verified claim
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Verification is the verifier's output for a single claim
type Verification struct {
	Rating    Rating   `json:"rating"`
	Rationale string   `json:"rationale"`
	Sources   []Source `json:"sources"`
}

// VerifiedClaim is a claim with its verification folded in
type VerifiedClaim struct {
	ID        string   `json:"id"` // ClaimID(Text)
	Text      string   `json:"text"`
	Rating    Rating   `json:"rating"`
	Rationale string   `json:"rationale"`
	Sources   []Source `json:"sources"`
}

// ClaimID returns the stable content hash used as a claim identifier
func ClaimID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
