package matching

import (
	"errors"
	"math"
)

// ErrDimensionMismatch reports two vectors of different length. A mismatch is
// fatal for that single comparison only; candidate scans skip and continue.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Candidate pairs a stored vector with the identity that owns it.
type Candidate struct {
	IdentityID string
	Vector     []float64
}

// Result is the transient outcome of a match scan.
type Result struct {
	Matched    bool    `json:"matched"`
	IdentityID string  `json:"identityId,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Similarity computes cosine similarity (1 - cosine distance) between two
// vectors of equal length.
func Similarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Match scans candidates for the best similarity to query. A candidate wins
// only if its similarity strictly exceeds the running best and clears the
// threshold, so equal top scores keep the first-seen candidate. Callers must
// supply a stable candidate order (ascending creation time) for deterministic
// results. Candidates whose dimensionality differs from the query are skipped.
func Match(query []float64, candidates []Candidate, threshold float64) Result {
	best := Result{}

	for _, candidate := range candidates {
		similarity, err := Similarity(query, candidate.Vector)
		if err != nil {
			continue
		}
		if similarity > best.Similarity && similarity >= threshold {
			best = Result{
				Matched:    true,
				IdentityID: candidate.IdentityID,
				Similarity: similarity,
			}
		}
	}

	return best
}
