package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcheng/callscribe/internal/matching"
	"github.com/pcheng/callscribe/internal/model/signature"
)

// SignatureStore owns the biometric signatures bound to identities.
// Signatures are immutable once created; the only mutation is an additive,
// dedup-checked insert. Writes for the same identity are serialized so two
// near-duplicate vectors cannot both pass the dedup check.
type SignatureStore struct {
	identities     IdentityDirectory
	dedupThreshold float64

	mu         sync.RWMutex
	byIdentity map[string][]signature.Signature

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewSignatureStore creates a store scoping lookups through the given
// identity directory.
func NewSignatureStore(identities IdentityDirectory, dedupThreshold float64) *SignatureStore {
	if dedupThreshold <= 0 {
		dedupThreshold = signature.DefaultDedupThreshold
	}
	return &SignatureStore{
		identities:     identities,
		dedupThreshold: dedupThreshold,
		byIdentity:     make(map[string][]signature.Signature),
		locks:          make(map[string]*sync.Mutex),
	}
}

// FindMatch scans all signatures of the given kind across the owner's known
// identities and returns the best candidate at or above the threshold.
func (s *SignatureStore) FindMatch(ownerID string, kind signature.Kind, vector []float64, threshold float64) matching.Result {
	identities := s.identities.ListByOwner(ownerID)

	s.mu.RLock()
	var candidates []matching.Candidate
	for _, identity := range identities {
		for _, sig := range s.byIdentity[identity.ID] {
			if sig.Kind != kind {
				continue
			}
			candidates = append(candidates, matching.Candidate{
				IdentityID: sig.IdentityID,
				Vector:     sig.Vector,
			})
		}
	}
	s.mu.RUnlock()

	return matching.Match(vector, candidates, threshold)
}

// AddSignature stores a new signature for the identity unless an existing one
// of the same kind is already near-identical, in which case the existing
// signature is returned unchanged. Multiple distinct signatures per identity
// are encouraged; they improve matching over time.
func (s *SignatureStore) AddSignature(identityID string, kind signature.Kind, vector []float64, sourceRef string) (signature.Signature, error) {
	if len(vector) != kind.Dimensions() {
		return signature.Signature{}, fmt.Errorf("%s signature requires %d dimensions, got %d", kind, kind.Dimensions(), len(vector))
	}

	lock := s.identityLock(identityID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing := s.byIdentity[identityID]
	s.mu.RUnlock()

	for _, sig := range existing {
		if sig.Kind != kind {
			continue
		}
		similarity, err := matching.Similarity(vector, sig.Vector)
		if err != nil {
			continue
		}
		if similarity > s.dedupThreshold {
			return sig, nil
		}
	}

	created := signature.Signature{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Kind:       kind,
		Vector:     append([]float64(nil), vector...),
		SourceRef:  sourceRef,
		Confidence: 1.0,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.byIdentity[identityID] = append(s.byIdentity[identityID], created)
	s.mu.Unlock()

	return created, nil
}

// Count returns the number of stored signatures for an identity.
func (s *SignatureStore) Count(identityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentity[identityID])
}

func (s *SignatureStore) identityLock(identityID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[identityID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[identityID] = lock
	}
	return lock
}
