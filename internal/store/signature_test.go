package store

import (
	"math"
	"sync"
	"testing"

	"github.com/pcheng/callscribe/internal/model/signature"
)

func faceVec(hot int) []float64 {
	v := make([]float64, signature.KindFace.Dimensions())
	v[hot] = 1
	return v
}

func faceBlend(a, b int, cos float64) []float64 {
	v := make([]float64, signature.KindFace.Dimensions())
	v[a] = cos
	v[b] = math.Sqrt(1 - cos*cos)
	return v
}

func seedDirectory(t *testing.T) (*MemoryDirectory, Identity, Identity) {
	t.Helper()
	dir := NewMemoryDirectory(nil)
	alice := dir.Add(Identity{OwnerID: "owner-1", Name: "Alice", RelationshipType: "friend"})
	bob := dir.Add(Identity{OwnerID: "owner-1", Name: "Bob", RelationshipType: "colleague"})
	return dir, alice, bob
}

func TestAddSignatureDedup(t *testing.T) {
	dir, alice, _ := seedDirectory(t)
	sigs := NewSignatureStore(dir, 0.95)

	first, err := sigs.AddSignature(alice.ID, signature.KindFace, faceVec(0), "")
	if err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}

	// similarity 0.99 > 0.95: duplicate, keep the original
	dup, err := sigs.AddSignature(alice.ID, signature.KindFace, faceBlend(0, 1, 0.99), "")
	if err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}
	if dup.ID != first.ID {
		t.Fatalf("near-duplicate should return existing signature, got new id %s", dup.ID)
	}
	if sigs.Count(alice.ID) != 1 {
		t.Fatalf("expected 1 stored signature, got %d", sigs.Count(alice.ID))
	}

	// similarity 0.9 <= 0.95: distinct, stored alongside
	distinct, err := sigs.AddSignature(alice.ID, signature.KindFace, faceBlend(0, 1, 0.9), "")
	if err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}
	if distinct.ID == first.ID {
		t.Fatal("distinct vector should create a new signature")
	}
	if sigs.Count(alice.ID) != 2 {
		t.Fatalf("expected 2 stored signatures, got %d", sigs.Count(alice.ID))
	}
}

func TestAddSignatureRejectsWrongDimensions(t *testing.T) {
	dir, alice, _ := seedDirectory(t)
	sigs := NewSignatureStore(dir, 0.95)

	if _, err := sigs.AddSignature(alice.ID, signature.KindFace, []float64{1, 0}, ""); err == nil {
		t.Fatal("expected dimension validation error")
	}
}

func TestFindMatchScopedToOwner(t *testing.T) {
	dir, alice, _ := seedDirectory(t)
	stranger := dir.Add(Identity{OwnerID: "owner-2", Name: "Mallory"})
	sigs := NewSignatureStore(dir, 0.95)

	if _, err := sigs.AddSignature(alice.ID, signature.KindFace, faceVec(0), ""); err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}
	if _, err := sigs.AddSignature(stranger.ID, signature.KindFace, faceVec(1), ""); err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}

	result := sigs.FindMatch("owner-1", signature.KindFace, faceBlend(0, 2, 0.8), 0.6)
	if !result.Matched || result.IdentityID != alice.ID {
		t.Fatalf("expected match on alice, got %+v", result)
	}

	// mallory's signature belongs to another owner and must stay invisible
	result = sigs.FindMatch("owner-1", signature.KindFace, faceVec(1), 0.6)
	if result.Matched {
		t.Fatalf("expected no match across owners, got %+v", result)
	}
}

func TestFindMatchIgnoresOtherKinds(t *testing.T) {
	dir, alice, _ := seedDirectory(t)
	sigs := NewSignatureStore(dir, 0.95)

	voiceVec := make([]float64, signature.KindVoice.Dimensions())
	voiceVec[0] = 1
	if _, err := sigs.AddSignature(alice.ID, signature.KindVoice, voiceVec, ""); err != nil {
		t.Fatalf("AddSignature err: %v", err)
	}

	result := sigs.FindMatch("owner-1", signature.KindFace, faceVec(0), 0.6)
	if result.Matched {
		t.Fatalf("face scan must not consider voice signatures, got %+v", result)
	}
}

func TestConcurrentAddSignatureSerialized(t *testing.T) {
	dir, alice, _ := seedDirectory(t)
	sigs := NewSignatureStore(dir, 0.95)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// all near-identical vectors: exactly one may win
			if _, err := sigs.AddSignature(alice.ID, signature.KindFace, faceVec(0), ""); err != nil {
				t.Errorf("AddSignature err: %v", err)
			}
		}()
	}
	wg.Wait()

	if sigs.Count(alice.ID) != 1 {
		t.Fatalf("concurrent near-duplicates must dedup to 1 signature, got %d", sigs.Count(alice.ID))
	}
}
