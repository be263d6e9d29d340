package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Identity is a person record the account owner has a relationship with.
// Full relationship persistence lives in an external service; the pipeline
// only needs lookup by owner and by id.
type Identity struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	Name             string    `json:"name"`
	RelationshipType string    `json:"relationshipType"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IdentityDirectory exposes identity retrieval for the matching pipeline.
type IdentityDirectory interface {
	// ListByOwner returns the owner's identities in ascending creation
	// order. The order is part of the contract: the matcher's tie-break
	// depends on a stable candidate sequence.
	ListByOwner(ownerID string) []Identity
	FindByID(id string) (Identity, bool)
}

// MemoryDirectory implements IdentityDirectory with an in-memory slice,
// suitable for development and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	items []Identity
}

// NewMemoryDirectory returns a MemoryDirectory preloaded with the supplied
// identities.
func NewMemoryDirectory(items []Identity) *MemoryDirectory {
	return &MemoryDirectory{items: append([]Identity(nil), items...)}
}

// Add registers an identity and returns it with generated id and timestamp.
func (d *MemoryDirectory) Add(identity Identity) Identity {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	d.mu.Lock()
	d.items = append(d.items, identity)
	d.mu.Unlock()
	return identity
}

// ListByOwner returns the owner's identities in insertion (creation) order.
func (d *MemoryDirectory) ListByOwner(ownerID string) []Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var owned []Identity
	for _, item := range d.items {
		if item.OwnerID == ownerID {
			owned = append(owned, item)
		}
	}
	return owned
}

// FindByID looks up an identity by identifier.
func (d *MemoryDirectory) FindByID(id string) (Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, item := range d.items {
		if item.ID == id {
			return item, true
		}
	}
	return Identity{}, false
}
