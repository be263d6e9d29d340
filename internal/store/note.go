package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcheng/callscribe/internal/model/note"
)

// NoteStore is the external note-persistence collaborator consumed by the
// pipeline: recent-note lookup during identification and note commits at
// call end.
type NoteStore interface {
	// TopActive returns up to limit active notes for the identity, ordered
	// by importance descending, then recency.
	TopActive(identityID string, limit int) []note.Note
	Create(ctx context.Context, draft note.Draft) (note.Note, error)
}

// MemoryNotes implements NoteStore in memory for development and tests.
type MemoryNotes struct {
	mu    sync.RWMutex
	items []note.Note
}

// NewMemoryNotes returns an empty in-memory note store.
func NewMemoryNotes() *MemoryNotes {
	return &MemoryNotes{}
}

// TopActive returns the identity's highest-importance active notes.
func (s *MemoryNotes) TopActive(identityID string, limit int) []note.Note {
	s.mu.RLock()
	var matched []note.Note
	for _, item := range s.items {
		if item.IdentityID == identityID && item.Status == note.StatusActive {
			matched = append(matched, item)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Importance != matched[j].Importance {
			return matched[i].Importance > matched[j].Importance
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Create commits a draft as an active note.
func (s *MemoryNotes) Create(_ context.Context, draft note.Draft) (note.Note, error) {
	created := note.Note{
		ID:         uuid.NewString(),
		IdentityID: draft.IdentityID,
		Text:       draft.Text,
		Importance: draft.Importance,
		Status:     note.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.items = append(s.items, created)
	s.mu.Unlock()
	return created, nil
}
