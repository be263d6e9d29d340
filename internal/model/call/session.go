package call

import (
	"sync"
	"time"
)

// Status describes the lifecycle stage of a call session. Transitions are
// monotonic: Active -> Ending -> Closed, never backward.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusEnding Status = "ENDING"
	StatusClosed Status = "CLOSED"
)

// Participant is an identity confirmed present on the call.
type Participant struct {
	IdentityID       string `json:"id"`
	Name             string `json:"name"`
	RelationshipType string `json:"relationship_type"`
}

// UnknownFace is an unmatched face embedding observed during the call,
// retained so the client can offer profile creation afterwards.
type UnknownFace struct {
	Embedding  []float64 `json:"face_embedding"`
	CapturedAt int64     `json:"timestamp"`
}

// Session is the processing context for one live call.
type Session struct {
	ID        string
	OwnerID   string
	StartedAt time.Time

	mu             sync.Mutex
	status         Status
	participants   []Participant
	pendingUnknown []UnknownFace
	lastActivity   time.Time
}

// NewSession creates an active session owned by the given identity.
func NewSession(id, ownerID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		OwnerID:      ownerID,
		StartedAt:    now,
		status:       StatusActive,
		lastActivity: now,
	}
}

// Status returns the current lifecycle stage.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// BeginEnding moves an active session to ENDING. It reports false when the
// session already left the active stage, keeping the transition monotonic.
func (s *Session) BeginEnding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return false
	}
	s.status = StatusEnding
	return true
}

// MarkClosed completes the lifecycle. Closing an already closed session is a
// no-op.
func (s *Session) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusClosed
}

// Touch records inbound or job activity for the idle sweep.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now().UTC()
}

// LastActivity returns the most recent activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// AddParticipant records a confirmed identity, deduplicating by identity id.
// It reports whether the participant was newly added.
func (s *Session) AddParticipant(p Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants {
		if existing.IdentityID == p.IdentityID {
			return false
		}
	}
	s.participants = append(s.participants, p)
	return true
}

// Participants returns a copy of the confirmed participant list.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Participant, len(s.participants))
	copy(copied, s.participants)
	return copied
}

// AddUnknownFace appends an unmatched embedding in observation order.
func (s *Session) AddUnknownFace(f UnknownFace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingUnknown = append(s.pendingUnknown, f)
}

// UnknownFaces returns a copy of the unmatched embeddings seen so far.
func (s *Session) UnknownFaces() []UnknownFace {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]UnknownFace, len(s.pendingUnknown))
	copy(copied, s.pendingUnknown)
	return copied
}
