package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pcheng/callscribe/internal/model/call"
)

// Registry tracks one Session per active call and routes work to the
// dispatcher. A background sweep force-closes sessions with no activity
// within the idle timeout, running finalize as if call_end had arrived.
type Registry struct {
	dispatcher    *Dispatcher
	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry bound to the dispatcher.
func NewRegistry(dispatcher *Dispatcher, idleTimeout, sweepInterval time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = 2 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}

	r := &Registry{
		dispatcher:    dispatcher,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		sessions:      make(map[string]*Session),
	}
	dispatcher.OnFinalized(r.remove)
	return r
}

// Open creates a session if absent. Re-opening an existing active session is
// a no-op returning the same session; a session already on its way out
// cannot be reopened until finalize removes it.
func (r *Registry) Open(sessionID, ownerID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		if existing.Call.Status() == call.StatusActive {
			return existing, nil
		}
		return nil, ErrSessionClosing
	}

	s := newSession(sessionID, ownerID)
	r.sessions[sessionID] = s
	r.dispatcher.Register(s)

	log.Printf("[registry] session opened session=%s owner=%s", sessionID, ownerID)
	return s, nil
}

// Get returns the session if it is currently tracked.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Route forwards a chunk job to the session's dispatcher lanes.
func (r *Registry) Route(sessionID string, job Job) error {
	s, ok := r.Get(sessionID)
	if !ok {
		return ErrUnknownSession
	}

	switch s.Call.Status() {
	case call.StatusClosed:
		return ErrUnknownSession
	case call.StatusEnding:
		return ErrSessionClosing
	}

	s.Call.Touch()
	return r.dispatcher.Submit(sessionID, job)
}

// Close moves the session to ENDING and queues the finalize job behind the
// in-flight work. The CLOSED transition happens inside the job. Closing an
// already ending session is a no-op.
func (r *Registry) Close(sessionID string) error {
	s, ok := r.Get(sessionID)
	if !ok {
		return ErrUnknownSession
	}

	if !s.Call.BeginEnding() {
		return nil
	}

	log.Printf("[registry] session ending session=%s", sessionID)
	return r.dispatcher.Submit(sessionID, FinalizeJob())
}

// Run executes the idle sweep until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	cutoff := time.Now().UTC().Add(-r.idleTimeout)

	r.mu.RLock()
	var idle []string
	for id, s := range r.sessions {
		if s.Call.Status() == call.StatusActive && s.Call.LastActivity().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		log.Printf("[registry] force-closing idle session session=%s", id)
		if err := r.Close(id); err != nil {
			log.Printf("[registry] idle close failed session=%s: %v", id, err)
		}
	}
}

func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	log.Printf("[registry] session closed session=%s", sessionID)
}
