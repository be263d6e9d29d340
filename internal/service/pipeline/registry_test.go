package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pcheng/callscribe/internal/model/call"
	notesvc "github.com/pcheng/callscribe/internal/service/notes"
	"github.com/pcheng/callscribe/internal/store"
)

func newBareRegistry(t *testing.T, idleTimeout, sweepInterval time.Duration) *Registry {
	t.Helper()

	directory := store.NewMemoryDirectory(nil)
	signatures := store.NewSignatureStore(directory, 0.95)
	synth, err := notesvc.NewSynthesizer(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewSynthesizer err: %v", err)
	}

	hub := NewHub()
	exec := NewExecutor(newFakeFaceEngine(), &fakeSpeechEngine{}, signatures, directory, store.NewMemoryNotes(), synth, hub, 0.6, 0.7)
	return NewRegistry(NewDispatcher(exec, hub, 4, 32), idleTimeout, sweepInterval)
}

func TestOpenIdempotent(t *testing.T) {
	r := newBareRegistry(t, time.Minute, time.Minute)

	first, err := r.Open("call_u1", "u1")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	second, err := r.Open("call_u1", "u1")
	if err != nil {
		t.Fatalf("re-open err: %v", err)
	}
	if first != second {
		t.Fatal("re-open of an active session must return the same session")
	}
}

func TestRouteUnknownSession(t *testing.T) {
	r := newBareRegistry(t, time.Minute, time.Minute)

	if err := r.Route("nope", TranscribeJob([]byte("x"), 1)); err != ErrUnknownSession {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestCloseUnknownSession(t *testing.T) {
	r := newBareRegistry(t, time.Minute, time.Minute)

	if err := r.Close("nope"); err != ErrUnknownSession {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestCloseTwiceIsNoOp(t *testing.T) {
	r := newBareRegistry(t, time.Minute, time.Minute)

	s, _ := r.Open("call_u1", "u1")
	if err := r.Close(s.Call.ID); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if err := r.Close(s.Call.ID); err != nil && err != ErrUnknownSession {
		t.Fatalf("duplicate close should be a no-op, got %v", err)
	}

	waitFor(t, 2*time.Second, "session closed", func() bool {
		return s.Call.Status() == call.StatusClosed
	})
}

func TestClosedSessionRemovedFromRegistry(t *testing.T) {
	r := newBareRegistry(t, time.Minute, time.Minute)

	s, _ := r.Open("call_u1", "u1")
	if err := r.Close(s.Call.ID); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	waitFor(t, 2*time.Second, "registry entry removed", func() bool {
		_, ok := r.Get(s.Call.ID)
		return !ok
	})

	// once removed, a fresh session can be opened under the same id
	replacement, err := r.Open(s.Call.ID, "u1")
	if err != nil {
		t.Fatalf("re-open after close err: %v", err)
	}
	if replacement == s {
		t.Fatal("expected a fresh session after close")
	}
}

func TestIdleSweepForceCloses(t *testing.T) {
	r := newBareRegistry(t, 30*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	s, _ := r.Open("call_u1", "u1")

	waitFor(t, 2*time.Second, "idle session force-closed", func() bool {
		return s.Call.Status() == call.StatusClosed
	})
}

func TestActiveSessionSurvivesSweep(t *testing.T) {
	r := newBareRegistry(t, 80*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	s, _ := r.Open("call_u1", "u1")

	// keep touching the session for a few sweep cycles
	for i := 0; i < 10; i++ {
		if err := r.Route(s.Call.ID, TranscribeJob([]byte("x"), int64(i))); err != nil {
			t.Fatalf("Route err: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if s.Call.Status() != call.StatusActive {
		t.Fatalf("active session was swept, status %s", s.Call.Status())
	}
}
