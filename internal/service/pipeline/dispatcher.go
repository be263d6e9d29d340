package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/pcheng/callscribe/internal/model/call"
)

var (
	// ErrUnknownSession reports routing to a session that is closed or was
	// never opened.
	ErrUnknownSession = errors.New("unknown session")
	// ErrSessionClosing reports a chunk submitted after call_end.
	ErrSessionClosing = errors.New("session is closing")
	// ErrQueueFull reports backpressure on a session's job lane.
	ErrQueueFull = errors.New("session job queue is full")
)

// Dispatcher fans ingestion jobs out to a bounded worker pool. Each session
// gets one FIFO lane per chunk job kind, so two video frames complete in
// submission order while a video frame and an audio fragment may complete in
// either order. Sessions run fully in parallel against each other, bounded
// only by the global worker semaphore.
type Dispatcher struct {
	exec       *Executor
	hub        *Hub
	workers    *semaphore.Weighted
	queueDepth int

	onFinalized func(sessionID string)

	mu       sync.Mutex
	sessions map[string]*sessionQueues
}

type sessionQueues struct {
	sess  *Session
	lanes map[JobKind]chan Job

	// inflight counts queued and running chunk jobs; the finalize barrier
	// waits on it so the synthesized transcript never misses a fragment
	// that was already in flight when call_end arrived.
	inflight sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

// NewDispatcher creates a dispatcher with the given global worker bound and
// per-lane queue depth.
func NewDispatcher(exec *Executor, hub *Hub, workers int64, queueDepth int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 32
	}
	return &Dispatcher{
		exec:       exec,
		hub:        hub,
		workers:    semaphore.NewWeighted(workers),
		queueDepth: queueDepth,
		sessions:   make(map[string]*sessionQueues),
	}
}

// OnFinalized registers a callback invoked after a session's finalize job
// completes and its queues are torn down.
func (d *Dispatcher) OnFinalized(fn func(sessionID string)) {
	d.onFinalized = fn
}

// Register creates the job lanes for a freshly opened session.
func (d *Dispatcher) Register(s *Session) {
	sq := &sessionQueues{
		sess: s,
		lanes: map[JobKind]chan Job{
			JobRecognizeFace: make(chan Job, d.queueDepth),
			JobTranscribe:    make(chan Job, d.queueDepth),
		},
	}

	d.mu.Lock()
	d.sessions[s.Call.ID] = sq
	d.mu.Unlock()

	for _, lane := range sq.lanes {
		go d.runLane(sq, lane)
	}
}

// Submit enqueues a job for the session. Chunk jobs are rejected with
// ErrQueueFull when the lane is at capacity and with ErrSessionClosing once
// finalize has been requested. A duplicate finalize request is a no-op.
func (d *Dispatcher) Submit(sessionID string, job Job) error {
	d.mu.Lock()
	sq, ok := d.sessions[sessionID]
	d.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	if job.Kind == JobFinalize {
		sq.mu.Lock()
		if sq.closing {
			sq.mu.Unlock()
			return nil
		}
		sq.closing = true
		sq.mu.Unlock()

		go d.finalize(sessionID, sq)
		return nil
	}

	lane, known := sq.lanes[job.Kind]
	if !known {
		return fmt.Errorf("no lane for job kind %q", job.Kind)
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closing {
		return ErrSessionClosing
	}

	sq.inflight.Add(1)
	select {
	case lane <- job:
		return nil
	default:
		sq.inflight.Done()
		return ErrQueueFull
	}
}

func (d *Dispatcher) runLane(sq *sessionQueues, lane chan Job) {
	for job := range lane {
		d.runJob(sq, job)
		sq.inflight.Done()
	}
}

func (d *Dispatcher) runJob(sq *sessionQueues, job Job) {
	if err := d.workers.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer d.workers.Release(1)

	if err := d.safeExecute(sq.sess, job); err != nil {
		log.Printf("[dispatch] job failed session=%s kind=%s: %v", sq.sess.Call.ID, job.Kind, err)
		d.hub.Publish(sq.sess.Call.ID, call.ErrorEvent{Message: fmt.Sprintf("%s failed: %v", job.Kind, err)})
	}

	// job completion counts as session activity for the idle sweep
	sq.sess.Call.Touch()
}

// safeExecute converts panics inside a job body into ordinary errors so a
// single bad chunk can never take down the dispatcher.
func (d *Dispatcher) safeExecute(s *Session, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return d.exec.Execute(context.Background(), s, job)
}

func (d *Dispatcher) finalize(sessionID string, sq *sessionQueues) {
	// barrier: every previously submitted chunk job must complete first
	sq.inflight.Wait()

	if err := d.workers.Acquire(context.Background(), 1); err != nil {
		return
	}
	if err := d.safeExecute(sq.sess, FinalizeJob()); err != nil {
		log.Printf("[dispatch] finalize failed session=%s: %v", sessionID, err)
		d.hub.Publish(sessionID, call.ErrorEvent{Message: fmt.Sprintf("finalize failed: %v", err)})
		sq.sess.Call.MarkClosed()
	}
	d.workers.Release(1)

	sq.mu.Lock()
	for _, lane := range sq.lanes {
		close(lane)
	}
	sq.mu.Unlock()

	d.mu.Lock()
	delete(d.sessions, sessionID)
	d.mu.Unlock()

	if d.onFinalized != nil {
		d.onFinalized(sessionID)
	}
}
