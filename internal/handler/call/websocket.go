package call

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	callmodel "github.com/pcheng/callscribe/internal/model/call"
	"github.com/pcheng/callscribe/internal/service/pipeline"
)

// Inbound envelope types.
const (
	msgCallStart  = "call_start"
	msgVideoChunk = "video_chunk"
	msgAudioChunk = "audio_chunk"
	msgCallEnd    = "call_end"
)

// envelope is the inbound message frame. Only the fields relevant to the
// declared type are populated.
type envelope struct {
	Type      string `json:"type"`
	VideoData string `json:"video_data,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// connState tracks one connection's session binding.
type connState struct {
	ownerID   string
	sessionID string
	sub       *pipeline.Subscriber
}

// handleWebSocket is the per-connection protocol handler. Inbound messages
// are validated and handed to the dispatcher; broadcast events are relayed
// back in order through a single writer goroutine.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	if ownerID == "" {
		http.Error(w, "ownerID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection owner=%s", ownerID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	state := &connState{ownerID: ownerID}
	out := make(chan callmodel.Event, 64)

	go h.writeLoop(ctx, conn, out)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.send(ctx, out, callmodel.ConnectionEstablished{Message: "Connected to call processing service"})

	defer func() {
		// a dropped connection does not close the session; the idle sweep
		// will finalize it if the client never comes back
		if state.sub != nil {
			h.hub.Unsubscribe(state.sub)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error owner=%s: %v", ownerID, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			h.handleMessage(ctx, state, raw, out)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, state *connState, raw []byte, out chan<- callmodel.Event) {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.send(ctx, out, callmodel.ErrorEvent{Message: "Invalid JSON format"})
		return
	}

	switch msg.Type {
	case msgCallStart:
		h.handleCallStart(ctx, state, out)
	case msgVideoChunk:
		h.handleChunk(ctx, state, out, msg, "video")
	case msgAudioChunk:
		h.handleChunk(ctx, state, out, msg, "audio")
	case msgCallEnd:
		h.handleCallEnd(ctx, state, out)
	default:
		h.send(ctx, out, callmodel.ErrorEvent{Message: "unsupported message type: " + msg.Type})
	}
}

func (h *Handler) handleCallStart(ctx context.Context, state *connState, out chan<- callmodel.Event) {
	sessionID := SessionKey(state.ownerID)

	if _, err := h.registry.Open(sessionID, state.ownerID); err != nil {
		h.send(ctx, out, callmodel.ErrorEvent{Message: err.Error()})
		return
	}
	state.sessionID = sessionID

	// subscribe before acking so nothing published after the ack is missed
	if state.sub == nil {
		state.sub = h.hub.Subscribe(sessionID)
		go h.forwardEvents(ctx, state.sub, out)
	}

	h.send(ctx, out, callmodel.CallStarted{Message: "Call processing started"})
}

func (h *Handler) handleChunk(ctx context.Context, state *connState, out chan<- callmodel.Event, msg envelope, chunkType string) {
	if state.sessionID == "" {
		h.send(ctx, out, callmodel.ErrorEvent{Message: "call has not been started"})
		return
	}

	encoded := msg.VideoData
	if chunkType == "audio" {
		encoded = msg.AudioData
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		h.send(ctx, out, callmodel.ErrorEvent{Message: "invalid " + chunkType + " payload"})
		return
	}

	job := pipeline.RecognizeFaceJob(payload, msg.Timestamp)
	if chunkType == "audio" {
		job = pipeline.TranscribeJob(payload, msg.Timestamp)
	}

	if err := h.registry.Route(state.sessionID, job); err != nil {
		h.send(ctx, out, callmodel.ErrorEvent{Message: err.Error()})
		return
	}

	h.send(ctx, out, callmodel.ChunkReceived{ChunkType: chunkType, Timestamp: msg.Timestamp})
}

func (h *Handler) handleCallEnd(ctx context.Context, state *connState, out chan<- callmodel.Event) {
	if state.sessionID == "" {
		h.send(ctx, out, callmodel.ErrorEvent{Message: "call has not been started"})
		return
	}

	if err := h.registry.Close(state.sessionID); err != nil {
		h.send(ctx, out, callmodel.ErrorEvent{Message: err.Error()})
		return
	}

	h.send(ctx, out, callmodel.CallEnded{Message: "Call processing completed"})
}

// forwardEvents copies broadcast events into the connection's outbound
// queue until the subscription or connection ends.
func (h *Handler) forwardEvents(ctx context.Context, sub *pipeline.Subscriber, out chan<- callmodel.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// writeLoop is the single writer for the connection; pings share it so no
// two goroutines ever write concurrently.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan callmodel.Event) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-out:
			data, err := callmodel.MarshalEvent(ev)
			if err != nil {
				log.Printf("[websocket] marshal event failed: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[websocket] write failed: %v", err)
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, out chan<- callmodel.Event, ev callmodel.Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// SessionKey derives the session id for an owner's live call. One call per
// owner at a time; a reconnect lands back on the same session until it
// closes.
func SessionKey(ownerID string) string {
	return "call_" + ownerID
}
