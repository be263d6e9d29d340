package call

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	callmodel "github.com/pcheng/callscribe/internal/model/call"
	"github.com/pcheng/callscribe/internal/model/signature"
	"github.com/pcheng/callscribe/internal/service/pipeline"
	"github.com/pcheng/callscribe/pkg/utils"
)

// Handler exposes the call ingestion gateway and its side endpoints.
type Handler struct {
	registry *pipeline.Registry
	hub      *pipeline.Hub
	exec     *pipeline.Executor
	upgrader websocket.Upgrader
}

// New creates the call handler.
func New(registry *pipeline.Registry, hub *pipeline.Hub, exec *pipeline.Executor) *Handler {
	return &Handler{
		registry: registry,
		hub:      hub,
		exec:     exec,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes wires the call endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/call/ws/{ownerID}", h.handleWebSocket)
	r.Get("/call/events/{sessionID}", h.handleEventStream)
	r.Get("/call/sessions/{sessionID}", h.handleSessionStatus)
	r.Post("/call/identify", h.handleIdentify)
}

// handleEventStream is a read-only SSE tap on a session's event stream, for
// dashboards and debugging alongside the primary WebSocket client.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, ok := h.registry.Get(sessionID); !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	flusher.Flush()

	sub := h.hub.Subscribe(sessionID)
	defer h.hub.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			data, err := callmodel.MarshalEvent(ev)
			if err != nil {
				continue
			}
			utils.SendSSEData(w, flusher, data)
		}
	}
}

// handleSessionStatus reports a live session's lifecycle and progress.
func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	s, ok := h.registry.Get(sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId":      s.Call.ID,
		"ownerId":        s.Call.OwnerID,
		"status":         s.Call.Status(),
		"startedAt":      s.Call.StartedAt,
		"participants":   s.Call.Participants(),
		"pendingUnknown": len(s.Call.UnknownFaces()),
		"fragments":      s.Transcript.Len(),
	})
}

// handleIdentify matches a batch of embeddings against the owner's stored
// signatures, the quick participant check used at call start.
func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OwnerID    string      `json:"owner_id"`
		Kind       string      `json:"kind"`
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.OwnerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	kind := signature.KindFace
	switch payload.Kind {
	case "", "face":
	case "voice":
		kind = signature.KindVoice
	default:
		utils.RespondError(w, http.StatusBadRequest, "kind must be face or voice")
		return
	}

	identified := h.exec.Identify(payload.OwnerID, kind, payload.Embeddings)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"identified": identified})
}
