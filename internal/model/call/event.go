package call

import (
	"encoding/json"
	"fmt"
)

// Event is the closed set of server-pushed messages on a session stream.
// MarshalEvent is the single place the variants meet the wire format, so a
// new variant that is not serializable fails loudly there.
type Event interface {
	isEvent()
}

// ConnectionEstablished acknowledges a fresh client connection.
type ConnectionEstablished struct {
	Message string `json:"message"`
}

// CallStarted acknowledges session creation.
type CallStarted struct {
	Message string `json:"message"`
}

// ChunkReceived acknowledges receipt of one media chunk.
type ChunkReceived struct {
	ChunkType string `json:"chunk_type"`
	Timestamp int64  `json:"timestamp"`
}

// CallEnded acknowledges the end-of-call request.
type CallEnded struct {
	Message string `json:"message"`
}

// NoteSummary is a stored note attached to an identified participant.
type NoteSummary struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Importance int    `json:"importance"`
	CreatedAt  string `json:"created_at"`
}

// ParticipantIdentified reports a face matched against a stored signature.
type ParticipantIdentified struct {
	Participant Participant   `json:"participant"`
	Notes       []NoteSummary `json:"notes"`
}

// NewParticipant reports an unmatched face, carrying the raw embedding so the
// client can offer profile creation.
type NewParticipant struct {
	Participant UnknownFace `json:"participant"`
}

// TranscriptionUpdate carries one transcribed audio fragment.
type TranscriptionUpdate struct {
	Transcription string `json:"transcription"`
	Timestamp     int64  `json:"timestamp"`
}

// NoteRecord is a persisted note produced at call end.
type NoteRecord struct {
	ID             string `json:"id"`
	RelationshipID string `json:"relationship_id"`
	Text           string `json:"text"`
	Importance     int    `json:"importance"`
}

// NoteGenerated reports one synthesized note committed to storage.
type NoteGenerated struct {
	Note NoteRecord `json:"note"`
}

// ErrorEvent reports a per-message or per-job failure without closing the
// stream.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ConnectionEstablished) isEvent() {}
func (CallStarted) isEvent()           {}
func (ChunkReceived) isEvent()         {}
func (CallEnded) isEvent()             {}
func (ParticipantIdentified) isEvent() {}
func (NewParticipant) isEvent()        {}
func (TranscriptionUpdate) isEvent()   {}
func (NoteGenerated) isEvent()         {}
func (ErrorEvent) isEvent()            {}

// MarshalEvent serializes an event into its wire envelope with the type tag.
func MarshalEvent(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case ConnectionEstablished:
		return tagged("connection_established", e)
	case CallStarted:
		return tagged("call_started", e)
	case ChunkReceived:
		return tagged("chunk_received", e)
	case CallEnded:
		return tagged("call_ended", e)
	case ParticipantIdentified:
		return tagged("participant_identified", e)
	case NewParticipant:
		return tagged("new_participant", e)
	case TranscriptionUpdate:
		return tagged("transcription_update", e)
	case NoteGenerated:
		return tagged("note_generated", e)
	case ErrorEvent:
		return tagged("error", e)
	default:
		return nil, fmt.Errorf("unknown event variant %T", ev)
	}
}

func tagged(kind string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("event payload must be an object, got %s", body)
	}
	tag := fmt.Sprintf(`{"type":%q`, kind)
	if len(body) == 2 {
		return []byte(tag + "}"), nil
	}
	return append([]byte(tag+","), body[1:]...), nil
}
