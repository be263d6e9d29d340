package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pcheng/callscribe/internal/model/call"
	"github.com/pcheng/callscribe/internal/model/signature"
	"github.com/pcheng/callscribe/internal/service/engine"
	notesvc "github.com/pcheng/callscribe/internal/service/notes"
	"github.com/pcheng/callscribe/internal/store"
)

const recentNoteLimit = 5

// Executor runs job bodies against the engines and stores, publishing
// results on the session's event stream. Engine failures degrade to empty
// results so downstream stages still run; only unexpected errors bubble up
// to the dispatcher's error-event conversion.
type Executor struct {
	faces      engine.FaceEngine
	speech     engine.SpeechEngine
	signatures *store.SignatureStore
	identities store.IdentityDirectory
	noteStore  store.NoteStore
	synth      *notesvc.Synthesizer
	hub        *Hub

	faceThreshold  float64
	voiceThreshold float64
}

// NewExecutor wires the job bodies to their collaborators.
func NewExecutor(
	faces engine.FaceEngine,
	speech engine.SpeechEngine,
	signatures *store.SignatureStore,
	identities store.IdentityDirectory,
	noteStore store.NoteStore,
	synth *notesvc.Synthesizer,
	hub *Hub,
	faceThreshold, voiceThreshold float64,
) *Executor {
	return &Executor{
		faces:          faces,
		speech:         speech,
		signatures:     signatures,
		identities:     identities,
		noteStore:      noteStore,
		synth:          synth,
		hub:            hub,
		faceThreshold:  faceThreshold,
		voiceThreshold: voiceThreshold,
	}
}

// Execute runs one job for the session.
func (e *Executor) Execute(ctx context.Context, s *Session, job Job) error {
	switch job.Kind {
	case JobRecognizeFace:
		return e.recognizeFace(ctx, s, job)
	case JobTranscribe:
		return e.transcribe(ctx, s, job)
	case JobFinalize:
		return e.finalize(ctx, s)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (e *Executor) recognizeFace(ctx context.Context, s *Session, job Job) error {
	faces, err := e.faces.DetectFaces(ctx, job.Payload)
	if err != nil {
		log.Printf("[dispatch] face engine failed, frame skipped session=%s: %v", s.Call.ID, err)
		return nil
	}

	for _, detection := range faces {
		result := e.signatures.FindMatch(s.Call.OwnerID, signature.KindFace, detection.Embedding, e.faceThreshold)
		if !result.Matched {
			unknown := call.UnknownFace{Embedding: detection.Embedding, CapturedAt: job.CapturedAt}
			s.Call.AddUnknownFace(unknown)
			e.hub.Publish(s.Call.ID, call.NewParticipant{Participant: unknown})
			continue
		}

		identity, ok := e.identities.FindByID(result.IdentityID)
		if !ok {
			log.Printf("[dispatch] matched signature points at missing identity=%s", result.IdentityID)
			continue
		}

		participant := call.Participant{
			IdentityID:       identity.ID,
			Name:             identity.Name,
			RelationshipType: identity.RelationshipType,
		}
		s.Call.AddParticipant(participant)

		recent := e.noteStore.TopActive(identity.ID, recentNoteLimit)
		summaries := make([]call.NoteSummary, 0, len(recent))
		for _, n := range recent {
			summaries = append(summaries, call.NoteSummary{
				ID:         n.ID,
				Text:       n.Text,
				Importance: n.Importance,
				CreatedAt:  n.CreatedAt.Format(time.RFC3339),
			})
		}

		e.hub.Publish(s.Call.ID, call.ParticipantIdentified{Participant: participant, Notes: summaries})
	}

	return nil
}

func (e *Executor) transcribe(ctx context.Context, s *Session, job Job) error {
	text, err := e.speech.Transcribe(ctx, job.Payload)
	if err != nil {
		// the speech boundary contract is empty-on-failure; keep the
		// fragment slot so finalize is not blocked
		log.Printf("[dispatch] speech engine failed session=%s: %v", s.Call.ID, err)
		text = ""
	}

	s.Transcript.Append(job.CapturedAt, text)
	e.hub.Publish(s.Call.ID, call.TranscriptionUpdate{Transcription: text, Timestamp: job.CapturedAt})
	return nil
}

func (e *Executor) finalize(ctx context.Context, s *Session) error {
	full := s.Transcript.Finalize()
	participants := s.Call.Participants()

	named := make([]notesvc.Participant, 0, len(participants))
	for _, p := range participants {
		named = append(named, notesvc.Participant{IdentityID: p.IdentityID, DisplayName: p.Name})
	}

	drafts := e.synth.Synthesize(ctx, full, named)
	for _, draft := range drafts {
		created, err := e.noteStore.Create(ctx, draft)
		if err != nil {
			log.Printf("[dispatch] note persistence failed session=%s: %v", s.Call.ID, err)
			e.hub.Publish(s.Call.ID, call.ErrorEvent{Message: "failed to store generated note"})
			continue
		}
		e.hub.Publish(s.Call.ID, call.NoteGenerated{Note: call.NoteRecord{
			ID:             created.ID,
			RelationshipID: created.IdentityID,
			Text:           created.Text,
			Importance:     created.Importance,
		}})
	}

	s.Call.MarkClosed()
	log.Printf("[dispatch] session finalized session=%s participants=%d fragments=%d notes=%d",
		s.Call.ID, len(participants), s.Transcript.Len(), len(drafts))
	return nil
}

// Identify matches a batch of embeddings of the given kind against the
// owner's stored signatures and returns the distinct identities found. Used
// for the quick participant check at call start.
func (e *Executor) Identify(ownerID string, kind signature.Kind, embeddings [][]float64) []call.Participant {
	threshold := e.faceThreshold
	if kind == signature.KindVoice {
		threshold = e.voiceThreshold
	}

	seen := make(map[string]struct{})
	identified := make([]call.Participant, 0)
	for _, embedding := range embeddings {
		result := e.signatures.FindMatch(ownerID, kind, embedding, threshold)
		if !result.Matched {
			continue
		}
		if _, dup := seen[result.IdentityID]; dup {
			continue
		}
		identity, ok := e.identities.FindByID(result.IdentityID)
		if !ok {
			continue
		}
		seen[result.IdentityID] = struct{}{}
		identified = append(identified, call.Participant{
			IdentityID:       identity.ID,
			Name:             identity.Name,
			RelationshipType: identity.RelationshipType,
		})
	}
	return identified
}
