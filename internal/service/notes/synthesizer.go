package notes

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/pcheng/callscribe/internal/model/note"
)

const (
	fallbackImportance    = 5
	defaultImportance     = 5
	fallbackExcerptLength = 200
)

// Participant names an identity for the drafting prompt and record matching.
type Participant struct {
	IdentityID  string
	DisplayName string
}

// Synthesizer turns a finalized transcript into scored note drafts. The
// primary path runs a chat-model chain; when the model is unavailable a
// deterministic name-mention heuristic takes over. Synthesis never fails the
// caller: engine errors and malformed output degrade to an empty draft list.
type Synthesizer struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewSynthesizer creates a synthesizer. A nil chatModel yields a
// fallback-only synthesizer, mirroring how the service boots without model
// credentials.
func NewSynthesizer(ctx context.Context, chatModel model.ChatModel) (*Synthesizer, error) {
	s := &Synthesizer{}
	if chatModel == nil {
		return s, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(draftSystemPrompt),
		schema.UserMessage(draftUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile note drafting chain: %w", err)
	}

	s.chain = runnable
	return s, nil
}

// Enabled reports whether the drafting model is wired in.
func (s *Synthesizer) Enabled() bool {
	return s != nil && s.chain != nil
}

// Synthesize produces note drafts for the given transcript and participants.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript string, participants []Participant) []note.Draft {
	if strings.TrimSpace(transcript) == "" || len(participants) == 0 {
		return nil
	}

	if !s.Enabled() {
		return fallbackDrafts(transcript, participants)
	}

	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
	}

	input := map[string]any{
		"participants": strings.Join(names, ", "),
		"transcript":   transcript,
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[notes] drafting chain invoke failed: %v", err)
		return nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		log.Printf("[notes] drafting model returned empty output")
		return nil
	}

	drafts := parseDraftRecords(msg.Content, participants)
	log.Printf("[notes] synthesized %d draft(s) from %d participant(s)", len(drafts), len(participants))
	return drafts
}

// parseDraftRecords walks the model output line by line. A record is emitted
// only after PERSON, NOTE and IMPORTANCE have all been seen in that order;
// fields reset after each emission. Person matching against the participant
// list is case-insensitive and exact; first match wins, unmatched persons
// produce no note.
func parseDraftRecords(content string, participants []Participant) []note.Draft {
	var drafts []note.Draft

	var currentPerson, currentNote string
	currentImportance := defaultImportance

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "PERSON:"):
			currentPerson = strings.TrimSpace(strings.TrimPrefix(line, "PERSON:"))
		case strings.HasPrefix(line, "NOTE:"):
			currentNote = strings.TrimSpace(strings.TrimPrefix(line, "NOTE:"))
		case strings.HasPrefix(line, "IMPORTANCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "IMPORTANCE:"))
			importance, err := strconv.Atoi(raw)
			if err != nil {
				importance = defaultImportance
			}
			currentImportance = importance

			if currentPerson != "" && currentNote != "" {
				for _, p := range participants {
					if strings.EqualFold(p.DisplayName, currentPerson) {
						drafts = append(drafts, note.Draft{
							IdentityID: p.IdentityID,
							Text:       currentNote,
							Importance: currentImportance,
						})
						break
					}
				}
			}

			currentPerson = ""
			currentNote = ""
			currentImportance = defaultImportance
		}
	}

	return drafts
}

// fallbackDrafts emits one fixed-importance note per participant whose name
// appears in the transcript.
func fallbackDrafts(transcript string, participants []Participant) []note.Draft {
	lowered := strings.ToLower(transcript)

	var drafts []note.Draft
	for _, p := range participants {
		if p.DisplayName == "" {
			continue
		}
		if !strings.Contains(lowered, strings.ToLower(p.DisplayName)) {
			continue
		}

		excerpt := transcript
		if len(excerpt) > fallbackExcerptLength {
			excerpt = excerpt[:fallbackExcerptLength] + "..."
		}

		drafts = append(drafts, note.Draft{
			IdentityID: p.IdentityID,
			Text:       "Mentioned in conversation: " + excerpt,
			Importance: fallbackImportance,
		})
	}

	return drafts
}
