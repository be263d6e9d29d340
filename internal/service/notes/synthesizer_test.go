package notes

import (
	"context"
	"strings"
	"testing"
)

func TestParseDraftRecordsSingle(t *testing.T) {
	participants := []Participant{{IdentityID: "1", DisplayName: "Alice"}}

	drafts := parseDraftRecords("PERSON: Alice\nNOTE: Got a promotion\nIMPORTANCE: 8\n", participants)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].IdentityID != "1" || drafts[0].Text != "Got a promotion" || drafts[0].Importance != 8 {
		t.Fatalf("unexpected draft %+v", drafts[0])
	}
}

func TestParseDraftRecordsMultiple(t *testing.T) {
	participants := []Participant{
		{IdentityID: "1", DisplayName: "Alice"},
		{IdentityID: "2", DisplayName: "Bob"},
	}

	content := strings.Join([]string{
		"PERSON: Alice",
		"NOTE: Planning a trip to Kyoto",
		"IMPORTANCE: 6",
		"",
		"PERSON: bob",
		"NOTE: Started a new job at a startup",
		"IMPORTANCE: 9",
	}, "\n")

	drafts := parseDraftRecords(content, participants)
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[1].IdentityID != "2" {
		t.Fatalf("person matching must be case-insensitive, got %+v", drafts[1])
	}
	if drafts[1].Importance != 9 {
		t.Fatalf("unexpected importance %d", drafts[1].Importance)
	}
}

func TestParseDraftRecordsUnparsableImportance(t *testing.T) {
	participants := []Participant{{IdentityID: "1", DisplayName: "Alice"}}

	drafts := parseDraftRecords("PERSON: Alice\nNOTE: Something vague\nIMPORTANCE: very high\n", participants)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].Importance != 5 {
		t.Fatalf("unparsable importance must default to 5, got %d", drafts[0].Importance)
	}
}

func TestParseDraftRecordsUnmatchedPerson(t *testing.T) {
	participants := []Participant{{IdentityID: "1", DisplayName: "Alice"}}

	drafts := parseDraftRecords("PERSON: Charlie\nNOTE: Unknown speaker\nIMPORTANCE: 7\n", participants)
	if len(drafts) != 0 {
		t.Fatalf("unmatched person must produce no note, got %d", len(drafts))
	}
}

func TestParseDraftRecordsIncompleteRecord(t *testing.T) {
	participants := []Participant{{IdentityID: "1", DisplayName: "Alice"}}

	// IMPORTANCE without a preceding NOTE must not emit
	drafts := parseDraftRecords("PERSON: Alice\nIMPORTANCE: 8\n", participants)
	if len(drafts) != 0 {
		t.Fatalf("incomplete record must not emit, got %d", len(drafts))
	}
}

func TestParseDraftRecordsFieldsResetBetweenRecords(t *testing.T) {
	participants := []Participant{{IdentityID: "1", DisplayName: "Alice"}}

	content := strings.Join([]string{
		"PERSON: Alice",
		"NOTE: First note",
		"IMPORTANCE: 4",
		"NOTE: Orphaned note without a person",
		"IMPORTANCE: 9",
	}, "\n")

	drafts := parseDraftRecords(content, participants)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft after reset, got %d", len(drafts))
	}
	if drafts[0].Text != "First note" {
		t.Fatalf("unexpected draft %+v", drafts[0])
	}
}

func TestSynthesizeFallbackMentions(t *testing.T) {
	s, err := NewSynthesizer(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewSynthesizer err: %v", err)
	}

	participants := []Participant{
		{IdentityID: "1", DisplayName: "Alice"},
		{IdentityID: "2", DisplayName: "Bob"},
	}

	drafts := s.Synthesize(context.Background(), "today alice talked about her garden", participants)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 fallback draft, got %d", len(drafts))
	}
	if drafts[0].IdentityID != "1" {
		t.Fatalf("unexpected identity %s", drafts[0].IdentityID)
	}
	if drafts[0].Importance != 5 {
		t.Fatalf("fallback importance must be 5, got %d", drafts[0].Importance)
	}
	if !strings.HasPrefix(drafts[0].Text, "Mentioned in conversation: ") {
		t.Fatalf("unexpected fallback text %q", drafts[0].Text)
	}
}

func TestSynthesizeFallbackTruncatesExcerpt(t *testing.T) {
	s, _ := NewSynthesizer(context.Background(), nil)

	long := "alice " + strings.Repeat("a", 400)
	drafts := s.Synthesize(context.Background(), long, []Participant{{IdentityID: "1", DisplayName: "Alice"}})
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if !strings.HasSuffix(drafts[0].Text, "...") {
		t.Fatalf("long excerpt should be truncated, got %q", drafts[0].Text)
	}
}

func TestSynthesizeEmptyTranscript(t *testing.T) {
	s, _ := NewSynthesizer(context.Background(), nil)

	if drafts := s.Synthesize(context.Background(), "   ", []Participant{{IdentityID: "1", DisplayName: "Alice"}}); drafts != nil {
		t.Fatalf("empty transcript must yield no drafts, got %d", len(drafts))
	}
}
