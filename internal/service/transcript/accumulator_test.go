package transcript

import "testing"

func TestAppendOrderedBySequence(t *testing.T) {
	acc := NewAccumulator()
	// fragments arrive out of network order
	acc.Append(3, "three ")
	acc.Append(1, "one ")
	acc.Append(2, "two ")

	if got := acc.Finalize(); got != "one two three " {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestAppendIdempotent(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(5, "x")
	acc.Append(5, "x")

	if acc.Len() != 1 {
		t.Fatalf("expected 1 fragment, got %d", acc.Len())
	}
	if got := acc.Finalize(); got != "x" {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestAppendRedeliveryOverwrites(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(1, "draft")
	acc.Append(1, "final")

	if got := acc.Finalize(); got != "final" {
		t.Fatalf("redelivery should overwrite, got %q", got)
	}
}

func TestFinalizeSkipsGaps(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(1, "start ")
	acc.Append(9, "end")

	if got := acc.Finalize(); got != "start end" {
		t.Fatalf("gaps must not block finalize, got %q", got)
	}
}

func TestFinalizeOnce(t *testing.T) {
	acc := NewAccumulator()
	acc.Append(1, "hello")

	first := acc.Finalize()
	acc.Append(2, " world") // too late, session is done
	second := acc.Finalize()

	if first != "hello" || second != "hello" {
		t.Fatalf("finalize must cache its result, got %q then %q", first, second)
	}
}

func TestFinalizeEmpty(t *testing.T) {
	acc := NewAccumulator()
	if got := acc.Finalize(); got != "" {
		t.Fatalf("empty accumulator should finalize to empty string, got %q", got)
	}
}
