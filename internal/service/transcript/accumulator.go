package transcript

import (
	"sort"
	"strings"
	"sync"
)

// Accumulator collects transcript fragments for one session. Fragments are
// keyed by sequence number, so re-delivery overwrites instead of duplicating
// and network arrival order does not matter.
type Accumulator struct {
	mu        sync.Mutex
	fragments map[int64]string
	finalized bool
	result    string
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{fragments: make(map[int64]string)}
}

// Append records a fragment at the given sequence number. Appending the same
// sequence number twice keeps exactly one fragment at that position. Appends
// after Finalize are dropped.
func (a *Accumulator) Append(sequenceNo int64, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return
	}
	a.fragments[sequenceNo] = text
}

// Len reports the number of distinct fragments received.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fragments)
}

// Finalize joins all fragments in ascending sequence order and caches the
// result; later calls return the cached transcript. Gaps in the sequence are
// skipped, so the result may be a partial transcript when fragments were
// lost in flight.
func (a *Accumulator) Finalize() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return a.result
	}

	keys := make([]int64, 0, len(a.fragments))
	for key := range a.fragments {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(a.fragments[key])
	}

	a.result = builder.String()
	a.finalized = true
	return a.result
}
