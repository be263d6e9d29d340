package pipeline

import (
	"github.com/pcheng/callscribe/internal/model/call"
	"github.com/pcheng/callscribe/internal/service/transcript"
)

// Session bundles the call state with its owned transcript accumulator for
// the lifetime of one live call.
type Session struct {
	Call       *call.Session
	Transcript *transcript.Accumulator
}

func newSession(id, ownerID string) *Session {
	return &Session{
		Call:       call.NewSession(id, ownerID),
		Transcript: transcript.NewAccumulator(),
	}
}
