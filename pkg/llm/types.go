package llm

import (
	"time"

	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// Request is a single synchronous generation call (spec §4.1).
type Request struct {
	Prompt string
	Params models.ModelParams
}

// Response is the LLM Gateway's capture contract: the raw exchange paired
// with token accounting, returned directly to the caller rather than
// stashed in thread-local state, so the Evaluation Manager can attach the
// exact exchange to the CleanedTurn/CalledFunction row it produced (see
// DESIGN.md for why this departs from the teacher's streaming-channel
// shape).
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	RawRequest   string
	RawResponse  string
	RequestedAt  time.Time
	RespondedAt  time.Time
	Success      bool
}
