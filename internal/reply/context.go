// Package reply turns a turn's session context into one safe, validated
// outgoing message. Candidates flow through a priority order — rewrite,
// audited pick, raw generations, templates — and the first one to pass
// the hard-reject rules wins. A deterministic fallback pool guarantees
// the pipeline always has something to say.
package reply

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/persona"
	"github.com/MikeSquared-Agency/siren/internal/stage"
)

// TurnContext is everything a strategy needs to know about the current
// turn. It is assembled by the orchestrator from session state and the
// inbound message; the reply package never touches the session itself.
type TurnContext struct {
	SessionID string
	TurnIndex int

	Stage     stage.Stage
	Objective stage.Objective

	LastMessage string            // adversary's latest message, raw
	LastReplies []string          // last accepted agent replies, most recent last
	KnownFacts  map[string]string // scalar facts gathered so far

	// HasLinkContext is true when the adversary's current message or
	// the session's known facts already reference a link or payment
	// handle. Replies may only chase links when this holds.
	HasLinkContext bool

	MaxLen   int
	Tags     persona.Tags
	Examples []string
}

// Strategy produces the final reply for a turn within the given
// wall-clock budget. The returned note is surfaced as agentNotes;
// "fallback" means every candidate tier was exhausted.
type Strategy interface {
	Name() string
	Reply(ctx context.Context, tc TurnContext, budget time.Duration) (text string, note string)
}
