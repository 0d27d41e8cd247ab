// Package stage holds the engagement stage machine and the objective
// ladder. Stage transitions are strictly forward-only and driven by
// repetition signals over the trailing three adversary messages.
package stage

import (
	"github.com/MikeSquared-Agency/siren/internal/intel"
	"github.com/MikeSquared-Agency/siren/internal/scoring"
)

// Stage is the coarse behavioral posture of the synthetic victim.
type Stage int

const (
	Confused Stage = iota
	Suspicious
	Assertive
)

func (s Stage) String() string {
	switch s {
	case Suspicious:
		return "SUSPICIOUS"
	case Assertive:
		return "ASSERTIVE"
	default:
		return "CONFUSED"
	}
}

// ParseStage maps a persisted stage label back to its rank. Unknown
// labels fall back to Confused so legacy records stay loadable.
func ParseStage(s string) Stage {
	switch s {
	case "SUSPICIOUS":
		return Suspicious
	case "ASSERTIVE":
		return Assertive
	default:
		return Confused
	}
}

// WindowSignals are the repetition conditions computed over the last
// three non-empty adversary messages.
type WindowSignals struct {
	UrgencyRepeat    bool
	SameDemandRepeat bool
	PushyRepeat      bool
}

// Window computes the trailing-window signals from raw adversary
// messages (most recent last). Only the last three non-empty messages
// are considered.
func Window(messages []string) WindowSignals {
	var window []string
	for i := len(messages) - 1; i >= 0 && len(window) < 3; i-- {
		if messages[i] != "" {
			window = append(window, intel.Normalize(messages[i]))
		}
	}

	urgency, pushy := 0, 0
	buckets := make(map[string]int)
	for _, norm := range window {
		if intel.KeywordClasses(norm)["urgency"] {
			urgency++
		}
		if b := scoring.DemandBucket(norm); b != "" {
			pushy++
			buckets[b]++
		}
	}

	sameDemand := false
	for _, n := range buckets {
		if n >= 2 {
			sameDemand = true
		}
	}

	return WindowSignals{
		UrgencyRepeat:    urgency >= 2,
		SameDemandRepeat: sameDemand,
		PushyRepeat:      pushy >= 2,
	}
}

// Next returns the stage for the coming turn. It never moves backward;
// Assertive is terminal.
func Next(current Stage, sig WindowSignals, turnCount int) Stage {
	switch current {
	case Confused:
		if turnCount >= 2 && (sig.UrgencyRepeat || sig.SameDemandRepeat) {
			return Suspicious
		}
	case Suspicious:
		if turnCount >= 4 && (sig.SameDemandRepeat || sig.PushyRepeat) {
			return Assertive
		}
	}
	return current
}
