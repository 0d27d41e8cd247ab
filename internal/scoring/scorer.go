// Package scoring turns lexical signals and prior persona state into
// numeric risk and stress scores. All functions are pure; history lives
// in the session, not here.
package scoring

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/siren/internal/intel"
)

// PersonaState holds the five behavioral scalars of the synthetic
// victim, each in [0,1]. Mutated only through bounded additive nudges.
type PersonaState struct {
	Anxiety        float64 `json:"anxiety"`
	Confusion      float64 `json:"confusion"`
	Overwhelm      float64 `json:"overwhelm"`
	TrustAuthority float64 `json:"trustAuthority"`
	Compliance     float64 `json:"compliance"`
}

// DefaultPersonaState is the starting posture for a fresh session.
func DefaultPersonaState() PersonaState {
	return PersonaState{
		Anxiety:        0.3,
		Confusion:      0.4,
		Overwhelm:      0.2,
		TrustAuthority: 0.5,
		Compliance:     0.5,
	}
}

// Signals are the five boolean risk indicators detected in one message.
type Signals struct {
	Urgency    bool `json:"urgency"`
	Authority  bool `json:"authority"`
	Threat     bool `json:"threat"`
	Credential bool `json:"credential"`
	Payment    bool `json:"payment"`
}

// Result is the per-message scoring outcome.
type Result struct {
	ScamScore   float64
	StressScore float64
	Signals     Signals
}

// Override floors (tunable, not derived from a documented model).
const (
	credentialFloor     = 0.98
	linkUrgencyFloor    = 0.95
	accountUrgencyFloor = 0.90
)

var (
	linkHintRe   = regexp.MustCompile(`https?://|upi://|\bclick\b|\blink\b`)
	accountAskRe = regexp.MustCompile(`account\s*(?:number|no|details)|card\s*(?:number|no|details)`)
	credentialRe = regexp.MustCompile(`\botp\b|\bpin\b|\bcvv\b|\bmpin\b|password|passcode`)
)

// Score evaluates one normalized message against the prior persona
// state. It never mutates the prior state.
func Score(normalizedText string, prior PersonaState) Result {
	classes := intel.KeywordClasses(normalizedText)
	sig := Signals{
		Urgency:    classes["urgency"],
		Authority:  classes["authority"],
		Threat:     classes["threat"],
		Credential: classes["credential"] || credentialRe.MatchString(normalizedText),
		Payment:    classes["payment"],
	}

	scam := mean(b2f(sig.Urgency), b2f(sig.Authority), b2f(sig.Threat), b2f(sig.Credential), b2f(sig.Payment))

	if credentialRe.MatchString(normalizedText) && scam < credentialFloor {
		scam = credentialFloor
	}
	if sig.Urgency && linkHintRe.MatchString(normalizedText) && scam < linkUrgencyFloor {
		scam = linkUrgencyFloor
	}
	if sig.Urgency && accountAskRe.MatchString(normalizedText) && scam < accountUrgencyFloor {
		scam = accountUrgencyFloor
	}

	stress := mean(b2f(sig.Urgency), b2f(sig.Threat), prior.Anxiety, prior.Confusion, prior.Overwhelm)

	return Result{
		ScamScore:   Clamp(scam),
		StressScore: Clamp(stress),
		Signals:     sig,
	}
}

// Nudge applies the per-turn additive state updates, gated by the turn
// scores, and returns the clamped next state.
func Nudge(prior PersonaState, res Result, assertive bool) PersonaState {
	next := prior
	if res.ScamScore >= 0.6 {
		next.Anxiety += 0.08
		next.Confusion += 0.05
	}
	if res.Signals.Threat {
		next.Overwhelm += 0.10
		next.Anxiety += 0.05
	}
	if res.Signals.Authority {
		next.TrustAuthority += 0.04
	}
	if res.StressScore >= 0.75 {
		next.Overwhelm += 0.05
	}
	if assertive {
		next.Compliance -= 0.10
		next.TrustAuthority -= 0.05
	} else if res.Signals.Urgency {
		next.Compliance -= 0.03
	}

	next.Anxiety = Clamp(next.Anxiety)
	next.Confusion = Clamp(next.Confusion)
	next.Overwhelm = Clamp(next.Overwhelm)
	next.TrustAuthority = Clamp(next.TrustAuthority)
	next.Compliance = Clamp(next.Compliance)
	return next
}

// Clamp bounds a score to [0,1].
func Clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// DemandBucket classifies what a message is pushing for: otp-class
// credential asks, link/payment-class asks, or account-class asks.
// Empty string means no demand detected.
func DemandBucket(normalizedText string) string {
	switch {
	case credentialRe.MatchString(normalizedText):
		return "otp"
	case linkHintRe.MatchString(normalizedText) || strings.Contains(normalizedText, "pay") || strings.Contains(normalizedText, "transfer"):
		return "payment"
	case accountAskRe.MatchString(normalizedText):
		return "account"
	default:
		return ""
	}
}

func mean(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func b2f(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
