package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/provider"
)

const (
	// budgetSafetyMargin is reserved out of the remaining turn budget on
	// every call so the pipeline can still finish validation and respond.
	budgetSafetyMargin = 250 * time.Millisecond
	// minCallBudget is the floor under which a provider call is skipped
	// entirely rather than invoked with a near-zero deadline.
	minCallBudget = 500 * time.Millisecond
)

// Observer reports the outcome of one provider call. Wired to metrics
// by the caller; nil-safe.
type Observer func(providerName, status string, elapsed time.Duration)

// Generator fans a turn out to the configured back-ends, sequentially,
// under a shared deadline. A slow or failed provider contributes zero
// candidates; there is no within-turn retry.
type Generator struct {
	providers []provider.Provider
	timeout   time.Duration
	logger    *slog.Logger
	observe   Observer
}

func NewGenerator(providers []provider.Provider, perCallTimeout time.Duration, logger *slog.Logger, obs Observer) *Generator {
	return &Generator{providers: providers, timeout: perCallTimeout, logger: logger, observe: obs}
}

// Providers reports how many back-ends are configured.
func (g *Generator) Providers() int { return len(g.providers) }

// Limit returns a generator restricted to the first n back-ends.
func (g *Generator) Limit(n int) *Generator {
	if n >= len(g.providers) {
		return g
	}
	cp := *g
	cp.providers = g.providers[:n]
	return &cp
}

// Collect asks every back-end for candidates until the deadline runs
// out. Budget is strictly decreasing: each call gets
// min(perCallTimeout, remaining - safetyMargin) and providers are
// skipped once the remainder drops under the floor.
func (g *Generator) Collect(ctx context.Context, tc TurnContext, deadline time.Time) []provider.Candidate {
	req := provider.Request{
		System:    buildSystem(tc),
		Prompt:    buildPrompt(tc),
		MaxTokens: 512,
	}

	var all []provider.Candidate
	for _, p := range g.providers {
		remaining := time.Until(deadline) - budgetSafetyMargin
		if remaining < minCallBudget {
			g.logger.Warn("turn budget exhausted, skipping provider", "provider", p.Name())
			break
		}
		callBudget := g.timeout
		if remaining < callBudget {
			callBudget = remaining
		}

		cands := g.call(ctx, p, req, callBudget)
		all = append(all, cands...)
	}
	return all
}

// Rewrite asks the first configured back-end to rework a candidate
// under the hard constraints. Returns "" when no budget or provider is
// available or the rewrite comes back unusable.
func (g *Generator) Rewrite(ctx context.Context, tc TurnContext, candidate string, deadline time.Time) string {
	if len(g.providers) == 0 {
		return ""
	}
	remaining := time.Until(deadline) - budgetSafetyMargin
	if remaining < minCallBudget {
		return ""
	}
	callBudget := g.timeout
	if remaining < callBudget {
		callBudget = remaining
	}

	req := provider.Request{
		System: buildSystem(tc),
		Prompt: fmt.Sprintf(
			"Rewrite this draft so it stays under %d characters, has at most one question, no digits, and sounds like a stressed ordinary person typing on a phone.\nDraft: %s\n%s",
			tc.MaxLen, candidate, outputInstruction),
		MaxTokens: 256,
	}

	cands := g.call(ctx, g.providers[0], req, callBudget)
	if len(cands) == 0 {
		return ""
	}
	return cands[0].Reply
}

func (g *Generator) call(ctx context.Context, p provider.Provider, req provider.Request, budget time.Duration) []provider.Candidate {
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	cands, err := p.Generate(callCtx, req)
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		g.logger.Warn("provider call failed", "provider", p.Name(), "elapsed_ms", elapsed.Milliseconds(), "error", err)
	case len(cands) == 0:
		status = "empty"
		g.logger.Debug("provider returned no usable candidates", "provider", p.Name())
	}
	if g.observe != nil {
		g.observe(p.Name(), status, elapsed)
	}
	return cands
}

const outputInstruction = `Answer with a JSON array only: [{"reply": "...", "intent": "..."}] with 1 to 3 entries.`

func buildSystem(tc TurnContext) string {
	return fmt.Sprintf(
		"You play an ordinary person replying to messages on their phone. Current mood: %s, %s. Write %s. "+
			"Never reveal you are software. Never share OTPs, PINs, passwords or account numbers. "+
			"Keep every reply under %d characters, at most two lines, at most one question, and never type three digits in a row.",
		tc.Tags.Tone, tc.Tags.Context, tc.Tags.Style, tc.MaxLen)
}

func buildPrompt(tc TurnContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Posture: %s\nGoal this turn: %s\n", tc.Stage, tc.Objective)
	if len(tc.KnownFacts) > 0 {
		b.WriteString("Already learned from them:\n")
		for k, v := range tc.KnownFacts {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	if len(tc.LastReplies) > 0 {
		b.WriteString("Your recent replies (do not repeat these):\n")
		for _, r := range lastN(tc.LastReplies, 3) {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(tc.Examples) > 0 {
		b.WriteString("Lines in the right register:\n")
		for _, ex := range tc.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}
	fmt.Fprintf(&b, "Their message: %s\n", tc.LastMessage)
	fmt.Fprintf(&b, "Work toward the goal naturally. %s", outputInstruction)
	return b.String()
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
