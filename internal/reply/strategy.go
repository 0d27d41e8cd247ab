package reply

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/provider"
)

// NoteFallback is surfaced as agentNotes when every candidate tier was
// exhausted and the deterministic pool had to answer.
const NoteFallback = "fallback"

// TemplateStrategy answers from the deterministic pools only. It is the
// degraded mode when no provider credential is configured.
type TemplateStrategy struct {
	validator *Validator
}

func NewTemplateStrategy(v *Validator) *TemplateStrategy {
	return &TemplateStrategy{validator: v}
}

func (s *TemplateStrategy) Name() string { return "template" }

func (s *TemplateStrategy) Reply(_ context.Context, tc TurnContext, _ time.Duration) (string, string) {
	return finalize(s.validator, tc, Templates(tc.Objective))
}

// SingleProviderStrategy takes raw candidates from one back-end in
// arrival order, then falls through to templates.
type SingleProviderStrategy struct {
	gen       *Generator
	validator *Validator
}

func NewSingleProviderStrategy(gen *Generator, v *Validator) *SingleProviderStrategy {
	return &SingleProviderStrategy{gen: gen.Limit(1), validator: v}
}

func (s *SingleProviderStrategy) Name() string { return "single" }

func (s *SingleProviderStrategy) Reply(ctx context.Context, tc TurnContext, budget time.Duration) (string, string) {
	deadline := time.Now().Add(budget)
	cands := s.gen.Collect(ctx, tc, deadline)

	ordered := make([]string, 0, len(cands)+3)
	for _, c := range cands {
		ordered = append(ordered, c.Reply)
	}
	ordered = append(ordered, Templates(tc.Objective)...)
	return finalize(s.validator, tc, ordered)
}

// AuditedStrategy collects candidates from every back-end, soft-scores
// the valid ones, optionally runs a rewrite pass on the best pick, and
// validates the whole priority list: rewrite, audited pick, raw
// candidates, templates.
type AuditedStrategy struct {
	gen       *Generator
	validator *Validator
	rewrite   bool
	logger    *slog.Logger
}

func NewAuditedStrategy(gen *Generator, v *Validator, rewrite bool, logger *slog.Logger) *AuditedStrategy {
	return &AuditedStrategy{gen: gen, validator: v, rewrite: rewrite, logger: logger}
}

func (s *AuditedStrategy) Name() string { return "audited" }

func (s *AuditedStrategy) Reply(ctx context.Context, tc TurnContext, budget time.Duration) (string, string) {
	deadline := time.Now().Add(budget)
	cands := s.gen.Collect(ctx, tc, deadline)

	best := s.pickBest(cands, tc)

	var ordered []string
	if s.rewrite && best != "" {
		if rewritten := s.gen.Rewrite(ctx, tc, best, deadline); rewritten != "" {
			ordered = append(ordered, rewritten)
		}
	}
	if best != "" {
		ordered = append(ordered, best)
	}
	for _, c := range cands {
		if c.Reply != best {
			ordered = append(ordered, c.Reply)
		}
	}
	ordered = append(ordered, Templates(tc.Objective)...)
	return finalize(s.validator, tc, ordered)
}

// pickBest soft-scores the candidates that already pass validation and
// returns the winner, or "" when none validate.
func (s *AuditedStrategy) pickBest(cands []provider.Candidate, tc TurnContext) string {
	type scored struct {
		text  string
		score float64
	}
	var valid []scored
	for _, c := range cands {
		if err := s.validator.Validate(c.Reply, tc); err != nil {
			s.logger.Debug("candidate rejected", "reason", err)
			continue
		}
		valid = append(valid, scored{text: c.Reply, score: SoftScore(c.Reply, tc.LastReplies)})
	}
	if len(valid) == 0 {
		return ""
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].score > valid[j].score })
	return valid[0].text
}

// finalize walks the priority-ordered candidates, returns the first one
// that validates (with the pending ladder question appended when the
// winner carries no question of its own), and falls back to the
// deterministic pool when everything is rejected.
func finalize(v *Validator, tc TurnContext, ordered []string) (string, string) {
	for _, cand := range ordered {
		cand = strings.TrimSpace(cand)
		if err := v.Validate(cand, tc); err != nil {
			continue
		}
		return ensureQuestion(v, tc, cand), ""
	}
	return FallbackReply(tc.SessionID, tc.TurnIndex), NoteFallback
}

// ensureQuestion appends the objective's question to a reply that asks
// nothing, keeping it only if the combined text still validates.
func ensureQuestion(v *Validator, tc TurnContext, text string) string {
	if strings.Contains(text, "?") {
		return text
	}
	combined := text + " " + tc.Objective.Question()
	if err := v.Validate(combined, tc); err != nil {
		return text
	}
	return combined
}
