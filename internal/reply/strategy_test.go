package reply

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/provider"
	"github.com/MikeSquared-Agency/siren/internal/stage"
)

type stubProvider struct {
	name  string
	cands []provider.Candidate
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, _ provider.Request) ([]provider.Candidate, error) {
	s.calls++
	return s.cands, s.err
}

// sequenceProvider answers each call with the next queued candidate
// set, so a test can make the generation and rewrite passes differ.
type sequenceProvider struct {
	name      string
	responses [][]provider.Candidate
	calls     int
}

func (s *sequenceProvider) Name() string { return s.name }

func (s *sequenceProvider) Generate(_ context.Context, _ provider.Request) ([]provider.Candidate, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.responses) {
		return s.responses[s.calls], nil
	}
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTemplateStrategy_AnswersFromPool(t *testing.T) {
	s := NewTemplateStrategy(NewValidator(160))
	tc := baseContext()

	got, note := s.Reply(context.Background(), tc, time.Second)
	if note != "" {
		t.Errorf("note = %q, want empty", note)
	}
	found := false
	for _, tpl := range Templates(tc.Objective) {
		if strings.HasPrefix(got, tpl) {
			found = true
		}
	}
	if !found {
		t.Errorf("reply %q not drawn from the objective pool", got)
	}
}

func TestAuditedStrategy_PicksValidCandidate(t *testing.T) {
	valid := "Hold on, which branch office are you calling from?"
	p := &stubProvider{name: "stub", cands: []provider.Candidate{
		{Reply: "Your verification code is 482910."},
		{Reply: valid},
	}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), false, discardLogger())

	got, note := s.Reply(context.Background(), baseContext(), 5*time.Second)
	if got != valid {
		t.Errorf("reply = %q, want %q", got, valid)
	}
	if note != "" {
		t.Errorf("note = %q, want empty", note)
	}
}

func TestAuditedStrategy_PrefersHigherSoftScore(t *testing.T) {
	flat := "Okay fine, tell me more about it then."
	rich := "Wait, hold on, which branch handles this case?"
	p := &stubProvider{name: "stub", cands: []provider.Candidate{
		{Reply: flat},
		{Reply: rich},
	}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), false, discardLogger())

	got, _ := s.Reply(context.Background(), baseContext(), 5*time.Second)
	if got != rich {
		t.Errorf("reply = %q, want the higher-scoring candidate %q", got, rich)
	}
}

func TestAuditedStrategy_RewriteWinsWhenValid(t *testing.T) {
	original := "Hold on, which branch office are you calling from?"
	rewritten := "Wait, sorry, which branch office is this exactly?"
	p := &sequenceProvider{name: "stub", responses: [][]provider.Candidate{
		{{Reply: original}},
		{{Reply: rewritten}},
	}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), true, discardLogger())

	got, note := s.Reply(context.Background(), baseContext(), 5*time.Second)
	if got != rewritten {
		t.Errorf("reply = %q, want the rewritten candidate %q", got, rewritten)
	}
	if note != "" {
		t.Errorf("note = %q, want empty", note)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want generation plus rewrite", p.calls)
	}
}

func TestAuditedStrategy_InvalidRewriteFallsThrough(t *testing.T) {
	original := "Hold on, which branch office are you calling from?"
	p := &sequenceProvider{name: "stub", responses: [][]provider.Candidate{
		{{Reply: original}},
		{{Reply: "Your case number is 884422, is that right?"}},
	}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), true, discardLogger())

	got, _ := s.Reply(context.Background(), baseContext(), 5*time.Second)
	if got != original {
		t.Errorf("reply = %q, want fall-through to the audited pick %q", got, original)
	}
}

func TestAuditedStrategy_AppendsQuestionToStatement(t *testing.T) {
	statement := "I am writing all of this down slowly right now."
	p := &stubProvider{name: "stub", cands: []provider.Candidate{{Reply: statement}}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), false, discardLogger())

	tc := baseContext()
	got, _ := s.Reply(context.Background(), tc, 5*time.Second)
	want := statement + " " + tc.Objective.Question()
	if got != want {
		t.Errorf("reply = %q, want question appended: %q", got, want)
	}
}

func TestAuditedStrategy_FallsBackWhenEverythingRejected(t *testing.T) {
	p := &stubProvider{name: "stub", cands: []provider.Candidate{
		{Reply: "Please share your otp with me right away."},
	}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)
	s := NewAuditedStrategy(gen, NewValidator(160), false, discardLogger())

	// Poison the template pool for this objective via the repetition rule.
	tc := baseContext()
	tc.Objective = stage.AskLinkOrUpi
	tc.HasLinkContext = true
	tc.LastReplies = append([]string{}, Templates(stage.AskLinkOrUpi)...)

	got, note := s.Reply(context.Background(), tc, 5*time.Second)
	if note != NoteFallback {
		t.Errorf("note = %q, want %q", note, NoteFallback)
	}
	if want := FallbackReply(tc.SessionID, tc.TurnIndex); got != want {
		t.Errorf("reply = %q, want deterministic fallback %q", got, want)
	}
}

func TestSingleProviderStrategy_UsesFirstBackendOnly(t *testing.T) {
	first := &stubProvider{name: "first", cands: []provider.Candidate{
		{Reply: "Hold on, is there a case number for this?"},
	}}
	second := &stubProvider{name: "second"}
	gen := NewGenerator([]provider.Provider{first, second}, 2*time.Second, discardLogger(), nil)
	s := NewSingleProviderStrategy(gen, NewValidator(160))

	got, _ := s.Reply(context.Background(), baseContext(), 5*time.Second)
	if got != first.cands[0].Reply {
		t.Errorf("reply = %q, want first provider's candidate", got)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0", second.calls)
	}
}

func TestGenerator_SkipsProvidersWhenBudgetExhausted(t *testing.T) {
	p := &stubProvider{name: "stub", cands: []provider.Candidate{{Reply: "anything"}}}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), nil)

	cands := gen.Collect(context.Background(), baseContext(), time.Now().Add(100*time.Millisecond))
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0 under an exhausted budget", len(cands))
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}

	cands = gen.Collect(context.Background(), baseContext(), time.Now().Add(5*time.Second))
	if len(cands) != 1 {
		t.Errorf("got %d candidates, want 1 with budget available", len(cands))
	}
}

func TestGenerator_ObserverSeesOutcome(t *testing.T) {
	var gotProvider, gotStatus string
	obs := func(name, status string, _ time.Duration) {
		gotProvider, gotStatus = name, status
	}
	p := &stubProvider{name: "stub"}
	gen := NewGenerator([]provider.Provider{p}, 2*time.Second, discardLogger(), obs)

	gen.Collect(context.Background(), baseContext(), time.Now().Add(5*time.Second))
	if gotProvider != "stub" || gotStatus != "empty" {
		t.Errorf("observer saw (%q, %q), want (stub, empty)", gotProvider, gotStatus)
	}
}

func TestFallbackReply_Deterministic(t *testing.T) {
	a := FallbackReply("sess-42", 7)
	b := FallbackReply("sess-42", 7)
	if a != b {
		t.Errorf("FallbackReply not stable: %q vs %q", a, b)
	}
	if a == "" {
		t.Error("FallbackReply returned empty text")
	}
	if strings.Contains(a, "?") {
		t.Errorf("fallback %q carries a question", a)
	}
}
