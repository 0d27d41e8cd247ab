package engage

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/hermes"
	"github.com/MikeSquared-Agency/siren/internal/notify"
	"github.com/MikeSquared-Agency/siren/internal/persona"
	"github.com/MikeSquared-Agency/siren/internal/reply"
	"github.com/MikeSquared-Agency/siren/internal/session"
)

type stubBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *stubBus) Publish(subject string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *stubBus) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.subjects...)
}

func newTestEngine(t *testing.T, reportURL string, maxTurns int, bus Bus) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(context.Background(), nil, 30*time.Minute, logger)
	strategy := reply.NewTemplateStrategy(reply.NewValidator(160))
	notifier := notify.New(reportURL, time.Second, logger)
	personaGen := persona.New(rand.New(rand.NewSource(1)))

	opts := Options{
		MaxTurns:    maxTurns,
		TurnBudget:  5 * time.Second,
		MaxReplyLen: 160,
	}
	return New(sessions, strategy, personaGen, notifier, bus, nil, opts, logger)
}

func turn(e *Engine, sessionID, text string) TurnResponse {
	return e.Turn(context.Background(), TurnRequest{
		SessionID: sessionID,
		Message:   InboundMessage{Sender: "scammer", Text: text},
	})
}

var threeDigitsRe = regexp.MustCompile(`\d{3,}`)

func assertSafeReply(t *testing.T, text string) {
	t.Helper()
	if strings.TrimSpace(text) == "" {
		t.Fatal("empty reply")
	}
	if threeDigitsRe.MatchString(text) {
		t.Errorf("reply %q contains a digit run", text)
	}
	if strings.Count(text, "?") > 1 {
		t.Errorf("reply %q asks more than one question", text)
	}
}

func TestTurn_CredentialDemandConfirmsScam(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)

	resp := turn(e, "sess-otp", "Your KYC has expired, share the OTP immediately or your account will be blocked")

	if !resp.ScamDetected {
		t.Error("expected scamDetected for a credential demand")
	}
	if resp.ScamScore < 0.98 {
		t.Errorf("scamScore = %v, want >= 0.98 for credential asks", resp.ScamScore)
	}
	if resp.StressScore <= 0 {
		t.Errorf("stressScore = %v, want > 0 under urgency", resp.StressScore)
	}
	assertSafeReply(t, resp.Reply)
	if resp.Engagement.ScammerMessagesReceived != 1 || resp.Engagement.AgentMessagesSent != 1 {
		t.Errorf("engagement counters = %+v", resp.Engagement)
	}
}

func TestTurn_BenignMessageNotFlagged(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)

	resp := turn(e, "sess-benign", "hello, are we still meeting for lunch tomorrow")

	if resp.ScamDetected {
		t.Errorf("scamDetected = true for a benign message, score %v", resp.ScamScore)
	}
	assertSafeReply(t, resp.Reply)
}

func TestTurn_EmptyMessageIsNeutralNoop(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)

	resp := turn(e, "sess-noop", "   ")

	if resp.Reply != reply.NeutralAck {
		t.Errorf("reply = %q, want the neutral acknowledgement", resp.Reply)
	}
	if resp.AgentNotes != "noop" {
		t.Errorf("agentNotes = %q, want noop", resp.AgentNotes)
	}
	if resp.Engagement.TotalMessagesExchanged != 0 {
		t.Errorf("noop turn mutated counters: %+v", resp.Engagement)
	}
}

func TestTurn_EmptyMessageDoesNotResetCompletedSession(t *testing.T) {
	e := newTestEngine(t, "", 2, nil)
	id := "sess-hold"

	var resp TurnResponse
	for i := 0; i < 2; i++ {
		resp = turn(e, id, "urgent, share the otp immediately")
	}
	if resp.Engagement.Mode != string(session.ModeComplete) {
		t.Fatalf("mode = %q, want COMPLETE before the blank turn", resp.Engagement.Mode)
	}

	resp = turn(e, id, "   ")
	if resp.Reply != reply.NeutralAck {
		t.Errorf("reply = %q, want the neutral acknowledgement", resp.Reply)
	}
	if resp.Engagement.Mode != string(session.ModeComplete) {
		t.Errorf("mode = %q, blank turn reset a completed session", resp.Engagement.Mode)
	}
	if resp.Engagement.TotalMessagesExchanged != 4 {
		t.Errorf("counters mutated by blank turn: %+v", resp.Engagement)
	}

	// A real message still restarts the funnel under the same id.
	resp = turn(e, id, "hello again")
	if resp.Engagement.ScammerMessagesReceived != 1 {
		t.Errorf("real turn did not reset the completed session: %+v", resp.Engagement)
	}
}

func TestTurn_BlankSessionIDGetsGenerated(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)

	resp := turn(e, "", "share your otp now")
	if resp.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestTurn_CapturesLinkAndUpiThenStopsChasingThem(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)
	id := "sess-link"

	resp := turn(e, id, "pay to secure@ybl or click https://secure-verify.example.com immediately")

	got := resp.ExtractedIntelligence
	if len(got.UpiIds) != 1 || got.UpiIds[0] != "secure@ybl" {
		t.Errorf("upiIds = %v, want [secure@ybl]", got.UpiIds)
	}
	if len(got.PhishingLinks) != 1 {
		t.Errorf("phishingLinks = %v, want one entry", got.PhishingLinks)
	}

	// The link rung is satisfied; later turns must pursue other slots.
	for i := 0; i < 6; i++ {
		resp = turn(e, id, "do it fast or the account gets suspended")
		if strings.Contains(resp.AgentNotes, "link_or_upi") {
			t.Fatalf("turn %d still chased the link: %q", i+2, resp.AgentNotes)
		}
		assertSafeReply(t, resp.Reply)
	}
}

func TestTurn_StageProgressesForwardOnly(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)
	id := "sess-stage"

	wantStages := []string{"CONFUSED", "SUSPICIOUS", "SUSPICIOUS", "ASSERTIVE", "ASSERTIVE"}
	for i, want := range wantStages {
		resp := turn(e, id, "urgent, share the otp immediately")
		if !strings.Contains(resp.AgentNotes, "stage="+want) {
			t.Errorf("turn %d notes = %q, want stage %s", i+1, resp.AgentNotes, want)
		}
		assertSafeReply(t, resp.Reply)
	}
}

func TestTurn_CeilingCompletesAndReportsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := &stubBus{}
	e := newTestEngine(t, srv.URL, 3, bus)
	id := "sess-ceiling"

	var resp TurnResponse
	for i := 0; i < 3; i++ {
		resp = turn(e, id, "urgent, share the otp immediately or account blocked")
	}
	if resp.Engagement.Mode != string(session.ModeComplete) {
		t.Errorf("mode = %q, want COMPLETE at the turn ceiling", resp.Engagement.Mode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("terminal report sent %d times, want exactly 1", got)
	}

	subjects := bus.seen()
	if len(subjects) != 2 ||
		subjects[0] != hermes.SubjectSessionEngaged ||
		subjects[1] != hermes.SubjectSessionCompleted {
		t.Errorf("bus subjects = %v", subjects)
	}

	// The next contact on the same external id starts a fresh session.
	resp = turn(e, id, "hello again")
	if resp.Engagement.ScammerMessagesReceived != 1 {
		t.Errorf("session was not reset after completion: %+v", resp.Engagement)
	}
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("terminal report re-sent, total %d", got)
	}
}

func TestTurn_AbsorbsHistoryIntelligence(t *testing.T) {
	e := newTestEngine(t, "", 20, nil)

	resp := e.Turn(context.Background(), TurnRequest{
		SessionID: "sess-history",
		Message:   InboundMessage{Sender: "scammer", Text: "so do you have the reference I gave you"},
		ConversationHistory: []InboundMessage{
			{Sender: "scammer", Text: "this is officer anil, employee id: EMP-4521"},
			{Sender: "agent", Text: "Wait, who is this?"},
		},
	})

	if len(resp.ExtractedIntelligence.EmployeeIds) != 1 {
		t.Errorf("employeeIds = %v, want the id from history", resp.ExtractedIntelligence.EmployeeIds)
	}
}
