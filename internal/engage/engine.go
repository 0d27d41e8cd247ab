// Package engage composes the per-turn pipeline: extraction, scoring,
// stage planning, candidate generation and validation, and the session
// bookkeeping that makes a turn idempotent and resumable.
package engage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/siren/internal/hermes"
	"github.com/MikeSquared-Agency/siren/internal/intel"
	"github.com/MikeSquared-Agency/siren/internal/metrics"
	"github.com/MikeSquared-Agency/siren/internal/notify"
	"github.com/MikeSquared-Agency/siren/internal/persona"
	"github.com/MikeSquared-Agency/siren/internal/reply"
	"github.com/MikeSquared-Agency/siren/internal/scoring"
	"github.com/MikeSquared-Agency/siren/internal/session"
	"github.com/MikeSquared-Agency/siren/internal/stage"
)

// scamConfirmThreshold marks a session as confirmed risk; below it a
// completed session ends quietly without a terminal report.
const scamConfirmThreshold = 0.6

// Bus is the slice of the swarm client the engine needs; nil disables
// event publishing.
type Bus interface {
	Publish(subject string, data any) error
}

type Options struct {
	MaxTurns         int
	TurnBudget       time.Duration
	MaxReplyLen      int
	RetrievalEnabled bool
}

type Engine struct {
	sessions *session.Manager
	strategy reply.Strategy
	persona  *persona.Generator
	notifier *notify.Notifier
	bus      Bus
	metrics  *metrics.Metrics
	opts     Options
	logger   *slog.Logger
}

func New(
	sessions *session.Manager,
	strategy reply.Strategy,
	personaGen *persona.Generator,
	notifier *notify.Notifier,
	bus Bus,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		sessions: sessions,
		strategy: strategy,
		persona:  personaGen,
		notifier: notifier,
		bus:      bus,
		metrics:  m,
		opts:     opts,
		logger:   logger,
	}
}

// Turn runs one inbound message end to end. It always produces a
// plausible reply: failures inside the pipeline degrade through
// candidate tiers, never into an error visible to the counterparty.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) TurnResponse {
	start := time.Now()
	deadlineCtx, cancel := context.WithTimeout(ctx, e.opts.TurnBudget)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := req.Message.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Malformed inbound: neutral acknowledgement, no state mutation. The
	// manager is only read here so a blank message can never reset an
	// idle-expired or completed session.
	if strings.TrimSpace(req.Message.Text) == "" {
		s, ok := e.sessions.Get(sessionID)
		if !ok {
			s = session.New(sessionID, now)
		}
		e.observeTurn("noop", start)
		return e.respond(s, reply.NeutralAck, scoring.Result{}, "noop")
	}

	s := e.sessions.GetOrCreate(sessionID, now)

	freshSession := s.Metrics.ScammerMessagesReceived == 0

	s.Messages = append(s.Messages, session.Message{
		Sender:    req.Message.Sender,
		Text:      req.Message.Text,
		Timestamp: now,
	})
	s.Metrics.ScammerMessagesReceived++
	s.Metrics.TotalMessagesExchanged++
	s.Metrics.LastMessageAt = now

	// Extraction and merge. History texts are folded in too; the merge
	// is idempotent so replays cost nothing.
	texts := []string{req.Message.Text}
	for _, h := range req.ConversationHistory {
		if h.Sender != "agent" {
			texts = append(texts, h.Text)
		}
	}
	fresh := intel.Extract(texts...)
	s.Intelligence = intel.Merge(s.Intelligence, fresh)
	s.AbsorbFacts(fresh)

	norm := intel.Normalize(req.Message.Text)
	res := scoring.Score(norm, s.State)
	s.LastScamScore = res.ScamScore

	turnCount := s.Metrics.ScammerMessagesReceived
	sig := stage.Window(s.AdversaryTexts())
	s.Stage = stage.Next(s.Stage, sig, turnCount)
	s.State = scoring.Nudge(s.State, res, s.Stage == stage.Assertive)

	linkExtracted := s.Intelligence.HasLink() || s.Intelligence.HasUpi()
	objective := stage.NextObjective(s.AskedSlots, s.RecentIntents, s.HasLinkContext(norm), linkExtracted)

	tc := reply.TurnContext{
		SessionID:      s.ID,
		TurnIndex:      turnCount,
		Stage:          s.Stage,
		Objective:      objective,
		LastMessage:    req.Message.Text,
		LastReplies:    s.LastAgentReplies(3),
		KnownFacts:     s.Facts.Map(),
		HasLinkContext: s.HasLinkContext(norm),
		MaxLen:         e.opts.MaxReplyLen,
		Tags:           e.persona.Pick(),
	}
	if e.opts.RetrievalEnabled {
		tc.Examples = reply.ExamplesFor(s.Stage)
	}

	budget := e.opts.TurnBudget - time.Since(start)
	text, note := e.strategy.Reply(deadlineCtx, tc, budget)
	if note == reply.NoteFallback && e.metrics != nil {
		e.metrics.FallbackReplies.Inc()
	}

	s.MarkAsked(objective)
	s.Messages = append(s.Messages, session.Message{Sender: "agent", Text: text, Timestamp: time.Now().UTC()})
	s.Metrics.AgentMessagesSent++
	s.Metrics.TotalMessagesExchanged++

	if turnCount >= e.opts.MaxTurns && s.Mode == session.ModeActive {
		e.complete(s, res)
	}

	e.sessions.Update(ctx, s)
	if e.metrics != nil {
		e.metrics.ActiveSessions.Set(float64(e.sessions.ActiveCount()))
	}

	if freshSession && e.bus != nil {
		e.publish(hermes.SubjectSessionEngaged, s, res)
	}

	e.observeTurn("ok", start)
	e.logger.Info("turn processed",
		"session_id", s.ID,
		"turn", turnCount,
		"stage", s.Stage.String(),
		"objective", string(objective),
		"scam_score", res.ScamScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if note == "" {
		note = fmt.Sprintf("objective=%s stage=%s", objective, s.Stage)
	}
	return e.respond(s, text, res, note)
}

// complete marks the session COMPLETE and, when risk is confirmed,
// fires the terminal report exactly once, off the response path.
func (e *Engine) complete(s *session.Session, res scoring.Result) {
	s.Mode = session.ModeComplete
	if e.metrics != nil {
		e.metrics.SessionsComplete.Inc()
	}
	e.logger.Info("session complete", "session_id", s.ID, "scam_score", res.ScamScore)

	if res.ScamScore < scamConfirmThreshold || s.Notified {
		return
	}
	s.Notified = true

	report := notify.Report{
		SessionID:              s.ID,
		ScamDetected:           true,
		TotalMessagesExchanged: s.Metrics.TotalMessagesExchanged,
		ExtractedIntelligence:  notify.FromIntelligence(s.Intelligence),
		AgentNotes:             fmt.Sprintf("stage=%s slots=%d", s.Stage, len(s.AskedSlots)),
	}
	go e.notifier.Send(context.Background(), report)

	if e.bus != nil {
		e.publish(hermes.SubjectSessionCompleted, s, res)
	}
}

func (e *Engine) publish(subject string, s *session.Session, res scoring.Result) {
	evt := hermes.SessionEvent{
		SessionID: s.ID,
		Stage:     s.Stage.String(),
		ScamScore: res.ScamScore,
		Turns:     s.Metrics.ScammerMessagesReceived,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.bus.Publish(subject, evt); err != nil {
		e.logger.Warn("bus publish failed", "subject", subject, "error", err)
	}
}

func (e *Engine) respond(s *session.Session, text string, res scoring.Result, note string) TurnResponse {
	return TurnResponse{
		Status:       "ok",
		SessionID:    s.ID,
		ScamDetected: res.ScamScore >= scamConfirmThreshold,
		ScamScore:    res.ScamScore,
		StressScore:  res.StressScore,
		Engagement: Engagement{
			Mode:                    string(s.Mode),
			TotalMessagesExchanged:  s.Metrics.TotalMessagesExchanged,
			AgentMessagesSent:       s.Metrics.AgentMessagesSent,
			ScammerMessagesReceived: s.Metrics.ScammerMessagesReceived,
			StartedAt:               s.Metrics.StartedAt,
			LastMessageAt:           s.Metrics.LastMessageAt,
		},
		Reply:                 text,
		ExtractedIntelligence: s.Intelligence.Arrays(),
		AgentNotes:            note,
	}
}

func (e *Engine) observeTurn(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.TurnsTotal.WithLabelValues(status).Inc()
	e.metrics.TurnDuration.Observe(time.Since(start).Seconds())
}
