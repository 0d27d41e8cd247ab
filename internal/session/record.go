package session

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/intel"
	"github.com/MikeSquared-Agency/siren/internal/scoring"
	"github.com/MikeSquared-Agency/siren/internal/stage"
)

// Record is the persisted session layout: every set-valued field
// serialized as a plain array. It round-trips through
// normalize → serialize → normalize without loss, and loading a partial
// legacy record back-fills defaults for anything missing.
type Record struct {
	SessionID     string                `json:"sessionId"`
	State         *scoring.PersonaState `json:"state,omitempty"`
	Stage         string                `json:"stage"`
	AskedSlots    []string              `json:"askedSlots"`
	RecentIntents []string              `json:"recentIntents"`
	Intelligence  intel.Intelligence    `json:"extractedIntelligence"`
	Facts         Facts                 `json:"facts"`
	Messages      []Message             `json:"messages"`
	Metrics       Metrics               `json:"engagement"`
	Mode          string                `json:"mode"`
	Notified      bool                  `json:"notified"`
	LastScamScore float64               `json:"lastScamScore"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// Persister stores session records. Implementations must tolerate being
// called after every update; failures are logged by the manager and
// never fail the turn.
type Persister interface {
	Save(ctx context.Context, rec Record) error
	LoadAll(ctx context.Context) ([]Record, error)
}

// ToRecord converts a session to its persisted layout.
func (s *Session) ToRecord() Record {
	state := s.State
	return Record{
		SessionID:     s.ID,
		State:         &state,
		Stage:         s.Stage.String(),
		AskedSlots:    s.sortedSlots(),
		RecentIntents: intentsToStrings(s.RecentIntents),
		Intelligence:  s.Intelligence.Arrays(),
		Facts:         s.Facts,
		Messages:      s.Messages,
		Metrics:       s.Metrics,
		Mode:          string(s.Mode),
		Notified:      s.Notified,
		LastScamScore: s.LastScamScore,
		CreatedAt:     s.CreatedAt,
	}
}

// FromRecord rebuilds a session, back-filling defaults for fields a
// legacy record may lack.
func FromRecord(rec Record) *Session {
	s := New(rec.SessionID, rec.CreatedAt)
	if rec.State != nil {
		s.State = *rec.State
	}
	s.Stage = stage.ParseStage(rec.Stage)
	for _, slot := range rec.AskedSlots {
		s.AskedSlots[stage.Objective(slot)] = true
	}
	for _, it := range rec.RecentIntents {
		s.RecentIntents = append(s.RecentIntents, stage.Objective(it))
	}
	s.Intelligence = rec.Intelligence.Normalize()
	s.Facts = rec.Facts
	s.Messages = rec.Messages
	if !rec.Metrics.StartedAt.IsZero() {
		s.Metrics = rec.Metrics
	}
	if rec.Mode != "" {
		s.Mode = Mode(rec.Mode)
	}
	s.Notified = rec.Notified
	s.LastScamScore = rec.LastScamScore
	if rec.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return s
}

func intentsToStrings(intents []stage.Objective) []string {
	out := make([]string, 0, len(intents))
	for _, it := range intents {
		out = append(out, string(it))
	}
	return out
}
