// Package session owns per-conversation state: the persona scalars,
// engagement stage, gathered intelligence, facts, the message log and
// the engagement counters. The in-memory map is authoritative;
// persistence is write-behind and never fails a turn.
package session

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/intel"
	"github.com/MikeSquared-Agency/siren/internal/scoring"
	"github.com/MikeSquared-Agency/siren/internal/stage"
)

type Mode string

const (
	ModeActive   Mode = "ACTIVE"
	ModeComplete Mode = "COMPLETE"
)

// Message is one entry of the append-only conversation log.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics are the stage-independent engagement counters. They only go
// up; completion triggers when the turn ceiling is reached.
type Metrics struct {
	TotalMessagesExchanged  int       `json:"totalMessagesExchanged"`
	AgentMessagesSent       int       `json:"agentMessagesSent"`
	ScammerMessagesReceived int       `json:"scammerMessagesReceived"`
	StartedAt               time.Time `json:"startedAt"`
	LastMessageAt           time.Time `json:"lastMessageAt"`
}

// Facts are the scalar "known value" slots filled in as the adversary
// gives things away.
type Facts struct {
	CaseID            string `json:"caseId,omitempty"`
	Branch            string `json:"branch,omitempty"`
	EmployeeID        string `json:"employeeId,omitempty"`
	CallbackNumber    string `json:"callbackNumber,omitempty"`
	TransactionAmount string `json:"transactionAmount,omitempty"`
	SenderID          string `json:"senderId,omitempty"`
}

// Map renders the non-empty facts for prompt context.
func (f Facts) Map() map[string]string {
	out := make(map[string]string)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("case id", f.CaseID)
	put("branch", f.Branch)
	put("employee id", f.EmployeeID)
	put("callback number", f.CallbackNumber)
	put("transaction", f.TransactionAmount)
	put("sender id", f.SenderID)
	return out
}

type Session struct {
	ID    string
	State scoring.PersonaState
	Stage stage.Stage

	AskedSlots    map[stage.Objective]bool
	RecentIntents []stage.Objective

	Intelligence intel.Intelligence
	Facts        Facts
	Messages     []Message
	Metrics      Metrics

	Mode          Mode
	Notified      bool
	LastScamScore float64
	CreatedAt     time.Time
}

// New returns a fresh session in the default posture.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		State:      scoring.DefaultPersonaState(),
		Stage:      stage.Confused,
		AskedSlots: make(map[stage.Objective]bool),
		Mode:       ModeActive,
		CreatedAt:  now,
		Metrics:    Metrics{StartedAt: now, LastMessageAt: now},
	}
}

// AdversaryTexts returns the adversary-side message texts in order,
// for trailing-window signal computation.
func (s *Session) AdversaryTexts() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Sender != "agent" {
			out = append(out, m.Text)
		}
	}
	return out
}

// LastAgentReplies returns up to n most recent agent replies, oldest
// first.
func (s *Session) LastAgentReplies(n int) []string {
	var out []string
	for _, m := range s.Messages {
		if m.Sender == "agent" {
			out = append(out, m.Text)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// MarkAsked records an objective as pursued. AskedSlots only grows.
func (s *Session) MarkAsked(obj stage.Objective) {
	s.AskedSlots[obj] = true
	s.RecentIntents = append(s.RecentIntents, obj)
}

// AbsorbFacts fills empty fact slots from freshly extracted
// intelligence. Existing values are never overwritten: the first thing
// the adversary commits to is the thing worth reporting.
func (s *Session) AbsorbFacts(fresh intel.Intelligence) {
	if s.Facts.CaseID == "" && len(fresh.CaseIds) > 0 {
		s.Facts.CaseID = fresh.CaseIds[0]
	}
	if s.Facts.EmployeeID == "" && len(fresh.EmployeeIds) > 0 {
		s.Facts.EmployeeID = fresh.EmployeeIds[0]
	}
	if s.Facts.CallbackNumber == "" && len(fresh.PhoneNumbers) > 0 {
		s.Facts.CallbackNumber = fresh.PhoneNumbers[0]
	}
	if s.Facts.Branch == "" && len(fresh.OrgNames) > 0 {
		s.Facts.Branch = fresh.OrgNames[0]
	}
	if s.Facts.SenderID == "" && len(fresh.Emails) > 0 {
		s.Facts.SenderID = fresh.Emails[0]
	}
}

// HasLinkContext reports whether the session already knows about a link
// or payment handle, or the given normalized message mentions one.
func (s *Session) HasLinkContext(normalizedMessage string) bool {
	if s.Intelligence.HasLink() || s.Intelligence.HasUpi() {
		return true
	}
	return scoring.DemandBucket(normalizedMessage) == "payment"
}

// sortedSlots renders AskedSlots as a stable array for persistence.
func (s *Session) sortedSlots() []string {
	out := make([]string, 0, len(s.AskedSlots))
	for obj := range s.AskedSlots {
		out = append(out, string(obj))
	}
	sort.Strings(out)
	return out
}
