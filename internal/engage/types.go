package engage

import (
	"time"

	"github.com/MikeSquared-Agency/siren/internal/intel"
)

// InboundMessage is one message as delivered by the transport.
type InboundMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries transport hints; consumed as opaque labels.
type Metadata struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// TurnRequest is the per-turn input contract.
type TurnRequest struct {
	SessionID           string           `json:"sessionId"`
	Message             InboundMessage   `json:"message"`
	ConversationHistory []InboundMessage `json:"conversationHistory,omitempty"`
	Metadata            Metadata         `json:"metadata"`
}

// Engagement mirrors the session's engagement counters on the wire.
type Engagement struct {
	Mode                    string    `json:"mode"`
	TotalMessagesExchanged  int       `json:"totalMessagesExchanged"`
	AgentMessagesSent       int       `json:"agentMessagesSent"`
	ScammerMessagesReceived int       `json:"scammerMessagesReceived"`
	StartedAt               time.Time `json:"startedAt"`
	LastMessageAt           time.Time `json:"lastMessageAt"`
}

// TurnResponse is the per-turn output contract.
type TurnResponse struct {
	Status                string             `json:"status"`
	SessionID             string             `json:"sessionId"`
	ScamDetected          bool               `json:"scamDetected"`
	ScamScore             float64            `json:"scamScore"`
	StressScore           float64            `json:"stressScore"`
	Engagement            Engagement         `json:"engagement"`
	Reply                 string             `json:"reply"`
	ExtractedIntelligence intel.Intelligence `json:"extractedIntelligence"`
	AgentNotes            string             `json:"agentNotes"`
}
