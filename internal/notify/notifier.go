// Package notify posts the one-shot terminal report when a session
// completes with confirmed risk. It runs outside the turn's latency
// budget: failures are logged and dropped, never surfaced.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/intel"
)

const maxAttempts = 3

// Report is the terminal callback payload.
type Report struct {
	SessionID              string           `json:"sessionId"`
	ScamDetected           bool             `json:"scamDetected"`
	TotalMessagesExchanged int              `json:"totalMessagesExchanged"`
	ExtractedIntelligence  ReportedIntel    `json:"extractedIntelligence"`
	AgentNotes             string           `json:"agentNotes"`
}

// ReportedIntel is the subset of categories the reporting endpoint
// consumes.
type ReportedIntel struct {
	BankAccounts       []string `json:"bankAccounts"`
	UpiIds             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// FromIntelligence maps an intelligence record to the report shape.
func FromIntelligence(in intel.Intelligence) ReportedIntel {
	return ReportedIntel{
		BankAccounts:       emptyNotNil(in.BankAccounts),
		UpiIds:             emptyNotNil(in.UpiIds),
		PhishingLinks:      emptyNotNil(in.PhishingLinks),
		PhoneNumbers:       emptyNotNil(in.PhoneNumbers),
		SuspiciousKeywords: emptyNotNil(in.SuspiciousKeywords),
	}
}

type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func New(url string, perAttemptTimeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		url:     url,
		timeout: perAttemptTimeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// Send posts the report with up to three attempts. Exhausted retries
// are logged and dropped.
func (n *Notifier) Send(ctx context.Context, report Report) {
	if n.url == "" {
		n.logger.Warn("no report URL configured, dropping terminal report", "session_id", report.SessionID)
		return
	}
	body, err := json.Marshal(report)
	if err != nil {
		n.logger.Error("marshal terminal report", "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = n.post(ctx, body); lastErr == nil {
			n.logger.Info("terminal report delivered", "session_id", report.SessionID, "attempt", attempt)
			return
		}
		n.logger.Warn("terminal report attempt failed",
			"session_id", report.SessionID,
			"attempt", attempt,
			"error", lastErr,
		)
	}
	n.logger.Error("terminal report dropped after retries", "session_id", report.SessionID, "error", lastErr)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("report endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
