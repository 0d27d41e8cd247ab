package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/engage"
	"github.com/MikeSquared-Agency/siren/internal/notify"
	"github.com/MikeSquared-Agency/siren/internal/persona"
	"github.com/MikeSquared-Agency/siren/internal/reply"
	"github.com/MikeSquared-Agency/siren/internal/session"
)

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(context.Background(), nil, 30*time.Minute, logger)
	engine := engage.New(
		sessions,
		reply.NewTemplateStrategy(reply.NewValidator(160)),
		persona.New(rand.New(rand.NewSource(1))),
		notify.New("", time.Second, logger),
		nil,
		nil,
		engage.Options{MaxTurns: 20, TurnBudget: 5 * time.Second, MaxReplyLen: 160},
		logger,
	)
	return NewServer(0, token, engine)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/siren/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["agent"] != "siren" || body["status"] != "engaging" {
		t.Errorf("body = %v", body)
	}
}

func TestEngage_HandlesTurn(t *testing.T) {
	srv := newTestServer(t, "")

	payload, _ := json.Marshal(engage.TurnRequest{
		SessionID: "sess-api",
		Message:   engage.InboundMessage{Sender: "scammer", Text: "share the otp immediately"},
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engage", bytes.NewReader(payload))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp engage.TurnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess-api" || !resp.ScamDetected || resp.Reply == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestEngage_IntelligenceCategoriesAreNeverNull(t *testing.T) {
	srv := newTestServer(t, "")

	payload, _ := json.Marshal(engage.TurnRequest{
		SessionID: "sess-wire",
		Message:   engage.InboundMessage{Sender: "scammer", Text: "hello there, quick question"},
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engage", bytes.NewReader(payload))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var categories map[string][]string
	if err := json.Unmarshal(raw["extractedIntelligence"], &categories); err != nil {
		t.Fatalf("decode intelligence: %v", err)
	}
	for name, set := range categories {
		if set == nil {
			t.Errorf("category %s serialized as null, want an array", name)
		}
	}
}

func TestEngage_MalformedBodyYieldsNeutralAck(t *testing.T) {
	srv := newTestServer(t, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engage", bytes.NewReader([]byte("{not json")))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even for malformed bodies", rec.Code)
	}
	var resp engage.TurnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != reply.NeutralAck {
		t.Errorf("reply = %q, want the neutral acknowledgement", resp.Reply)
	}
}

func TestEngage_BearerToken(t *testing.T) {
	srv := newTestServer(t, "secret-token")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engage", bytes.NewReader([]byte("{}")))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/engage", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer secret-token")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", rec.Code)
	}

	// Health stays open regardless of the token.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}
