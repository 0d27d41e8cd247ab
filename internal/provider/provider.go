// Package provider wraps interchangeable generation back-ends behind a
// single capability: given a prompt and a deadline, return candidate
// replies or fail. Failures are the caller's to absorb; a provider
// never owns retry policy.
package provider

import (
	"context"
	"encoding/json"
	"strings"
)

// Candidate is one proposed reply plus the objective the back-end
// believes it pursues.
type Candidate struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
}

// Request carries a fully assembled prompt pair.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) ([]Candidate, error)
}

// ParseCandidates decodes a back-end payload into candidates. Output is
// expected as a small JSON array of {reply, intent} objects, possibly
// wrapped in code fences or stray prose. Anything unparsable yields
// zero candidates, not an error.
func ParseCandidates(raw string) []Candidate {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}

	var cands []Candidate
	if err := json.Unmarshal([]byte(raw[start:end+1]), &cands); err != nil {
		return nil
	}

	out := cands[:0]
	for _, c := range cands {
		c.Reply = strings.TrimSpace(c.Reply)
		if c.Reply != "" {
			out = append(out, c)
		}
	}
	return out
}
