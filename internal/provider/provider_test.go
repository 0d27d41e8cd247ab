package provider

import "testing"

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "bare array",
			raw:  `[{"reply": "Which branch is this?", "intent": "branch"}]`,
			want: []string{"Which branch is this?"},
		},
		{
			name: "fenced with prose",
			raw: "Here you go:\n```json\n[{\"reply\": \"Hold on a second.\", \"intent\": \"stall\"}," +
				"{\"reply\": \"What number can I call back?\", \"intent\": \"callback\"}]\n```",
			want: []string{"Hold on a second.", "What number can I call back?"},
		},
		{
			name: "blank replies dropped",
			raw:  `[{"reply": "  ", "intent": "x"}, {"reply": "Still here.", "intent": "y"}]`,
			want: []string{"Still here."},
		},
		{
			name: "whitespace trimmed",
			raw:  `[{"reply": "  okay then  ", "intent": ""}]`,
			want: []string{"okay then"},
		},
		{
			name: "no array at all",
			raw:  "I cannot help with that.",
			want: nil,
		},
		{
			name: "malformed json",
			raw:  `[{"reply": "unterminated`,
			want: nil,
		},
		{
			name: "empty array",
			raw:  "[]",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCandidates(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d: %v", len(got), len(tt.want), got)
			}
			for i, c := range got {
				if c.Reply != tt.want[i] {
					t.Errorf("candidate %d = %q, want %q", i, c.Reply, tt.want[i])
				}
			}
		})
	}
}
