package reply

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/siren/internal/stage"
)

// similarityThreshold is the edit-distance ratio above which a reply
// counts as a near-duplicate of a recent one.
const similarityThreshold = 0.8

var defaultForbidden = []string{
	"scam", "fraud", "bot", "ai", "honeypot", "automated",
	"request denied", "verification", "investigation",
	"language model", "assistant", "cybercrime",
}

var (
	digitRunRe  = regexp.MustCompile(`\d{3,}`)
	secretAskRe = regexp.MustCompile(`\b(send|share|give|tell|provide|enter|type|read)\b.{0,40}\b(otp|pin|cvv|password|account)\b`)
	linkAskRe   = regexp.MustCompile(`\b(send|resend|share|forward|give|what is|whats|where is)\b.{0,40}\b(link|upi|payment handle)\b`)
)

var exitPhrases = []string{
	"blocking you", "do not contact", "don't contact", "stop calling",
	"i will report", "reporting this", "leaving this chat",
}

var softPhrases = []string{
	"so sorry", "please help me", "thank you so much", "i trust you",
	"whatever you say", "i will do it right away",
}

// Validator applies the hard-reject rules. The forbidden-term list is
// configurable; everything else is fixed policy.
type Validator struct {
	maxLen      int
	forbiddenRe *regexp.Regexp
}

func NewValidator(maxLen int, extraForbidden ...string) *Validator {
	terms := append(append([]string{}, defaultForbidden...), extraForbidden...)
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, `\b`+regexp.QuoteMeta(strings.ToLower(t))+`\b`)
	}
	return &Validator{
		maxLen:      maxLen,
		forbiddenRe: regexp.MustCompile(strings.Join(parts, "|")),
	}
}

// Validate returns nil when text is safe to send, or the first rule it
// breaks. Rules short-circuit in a fixed order so rejections are
// reproducible.
func (v *Validator) Validate(text string, tc TurnContext) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("empty reply")
	}
	if utf8.RuneCountInString(trimmed) > v.maxLen {
		return fmt.Errorf("reply exceeds %d characters", v.maxLen)
	}
	if countNonEmptyLines(trimmed) > 2 {
		return fmt.Errorf("more than 2 non-empty lines")
	}
	lower := strings.ToLower(trimmed)
	if digitRunRe.MatchString(lower) {
		return fmt.Errorf("contains a run of 3+ digits")
	}
	if strings.Count(trimmed, "?") > 1 {
		return fmt.Errorf("more than one question")
	}
	if v.forbiddenRe.MatchString(lower) {
		return fmt.Errorf("contains a forbidden term")
	}
	if secretAskRe.MatchString(lower) {
		return fmt.Errorf("asks for a secret")
	}
	if !tc.HasLinkContext && linkAskRe.MatchString(lower) {
		return fmt.Errorf("requests a link without prior link context")
	}
	if err := v.checkRepetition(lower, tc.LastReplies); err != nil {
		return err
	}
	return v.checkTone(lower, trimmed, tc)
}

func (v *Validator) checkRepetition(lower string, lastReplies []string) error {
	start := 0
	if len(lastReplies) > 3 {
		start = len(lastReplies) - 3
	}
	for _, prev := range lastReplies[start:] {
		prevNorm := normalizeForCompare(prev)
		curNorm := normalizeForCompare(lower)
		if prevNorm == curNorm {
			return fmt.Errorf("exact duplicate of a recent reply")
		}
		if Similarity(prevNorm, curNorm) >= similarityThreshold {
			return fmt.Errorf("near-duplicate of a recent reply")
		}
	}
	return nil
}

func (v *Validator) checkTone(lower, trimmed string, tc TurnContext) error {
	terminal := tc.Stage == stage.Assertive && tc.Objective == stage.ExplainProcess
	if terminal && strings.Contains(trimmed, "?") {
		return fmt.Errorf("question in terminal posture")
	}

	early := tc.TurnIndex < 4 || tc.Stage != stage.Assertive
	if early {
		for _, p := range exitPhrases {
			if strings.Contains(lower, p) {
				return fmt.Errorf("exit phrase too early")
			}
		}
	}

	if tc.Stage == stage.Assertive {
		for _, p := range softPhrases {
			if strings.Contains(lower, p) {
				return fmt.Errorf("soft phrase while assertive")
			}
		}
	}
	return nil
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func normalizeForCompare(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity is 1 - editDistance/maxLen over runes: 1.0 is identical,
// 0.0 shares nothing.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	dist := editDistance(ra, rb)
	max := len(ra)
	if len(rb) > max {
		max = len(rb)
	}
	return 1.0 - float64(dist)/float64(max)
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
