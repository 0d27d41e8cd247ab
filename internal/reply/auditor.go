package reply

import "strings"

// Soft-scoring rubric. Applied only among candidates that already
// passed validation, as a tie-breaker; it can never rescue an invalid
// candidate.

var (
	confusionWords  = []string{"confused", "not sure", "don't understand", "wait", "hold on", "slowly"}
	officialWords   = []string{"branch", "reference", "case", "department", "official", "counter"}
	frictionWords   = []string{"battery", "signal", "network", "charger", "at work", "can't right now", "glasses"}
	suspicionWords  = []string{"how do i know", "is this really", "sounds odd", "are you sure", "why would"}
	overFormalWords = []string{"dear sir", "kindly", "regards", "furthermore", "pursuant", "herewith"}
)

// SoftScore rates a valid candidate for persona realism. Higher is
// better.
func SoftScore(text string, lastReplies []string) float64 {
	lower := strings.ToLower(text)
	var score float64
	score += containsAnyScore(lower, confusionWords, 1.0)
	score += containsAnyScore(lower, officialWords, 1.0)
	score += containsAnyScore(lower, frictionWords, 0.5)
	score += containsAnyScore(lower, suspicionWords, 1.0)
	score -= containsAnyScore(lower, overFormalWords, 1.5)
	if repeatsOpening(lower, lastReplies) {
		score -= 1.0
	}
	return score
}

func containsAnyScore(lower string, words []string, weight float64) float64 {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return weight
		}
	}
	return 0
}

// repeatsOpening flags a candidate that starts with the same two words
// as any recent reply. Repeated openings read as scripted.
func repeatsOpening(lower string, lastReplies []string) bool {
	open := openingBigram(lower)
	if open == "" {
		return false
	}
	for _, prev := range lastReplies {
		if openingBigram(strings.ToLower(prev)) == open {
			return true
		}
	}
	return false
}

func openingBigram(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return ""
	}
	return fields[0] + " " + fields[1]
}
