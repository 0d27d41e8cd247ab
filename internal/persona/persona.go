// Package persona produces the cosmetic tone/context/style tags mixed
// into generation prompts. Tags are opaque descriptive labels; the
// random source is injectable so tests can pin selections.
package persona

import (
	"math/rand"
	"sync"
)

// Tags describe how the victim persona should sound this turn.
type Tags struct {
	Tone    string
	Context string
	Style   string
}

var (
	tones    = []string{"worried", "flustered", "hesitant", "tired", "distracted"}
	contexts = []string{"at work", "on the bus", "cooking dinner", "with family nearby", "between meetings"}
	styles   = []string{"short sentences", "trailing thoughts", "occasional typos", "plain and literal"}
)

// Generator picks tags from a single shared source. rand.Rand is not
// safe for concurrent use, so Pick serializes access; one generator is
// shared across all in-flight turns.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a tag generator seeded by the given source.
func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Pick selects one tag per axis.
func (g *Generator) Pick() Tags {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Tags{
		Tone:    tones[g.rng.Intn(len(tones))],
		Context: contexts[g.rng.Intn(len(contexts))],
		Style:   styles[g.rng.Intn(len(styles))],
	}
}
