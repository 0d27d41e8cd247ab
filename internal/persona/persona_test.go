package persona

import (
	"math/rand"
	"sync"
	"testing"
)

func TestPick_SeededSourceIsReproducible(t *testing.T) {
	a := New(rand.New(rand.NewSource(7)))
	b := New(rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		if got, want := a.Pick(), b.Pick(); got != want {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, got, want)
		}
	}
}

func TestPick_ConcurrentTurns(t *testing.T) {
	g := New(rand.New(rand.NewSource(2)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tags := g.Pick()
				if tags.Tone == "" || tags.Context == "" || tags.Style == "" {
					t.Errorf("concurrent pick left an axis empty: %+v", tags)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPick_FillsEveryAxis(t *testing.T) {
	g := New(rand.New(rand.NewSource(1)))
	for i := 0; i < 20; i++ {
		tags := g.Pick()
		if tags.Tone == "" || tags.Context == "" || tags.Style == "" {
			t.Fatalf("draw %d left an axis empty: %+v", i, tags)
		}
	}
}
