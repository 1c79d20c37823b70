// Package colors hands out display color tokens for budget categories.
// The tokens are opaque to the rest of the application; only templates
// interpret them.
package colors

import (
	"fmt"
	"math/rand"
	"sync"
)

// Generator returns a visually distinct color token per call. Avoiding
// lets the caller exclude a token, so a regenerated category never
// keeps its old color.
type Generator interface {
	Next() string
	Avoiding(token string) string
}

// Random produces pastel HSL tokens of the form "hsl(H, 70%, 65%)"
// with a random hue.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a generator with its own source. A fixed seed makes
// it deterministic for tests.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (g *Random) Next() string {
	g.mu.Lock()
	hue := g.rng.Intn(360)
	g.mu.Unlock()
	return token(hue)
}

func (g *Random) Avoiding(avoid string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		t := token(g.rng.Intn(360))
		if t != avoid {
			return t
		}
	}
}

func token(hue int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 65%%)", hue)
}
