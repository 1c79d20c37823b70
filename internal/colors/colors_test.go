package colors

import (
	"regexp"
	"testing"
)

var tokenRe = regexp.MustCompile(`^hsl\(\d{1,3}, 70%, 65%\)$`)

func TestNextProducesHSLTokens(t *testing.T) {
	g := NewRandom(1)
	for i := 0; i < 50; i++ {
		tok := g.Next()
		if !tokenRe.MatchString(tok) {
			t.Fatalf("unexpected token %q", tok)
		}
	}
}

func TestAvoidingNeverReturnsTheExcludedToken(t *testing.T) {
	g := NewRandom(42)
	avoid := g.Next()
	for i := 0; i < 100; i++ {
		if got := g.Avoiding(avoid); got == avoid {
			t.Fatalf("Avoiding returned the excluded token %q", avoid)
		}
	}
}
