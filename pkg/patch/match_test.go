package patch

import (
	"math/rand"
	"strings"
	"testing"
)

func letters(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

func eq(a, b string) bool { return a == b }

func TestBestMatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		a, b      string
		min, max  int
		wantEdits int
		wantLen   int
	}{
		{name: "identical", a: "abcd", b: "abcd", min: 4, max: 0, wantEdits: 0, wantLen: 4},
		{name: "empty pattern", a: "", b: "xyz", min: 0, max: 2, wantEdits: 0, wantLen: 0},
		{name: "pattern is a prefix", a: "ab", b: "abzz", min: 2, max: 2, wantEdits: 0, wantLen: 2},
		{name: "substitution costs two", a: "abcd", b: "axcd", min: 2, max: 2, wantEdits: 2, wantLen: 4},
		{name: "substitution over budget", a: "abcd", b: "axcd", min: 2, max: 1, wantEdits: 2, wantLen: 0},
		{name: "leading insertion", a: "bc", b: "xbcd", min: 2, max: 2, wantEdits: 1, wantLen: 3},
		{name: "deleted pattern element", a: "abc", b: "ac", min: 2, max: 2, wantEdits: 1, wantLen: 2},
		{name: "nothing in common", a: "abc", b: "xyz", min: 2, max: 2, wantEdits: 3, wantLen: 0},
		{name: "min longer than document", a: "ab", b: "ab", min: 3, max: 0, wantEdits: 1, wantLen: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			edits, length := BestMatch(letters(tc.a), letters(tc.b), eq, tc.min, tc.max)
			if edits != tc.wantEdits || length != tc.wantLen {
				t.Fatalf("BestMatch(%q, %q, min=%d, max=%d) = (%d, %d), want (%d, %d)",
					tc.a, tc.b, tc.min, tc.max, edits, length, tc.wantEdits, tc.wantLen)
			}
		})
	}
}

func TestBestMatchIdentity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		seq := randomSequence(rng, rng.Intn(20))
		edits, length := BestMatch(seq, seq, eq, len(seq), 0)
		if edits != 0 || length != len(seq) {
			t.Fatalf("identity on %v = (%d, %d), want (0, %d)", seq, edits, length, len(seq))
		}
	}
}

// Raising the budget never changes an answer that was already found, and a budget below the
// answer reports budget+1.
func TestBestMatchIsMonotonicInBudget(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	const ceiling = 8
	for i := 0; i < 200; i++ {
		a := randomSequence(rng, 1+rng.Intn(6))
		b := mutate(rng, a)
		min := (len(a) + 1) / 2

		settled, settledLen := BestMatch(a, b, eq, min, ceiling)
		previous := ceiling + 2
		for budget := 0; budget <= ceiling; budget++ {
			edits, length := BestMatch(a, b, eq, min, budget)
			if edits > previous && edits <= budget {
				t.Fatalf("edits grew from %d to %d at budget %d for %v vs %v", previous, edits, budget, a, b)
			}
			switch {
			case settled <= budget:
				if edits != settled || length != settledLen {
					t.Fatalf("budget %d: got (%d, %d), want settled (%d, %d) for %v vs %v",
						budget, edits, length, settled, settledLen, a, b)
				}
			default:
				if edits != budget+1 || length != 0 {
					t.Fatalf("budget %d: got (%d, %d), want no match for %v vs %v", budget, edits, length, a, b)
				}
			}
			if edits <= budget {
				previous = edits
			}
		}
	}
}

func randomSequence(rng *rand.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + rng.Intn(4)))
	}
	return out
}

// mutate copies seq with a few random insertions, deletions and substitutions.
func mutate(rng *rand.Rand, seq []string) []string {
	out := append([]string(nil), seq...)
	for n := rng.Intn(3); n > 0; n-- {
		pos := rng.Intn(len(out) + 1)
		switch rng.Intn(3) {
		case 0:
			out = append(out[:pos], append([]string{"z"}, out[pos:]...)...)
		case 1:
			if pos < len(out) {
				out = append(out[:pos], out[pos+1:]...)
			}
		default:
			if pos < len(out) {
				out[pos] = "y"
			}
		}
	}
	return out
}
