package analyzer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

var sampleCodes = []string{
	"",
	"x = 1",
	"x=1\ny=2",
	"a=1",
	"b=2",
	"def add(a, b):\n    return a + b\n",
	"def plus(x, y):\n    # sum\n    return x + y\n",
	"for i in range(10):\n    print(i * i)\n",
	"import os\nprint(os.getcwd())\n",
	"while True:\n    pass",
}

func newTestCalculator() SimilarityCalculator {
	return NewSimilarityCalculator(NewTokenizer(), DefaultCalculatorConfig())
}

func TestCalculateSimilarity_IdenticalCode(t *testing.T) {
	calc := newTestCalculator()

	for _, code := range sampleCodes[1:] {
		result := calc.CalculateSimilarity(code, code)
		assert.Equal(t, models.SimilarityResult{JaccardScore: 100, LCSScore: 100, CombinedScore: 100}, result, code)
	}
}

func TestCalculateSimilarity_EmptyInput(t *testing.T) {
	calc := newTestCalculator()

	assert.Equal(t, models.SimilarityResult{}, calc.CalculateSimilarity("", ""))
	assert.Equal(t, models.SimilarityResult{}, calc.CalculateSimilarity("x = 1", ""))
	assert.Equal(t, models.SimilarityResult{}, calc.CalculateSimilarity("", "x = 1"))
	assert.Equal(t, models.SimilarityResult{}, calc.CalculateSimilarity("# only a comment", "# only a comment"))
}

func TestCalculateSimilarity_SymmetricAndBounded(t *testing.T) {
	calc := newTestCalculator()

	for _, a := range sampleCodes {
		for _, b := range sampleCodes {
			ab := calc.CalculateSimilarity(a, b)
			ba := calc.CalculateSimilarity(b, a)
			assert.Equal(t, ab, ba, "%q vs %q", a, b)

			for _, score := range []float64{ab.JaccardScore, ab.LCSScore, ab.CombinedScore} {
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			}
		}
	}
}

func TestCalculateSimilarity_DifferentAssignments(t *testing.T) {
	result := newTestCalculator().CalculateSimilarity("a=1", "b=2")

	// only "=" is shared: 1 of 5 distinct values, LCS 1 of 3
	assert.Equal(t, 20.0, result.JaccardScore)
	assert.Equal(t, 33.33, result.LCSScore)
	assert.Equal(t, 28.0, result.CombinedScore)
}

func TestCalculateSimilarity_RenamedVariablesKeepStructure(t *testing.T) {
	calc := newTestCalculator()

	renamed := calc.CalculateSimilarity(sampleCodes[5], sampleCodes[6])
	unrelated := calc.CalculateSimilarity(sampleCodes[5], sampleCodes[8])

	assert.Greater(t, renamed.LCSScore, unrelated.LCSScore)
	assert.Greater(t, renamed.CombinedScore, unrelated.CombinedScore)
}

func TestCalculateSimilarity_Weights(t *testing.T) {
	tk := NewTokenizer()

	jaccardOnly := NewSimilarityCalculator(tk, CalculatorConfig{JaccardWeight: 1, LCSWeight: 0})
	r := jaccardOnly.CalculateSimilarity("a=1", "b=2")
	assert.Equal(t, r.JaccardScore, r.CombinedScore)

	lcsOnly := NewSimilarityCalculator(tk, CalculatorConfig{JaccardWeight: 0, LCSWeight: 3})
	r = lcsOnly.CalculateSimilarity("a=1", "b=2")
	assert.Equal(t, r.LCSScore, r.CombinedScore)

	// invalid weights fall back to the defaults
	invalid := NewSimilarityCalculator(tk, CalculatorConfig{JaccardWeight: -1, LCSWeight: 0})
	assert.Equal(t, 28.0, invalid.CalculateSimilarity("a=1", "b=2").CombinedScore)
}

func TestCompareTokens_MaxLCSTokens(t *testing.T) {
	calc := NewSimilarityCalculator(NewTokenizer(), CalculatorConfig{JaccardWeight: 0.4, LCSWeight: 0.6, MaxLCSTokens: 3})
	code := "a = b + c * d - e"

	result := calc.CalculateSimilarity(code, code)
	assert.Equal(t, 100.0, result.LCSScore)
}

func TestCompareTokens_Cancelled(t *testing.T) {
	calc := newTestCalculator()
	tk := NewTokenizer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.CompareTokens(ctx, tk.Tokenize("a = 1"), tk.Tokenize("b = 2"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJaccardScore(t *testing.T) {
	tk := NewTokenizer()

	assert.Equal(t, 0.0, JaccardScore(nil, nil))
	assert.Equal(t, 100.0, JaccardScore(tk.Tokenize("x x x"), tk.Tokenize("x")))
	// {a, b} vs {b, c}
	assert.InDelta(t, 100.0/3, JaccardScore(tk.Tokenize("a b"), tk.Tokenize("b c")), 1e-9)
}

// referenceLCS is the textbook O(n*m) dynamic program.
func referenceLCS(a, b []int) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func TestLCSLength_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sizes := []int{0, 1, 2, 5, 63, 64, 65, 127, 128, 130, 200, 301}

	for _, n := range sizes {
		for _, m := range sizes {
			for _, alphabet := range []int{2, 4, 20} {
				a := randomSequence(rng, n, alphabet)
				b := randomSequence(rng, m, alphabet)

				got, err := LCSLength(context.Background(), a, b)
				require.NoError(t, err)
				require.Equal(t, referenceLCS(a, b), got, "n=%d m=%d alphabet=%d", n, m, alphabet)

				swapped, err := LCSLength(context.Background(), b, a)
				require.NoError(t, err)
				require.Equal(t, got, swapped)
			}
		}
	}
}

func TestLCSLength_Examples(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want int
	}{
		{"empty", nil, nil, 0},
		{"one empty", []int{1, 2}, nil, 0},
		{"identical", []int{1, 2, 3}, []int{1, 2, 3}, 3},
		{"disjoint", []int{1, 2}, []int{3, 4}, 0},
		{"interleaved", []int{1, 2, 3, 4, 5}, []int{9, 1, 3, 9, 5}, 3},
		{"shared prefix and suffix", []int{7, 1, 2, 8}, []int{7, 2, 1, 8}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LCSLength(context.Background(), tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLCSLength_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LCSLength(ctx, []int{1, 2}, []int{3, 4})
	assert.ErrorIs(t, err, context.Canceled)

	// fully trimmed inputs finish without touching the context
	n, err := LCSLength(ctx, []int{1, 2}, []int{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func randomSequence(rng *rand.Rand, n, alphabet int) []int {
	seq := make([]int, n)
	for i := range seq {
		seq[i] = rng.Intn(alphabet)
	}
	return seq
}

func BenchmarkLCSLength(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	x := randomSequence(rng, 5000, 50)
	y := randomSequence(rng, 5000, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LCSLength(context.Background(), x, y)
	}
}
