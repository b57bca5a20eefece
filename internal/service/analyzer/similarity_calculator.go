package analyzer

import (
	"context"
	"math"
	"math/bits"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type SimilarityCalculator interface {
	// CalculateSimilarity tokenizes both bodies and scores them.
	CalculateSimilarity(codeA, codeB string) models.SimilarityResult
	// CompareTokens scores two token streams. It only fails when ctx is done.
	CompareTokens(ctx context.Context, a, b []models.Token) (models.SimilarityResult, error)
}

type CalculatorConfig struct {
	JaccardWeight float64
	LCSWeight     float64
	// MaxLCSTokens caps each sequence fed to the LCS; 0 disables the cap.
	MaxLCSTokens int
}

func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		JaccardWeight: 0.4,
		LCSWeight:     0.6,
		MaxLCSTokens:  20000,
	}
}

type similarityCalculator struct {
	tokenizer Tokenizer
	config    CalculatorConfig
}

func NewSimilarityCalculator(tokenizer Tokenizer, config CalculatorConfig) SimilarityCalculator {
	if config.JaccardWeight < 0 || config.LCSWeight < 0 || config.JaccardWeight+config.LCSWeight <= 0 {
		defaults := DefaultCalculatorConfig()
		config.JaccardWeight = defaults.JaccardWeight
		config.LCSWeight = defaults.LCSWeight
	}
	return &similarityCalculator{
		tokenizer: tokenizer,
		config:    config,
	}
}

func (c *similarityCalculator) CalculateSimilarity(codeA, codeB string) models.SimilarityResult {
	// background context never cancels, so the error is always nil
	result, _ := c.CompareTokens(context.Background(), c.tokenizer.Tokenize(codeA), c.tokenizer.Tokenize(codeB))
	return result
}

func (c *similarityCalculator) CompareTokens(ctx context.Context, a, b []models.Token) (models.SimilarityResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return models.SimilarityResult{}, nil
	}

	jaccard := JaccardScore(a, b)

	seqA, seqB := internTokens(a, b)
	if limit := c.config.MaxLCSTokens; limit > 0 {
		if len(seqA) > limit {
			seqA = seqA[:limit]
		}
		if len(seqB) > limit {
			seqB = seqB[:limit]
		}
	}

	lcs, err := LCSLength(ctx, seqA, seqB)
	if err != nil {
		return models.SimilarityResult{}, err
	}
	lcsScore := 100 * float64(lcs) / float64(max(len(seqA), len(seqB)))

	return c.combine(jaccard, lcsScore), nil
}

func (c *similarityCalculator) combine(jaccard, lcs float64) models.SimilarityResult {
	wJ, wL := c.config.JaccardWeight, c.config.LCSWeight
	combined := (wJ*jaccard + wL*lcs) / (wJ + wL)

	return models.SimilarityResult{
		JaccardScore:  clampScore(roundScore(jaccard)),
		LCSScore:      clampScore(roundScore(lcs)),
		CombinedScore: clampScore(roundScore(combined)),
	}
}

// JaccardScore compares the sets of distinct token values, scaled to 0-100.
func JaccardScore(a, b []models.Token) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t.Value] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	intersection := 0
	for _, t := range b {
		if _, seen := setB[t.Value]; seen {
			continue
		}
		setB[t.Value] = struct{}{}
		if _, ok := setA[t.Value]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return 100 * float64(intersection) / float64(union)
}

// internTokens maps token values to dense integer symbols shared by both
// sequences.
func internTokens(a, b []models.Token) ([]int, []int) {
	ids := make(map[string]int, len(a))
	intern := func(tokens []models.Token) []int {
		seq := make([]int, len(tokens))
		for i, t := range tokens {
			id, ok := ids[t.Value]
			if !ok {
				id = len(ids)
				ids[t.Value] = id
			}
			seq[i] = id
		}
		return seq
	}
	return intern(a), intern(b)
}

const lcsCancelCheckInterval = 256

// LCSLength returns the length of the longest common subsequence of a and b.
// It uses the bit-parallel recurrence V' = (V + (V & M)) | (V &^ M) over the
// shorter sequence, costing O(len(long) * len(short)/64) word operations.
// ctx is checked every 256 rows of the longer sequence.
func LCSLength(ctx context.Context, a, b []int) (int, error) {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	a, b = a[prefix:], b[prefix:]

	suffix := 0
	for suffix < len(a) && suffix < len(b) && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	a, b = a[:len(a)-suffix], b[:len(b)-suffix]

	common := prefix + suffix
	if len(a) == 0 || len(b) == 0 {
		return common, nil
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	m := len(a)
	words := (m + 63) / 64

	maxSymbol := 0
	for _, s := range a {
		if s > maxSymbol {
			maxSymbol = s
		}
	}
	match := make([][]uint64, maxSymbol+1)
	for i, s := range a {
		if match[s] == nil {
			match[s] = make([]uint64, words)
		}
		match[s][i/64] |= 1 << (uint(i) % 64)
	}

	v := make([]uint64, words)
	for k := range v {
		v[k] = math.MaxUint64
	}

	for row, s := range b {
		if row%lcsCancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if s > maxSymbol || match[s] == nil {
			continue
		}
		mask := match[s]
		var carry uint64
		for k := 0; k < words; k++ {
			x := v[k]
			u := x & mask[k]
			var sum uint64
			sum, carry = bits.Add64(x, u, carry)
			v[k] = sum | (x &^ mask[k])
		}
	}

	zeros := 0
	for k := 0; k < words; k++ {
		word := v[k]
		if k == words-1 && m%64 != 0 {
			word |= ^uint64(0) << (uint(m) % 64)
		}
		zeros += 64 - bits.OnesCount64(word)
	}

	return common + zeros, nil
}

func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
