package analyzer

import (
	"strings"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// HighlightGenerator produces line-level evidence for a pair of submissions.
//
// A line of A is matched to a line of B when both lines carry at least one
// token value common to the two submissions and their trimmed text is equal.
// Each match becomes a single-line exact region. Renamed identifiers defeat
// the heuristic and trivial shared lines are over-reported.
type HighlightGenerator interface {
	GenerateHighlightData(codeA, codeB string) models.HighlightData
	// HighlightTokens reuses token streams already computed for the pair.
	HighlightTokens(codeA, codeB string, tokensA, tokensB []models.Token) models.HighlightData
}

type HighlightConfig struct {
	// MaxRegions bounds the regions emitted per pair; 0 means unbounded.
	MaxRegions int
}

func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{MaxRegions: 5000}
}

type highlightGenerator struct {
	tokenizer Tokenizer
	config    HighlightConfig
}

func NewHighlightGenerator(tokenizer Tokenizer, config HighlightConfig) HighlightGenerator {
	return &highlightGenerator{
		tokenizer: tokenizer,
		config:    config,
	}
}

func (g *highlightGenerator) GenerateHighlightData(codeA, codeB string) models.HighlightData {
	return g.HighlightTokens(codeA, codeB, g.tokenizer.Tokenize(codeA), g.tokenizer.Tokenize(codeB))
}

func (g *highlightGenerator) HighlightTokens(codeA, codeB string, tokensA, tokensB []models.Token) models.HighlightData {
	data := models.HighlightData{Regions: []models.MatchRegion{}}

	common := commonValues(tokensA, tokensB)
	if len(common) == 0 {
		return data
	}

	linesA := strings.Split(codeA, "\n")
	linesB := strings.Split(codeB, "\n")
	candidatesA := linesWithCommonTokens(tokensA, common, len(linesA))
	candidatesB := linesWithCommonTokens(tokensB, common, len(linesB))

	byText := make(map[string][]int)
	for j, line := range linesB {
		if candidatesB[j] {
			text := strings.TrimSpace(line)
			byText[text] = append(byText[text], j)
		}
	}

	for i, line := range linesA {
		if !candidatesA[i] {
			continue
		}
		for _, j := range byText[strings.TrimSpace(line)] {
			if g.config.MaxRegions > 0 && len(data.Regions) >= g.config.MaxRegions {
				return data
			}
			data.Regions = append(data.Regions, models.MatchRegion{
				StartLineA: i,
				EndLineA:   i,
				StartLineB: j,
				EndLineB:   j,
				MatchType:  models.MatchTypeExact,
			})
		}
	}

	return data
}

func commonValues(a, b []models.Token) map[string]struct{} {
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t.Value] = struct{}{}
	}
	common := make(map[string]struct{})
	for _, t := range b {
		if _, ok := inA[t.Value]; ok {
			common[t.Value] = struct{}{}
		}
	}
	return common
}

func linesWithCommonTokens(tokens []models.Token, common map[string]struct{}, lineCount int) []bool {
	marked := make([]bool, lineCount)
	for _, t := range tokens {
		if t.Line < 0 || t.Line >= lineCount {
			continue
		}
		if _, ok := common[t.Value]; ok {
			marked[t.Line] = true
		}
	}
	return marked
}
