package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

func exact(a, b int) models.MatchRegion {
	return models.MatchRegion{StartLineA: a, EndLineA: a, StartLineB: b, EndLineB: b, MatchType: models.MatchTypeExact}
}

func TestGenerateHighlightData(t *testing.T) {
	tests := []struct {
		name  string
		codeA string
		codeB string
		want  []models.MatchRegion
	}{
		{
			name:  "identical lines",
			codeA: "x=1\ny=2",
			codeB: "x=1\ny=2",
			want:  []models.MatchRegion{exact(0, 0), exact(1, 1)},
		},
		{
			name:  "no identical lines",
			codeA: "a=1",
			codeB: "b=2",
			want:  []models.MatchRegion{},
		},
		{
			name:  "indentation is ignored",
			codeA: "def f(x):\n    return x * 2",
			codeB: "def g(x):\n\treturn x * 2\n",
			want:  []models.MatchRegion{exact(1, 1)},
		},
		{
			name:  "moved lines",
			codeA: "import os\nimport sys\nprint(1)",
			codeB: "print(1)\nimport sys",
			want:  []models.MatchRegion{exact(1, 1), exact(2, 0)},
		},
		{
			name:  "repeated line matches every occurrence",
			codeA: "pass\nx = 1\npass",
			codeB: "pass",
			want:  []models.MatchRegion{exact(0, 0), exact(2, 0)},
		},
		{
			name:  "comment only lines carry no tokens",
			codeA: "# same\nx = 1",
			codeB: "# same\nx = 1",
			want:  []models.MatchRegion{exact(1, 1)},
		},
		{
			name:  "empty input",
			codeA: "",
			codeB: "",
			want:  []models.MatchRegion{},
		},
	}

	gen := NewHighlightGenerator(NewTokenizer(), DefaultHighlightConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := gen.GenerateHighlightData(tt.codeA, tt.codeB)
			require.NotNil(t, data.Regions)
			assert.Equal(t, tt.want, data.Regions)
		})
	}
}

func TestGenerateHighlightData_MaxRegions(t *testing.T) {
	gen := NewHighlightGenerator(NewTokenizer(), HighlightConfig{MaxRegions: 3})

	data := gen.GenerateHighlightData("pass\npass\npass", "pass\npass")
	assert.Len(t, data.Regions, 3)
	assert.Equal(t, exact(0, 0), data.Regions[0])
	assert.Equal(t, exact(1, 0), data.Regions[2])
}

func TestHighlightData_EncodeRoundTrip(t *testing.T) {
	gen := NewHighlightGenerator(NewTokenizer(), DefaultHighlightConfig())
	data := gen.GenerateHighlightData("x=1\ny=2", "x=1\ny=2")

	raw, err := data.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"regions":[
		{"start_line_a":0,"end_line_a":0,"start_line_b":0,"end_line_b":0,"match_type":"exact"},
		{"start_line_a":1,"end_line_a":1,"start_line_b":1,"end_line_b":1,"match_type":"exact"}]}`, raw)

	empty, err := models.HighlightData{}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"regions":[]}`, empty)
}
