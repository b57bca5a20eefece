package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

func TestHashGroupingPolicy_Group(t *testing.T) {
	subs := []models.Submission{
		{ID: "1", CodeHash: "AAAAAAAA1111"},
		{ID: "2", CodeHash: "bbbbbbbb2222"},
		{ID: "3", CodeHash: " aaaaaaaa3333 "},
		{ID: "4", CodeHash: "cccccccc"},
		{ID: "5", CodeHash: "bbbbbbbb9999"},
	}

	groups := HashGroupingPolicy{PrefixLength: 8}.Group(subs)
	assert.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, groups)
	assert.Equal(t, 2, groupPairCount(groups))
}

func TestHashGroupingPolicy_DisabledPutsEverythingTogether(t *testing.T) {
	subs := []models.Submission{{ID: "1", CodeHash: "aa"}, {ID: "2", CodeHash: "bb"}, {ID: "3"}}

	groups := HashGroupingPolicy{PrefixLength: 0}.Group(subs)
	assert.Equal(t, [][]int{{0, 1, 2}}, groups)
	assert.Equal(t, 3, groupPairCount(groups))

	assert.Nil(t, HashGroupingPolicy{PrefixLength: 8}.Group(nil))
}

func TestHashGroupingPolicy_ShortHashUsesWholeValue(t *testing.T) {
	subs := []models.Submission{{ID: "1", CodeHash: "abc"}, {ID: "2", CodeHash: "abc"}, {ID: "3", CodeHash: "abcd"}}

	groups := HashGroupingPolicy{PrefixLength: 8}.Group(subs)
	assert.Equal(t, [][]int{{0, 1}, {2}}, groups)
}

func TestHashGroupingPolicy_NormalizesCaseAndWhitespace(t *testing.T) {
	subs := []models.Submission{
		{ID: "1", CodeHash: "ABCDEF12aaaa"},
		{ID: "2", CodeHash: "abcdef12bbbb"},
		{ID: "3", CodeHash: "\tAbCdEf12cccc\n"},
	}

	groups := HashGroupingPolicy{PrefixLength: 8}.Group(subs)
	assert.Equal(t, [][]int{{0, 1, 2}}, groups)
}

func TestSubmissionHash_FillsMissingHash(t *testing.T) {
	s := models.Submission{CodeContent: "x = 1"}
	hash := SubmissionHash(s)

	assert.Len(t, hash, 64)
	assert.Equal(t, hash, SubmissionHash(models.Submission{CodeContent: "x = 1"}))
	assert.NotEqual(t, hash, SubmissionHash(models.Submission{CodeContent: "x = 2"}))
	assert.Equal(t, "abc", SubmissionHash(models.Submission{CodeHash: " ABC "}))
}
