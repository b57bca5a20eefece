package analyzer

import (
	"strings"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/pkg/utils"
)

// HashGroupingPolicy buckets submissions by a prefix of their content hash
// for the fast scan. Submissions in different buckets are never compared, so
// similar code whose hashes diverge in the prefix is missed. Prefixes are
// taken from the normalized hash (see SubmissionHash): stored hashes that
// differ only in case or surrounding whitespace land in the same bucket. A
// non-positive PrefixLength puts every submission in one bucket.
type HashGroupingPolicy struct {
	PrefixLength int
}

// Group returns buckets of submission indexes. Buckets appear in the order of
// their first member, and members keep input order.
func (p HashGroupingPolicy) Group(submissions []models.Submission) [][]int {
	if len(submissions) == 0 {
		return nil
	}
	if p.PrefixLength <= 0 {
		all := make([]int, len(submissions))
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}

	var groups [][]int
	byPrefix := make(map[string]int)
	for i, s := range submissions {
		key := p.prefix(SubmissionHash(s))
		idx, ok := byPrefix[key]
		if !ok {
			idx = len(groups)
			byPrefix[key] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], i)
	}
	return groups
}

func (p HashGroupingPolicy) prefix(hash string) string {
	if len(hash) <= p.PrefixLength {
		return hash
	}
	return hash[:p.PrefixLength]
}

// SubmissionHash returns the normalized content hash of s, computing a
// SHA-256 of the code when none was stored.
func SubmissionHash(s models.Submission) string {
	hash := strings.ToLower(strings.TrimSpace(s.CodeHash))
	if hash != "" {
		return hash
	}
	hash, _ = utils.CalculateHash([]byte(s.CodeContent), "sha256")
	return hash
}

// groupPairCount is the number of unordered pairs inside groups of size >= 2.
func groupPairCount(groups [][]int) int {
	total := 0
	for _, g := range groups {
		total += pairCount(len(g))
	}
	return total
}

func pairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}
