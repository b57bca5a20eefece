package analyzer

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// TokenCache memoizes token streams per (language, code body) for the
// duration of one scan. Safe for concurrent use.
type TokenCache struct {
	tokenizer Tokenizer
	entries   sync.Map // uint64 -> *tokenCacheEntry
	hits      atomic.Int64
	misses    atomic.Int64
}

type tokenCacheEntry struct {
	language string
	code     string
	tokens   []models.Token
}

func NewTokenCache(tokenizer Tokenizer) *TokenCache {
	return &TokenCache{tokenizer: tokenizer}
}

// Tokens returns the token stream for code, detecting the language profile
// from filename.
func (c *TokenCache) Tokens(filename, code string) []models.Token {
	language := DetectLanguage(filename, code)
	key := cacheKey(language, code)

	if v, ok := c.entries.Load(key); ok {
		entry := v.(*tokenCacheEntry)
		if entry.language == language && entry.code == code {
			c.hits.Add(1)
			return entry.tokens
		}
		// hash collision: serve uncached
		c.misses.Add(1)
		return c.tokenizer.TokenizeAs(language, code)
	}

	c.misses.Add(1)
	entry := &tokenCacheEntry{
		language: language,
		code:     code,
		tokens:   c.tokenizer.TokenizeAs(language, code),
	}
	actual, _ := c.entries.LoadOrStore(key, entry)
	stored := actual.(*tokenCacheEntry)
	if stored.language == language && stored.code == code {
		return stored.tokens
	}
	return entry.tokens
}

// Stats returns the hit and miss counters.
func (c *TokenCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func cacheKey(language, code string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(language)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(code)
	return d.Sum64()
}
