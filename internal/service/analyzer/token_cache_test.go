package analyzer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type countingTokenizer struct {
	Tokenizer
	mu    sync.Mutex
	calls int
}

func (c *countingTokenizer) TokenizeAs(language, code string) []models.Token {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Tokenizer.TokenizeAs(language, code)
}

func TestTokenCache_Memoizes(t *testing.T) {
	tk := &countingTokenizer{Tokenizer: NewTokenizer()}
	cache := NewTokenCache(tk)

	first := cache.Tokens("a.py", "x = 1")
	second := cache.Tokens("b.py", "x = 1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, tk.calls)

	cache.Tokens("a.py", "y = 2")
	assert.Equal(t, 2, tk.calls)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestTokenCache_SeparatesLanguages(t *testing.T) {
	cache := NewTokenCache(NewTokenizer())
	code := "x = 1 // 2"

	python := cache.Tokens("main.py", code)
	cfamily := cache.Tokens("main.go", code)

	assert.Equal(t, []string{"x", "=", "1", "//", "2"}, values(python))
	assert.Equal(t, []string{"x", "=", "1"}, values(cfamily))
}

func TestTokenCache_ConcurrentUse(t *testing.T) {
	cache := NewTokenCache(NewTokenizer())
	codes := []string{"a = 1", "b = 2", "c = 3"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := codes[i%len(codes)]
			assert.Len(t, cache.Tokens("", code), 3)
		}(i)
	}
	wg.Wait()
}
