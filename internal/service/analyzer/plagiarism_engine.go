package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/worker"
	"github.com/rs/zerolog"
)

// PlagiarismEngine runs pairwise scans over a submission set. It keeps no
// state between calls and never sets ReportID; every produced Similarity
// carries models.UnassignedReportID.
type PlagiarismEngine interface {
	// DetectPlagiarism compares every unordered pair once and keeps every result.
	DetectPlagiarism(ctx context.Context, submissions []models.Submission, progress models.ProgressFunc) (*ScanResult, error)
	// DetectPlagiarismFast compares only within hash-prefix groups and drops
	// pairs scoring below the configured minimum.
	DetectPlagiarismFast(ctx context.Context, submissions []models.Submission, progress models.ProgressFunc) (*ScanResult, error)
	// FindHighSimilarityPairs runs a full scan and returns pairs scoring at
	// least threshold, highest first.
	FindHighSimilarityPairs(ctx context.Context, submissions []models.Submission, threshold float64, progress models.ProgressFunc) (*ScanResult, error)
	// ComparePair scores one pair with evidence, outside of any scan.
	ComparePair(ctx context.Context, a, b models.Submission) (models.SimilarityResult, models.HighlightData, error)
	GetEngineInfo() EngineInfo
}

type EngineInfo struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Algorithm   string  `json:"algorithm"`
	Description string  `json:"description"`
	Workers     int     `json:"workers"`
	MinScore    float64 `json:"fast_min_score"`
	Prefix      int     `json:"fast_hash_prefix_length"`
}

// ScanResult is the outcome of one scan. On cancellation it holds whatever
// completed before the context was done.
type ScanResult struct {
	Similarities []models.Similarity  `json:"similarities"`
	Failures     []models.PairFailure `json:"failures"`
	// TotalPairs is the number of pairs scheduled for comparison.
	TotalPairs int `json:"total_pairs"`
	// ComparedPairs counts scheduled pairs that were scored.
	ComparedPairs int `json:"compared_pairs"`
	// SkippedPairs counts scored pairs dropped by a score filter.
	SkippedPairs int `json:"skipped_pairs"`
}

// MaxScore returns the highest combined score among the kept similarities.
func (r *ScanResult) MaxScore() float64 {
	best := 0.0
	for _, s := range r.Similarities {
		if s.SimilarityScore > best {
			best = s.SimilarityScore
		}
	}
	return best
}

type EngineConfig struct {
	// MaxWorkers bounds concurrent pair comparisons; 0 sizes from the CPU count.
	MaxWorkers int
	// PairTimeout bounds one pair comparison; 0 disables the timeout.
	PairTimeout             time.Duration
	FastPrefixLength        int
	FastMinScore            float64
	HighSimilarityThreshold float64
	// Clock stamps CreatedAt on produced similarities; nil uses time.Now.
	Clock func() time.Time
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxWorkers:              0,
		PairTimeout:             30 * time.Second,
		FastPrefixLength:        8,
		FastMinScore:            10,
		HighSimilarityThreshold: 60,
	}
}

type plagiarismEngine struct {
	tokenizer   Tokenizer
	calculator  SimilarityCalculator
	highlighter HighlightGenerator
	logger      zerolog.Logger
	config      EngineConfig
}

func NewPlagiarismEngine(
	tokenizer Tokenizer,
	calculator SimilarityCalculator,
	highlighter HighlightGenerator,
	logger zerolog.Logger,
	config EngineConfig,
) PlagiarismEngine {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &plagiarismEngine{
		tokenizer:   tokenizer,
		calculator:  calculator,
		highlighter: highlighter,
		logger:      logger,
		config:      config,
	}
}

type pairRef struct {
	i, j int
}

type pairOutcome struct {
	similarity models.Similarity
	result     models.SimilarityResult
	kept       bool
	failure    *models.PairFailure
	cancelled  bool
}

// keepFunc decides whether a scored pair is part of the result. Highlight
// evidence is only generated for kept pairs.
type keepFunc func(models.SimilarityResult) bool

func keepAll(models.SimilarityResult) bool { return true }

// scan holds the per-call state shared by the pair tasks.
type scan struct {
	submissions []models.Submission
	cache       *TokenCache
	pool        *worker.WorkerPool
}

func (e *plagiarismEngine) newScan(ctx context.Context, submissions []models.Submission) (*scan, error) {
	pool := worker.NewWorkerPool(e.config.MaxWorkers, e.logger)
	if err := pool.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}
	return &scan{
		submissions: e.dedupe(submissions),
		cache:       NewTokenCache(e.tokenizer),
		pool:        pool,
	}, nil
}

func (s *scan) close() {
	_ = s.pool.Stop()
}

func (e *plagiarismEngine) DetectPlagiarism(ctx context.Context, submissions []models.Submission, progress models.ProgressFunc) (*ScanResult, error) {
	startTime := time.Now()

	sc, err := e.newScan(ctx, submissions)
	if err != nil {
		return nil, err
	}
	defer sc.close()

	pairs := allPairs(indexes(len(sc.submissions)))
	result := &ScanResult{
		Similarities: make([]models.Similarity, 0, len(pairs)),
		TotalPairs:   len(pairs),
	}

	e.logger.Info().
		Int("submissions", len(sc.submissions)).
		Int("pairs", len(pairs)).
		Msg("Starting full plagiarism scan")

	done := 0
	outcomes := e.comparePairs(ctx, sc, pairs, keepAll, func() {
		done++
		notify(progress, done, len(pairs))
	})
	e.collect(result, outcomes)

	e.logScanFinished("full", result, sc.cache, startTime)
	return result, ctx.Err()
}

func (e *plagiarismEngine) DetectPlagiarismFast(ctx context.Context, submissions []models.Submission, progress models.ProgressFunc) (*ScanResult, error) {
	startTime := time.Now()

	sc, err := e.newScan(ctx, submissions)
	if err != nil {
		return nil, err
	}
	defer sc.close()

	policy := HashGroupingPolicy{PrefixLength: e.config.FastPrefixLength}
	groups := policy.Group(sc.submissions)
	total := groupPairCount(groups)

	result := &ScanResult{
		Similarities: make([]models.Similarity, 0),
		TotalPairs:   total,
	}

	e.logger.Info().
		Int("submissions", len(sc.submissions)).
		Int("groups", len(groups)).
		Int("pairs", total).
		Msg("Starting fast plagiarism scan")

	minScore := e.config.FastMinScore
	keep := func(r models.SimilarityResult) bool {
		return r.CombinedScore >= minScore
	}

	done := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		outcomes := e.comparePairs(ctx, sc, allPairs(group), keep, func() {
			done++
		})
		e.collect(result, outcomes)

		if ctx.Err() != nil {
			break
		}
		notify(progress, done, total)
	}

	e.logScanFinished("fast", result, sc.cache, startTime)
	return result, ctx.Err()
}

func (e *plagiarismEngine) FindHighSimilarityPairs(ctx context.Context, submissions []models.Submission, threshold float64, progress models.ProgressFunc) (*ScanResult, error) {
	startTime := time.Now()
	threshold = clampScore(threshold)

	sc, err := e.newScan(ctx, submissions)
	if err != nil {
		return nil, err
	}
	defer sc.close()

	pairs := allPairs(indexes(len(sc.submissions)))
	result := &ScanResult{
		Similarities: make([]models.Similarity, 0),
		TotalPairs:   len(pairs),
	}

	e.logger.Info().
		Int("submissions", len(sc.submissions)).
		Int("pairs", len(pairs)).
		Float64("threshold", threshold).
		Msg("Starting high similarity scan")

	keep := func(r models.SimilarityResult) bool {
		return r.CombinedScore >= threshold
	}

	done := 0
	outcomes := e.comparePairs(ctx, sc, pairs, keep, func() {
		done++
		notify(progress, done, len(pairs))
	})
	e.collect(result, outcomes)

	sort.SliceStable(result.Similarities, func(a, b int) bool {
		return result.Similarities[a].SimilarityScore > result.Similarities[b].SimilarityScore
	})

	e.logScanFinished("high", result, sc.cache, startTime)
	return result, ctx.Err()
}

func (e *plagiarismEngine) ComparePair(ctx context.Context, a, b models.Submission) (models.SimilarityResult, models.HighlightData, error) {
	cache := NewTokenCache(e.tokenizer)
	tokensA := cache.Tokens(a.Filename, a.CodeContent)
	tokensB := cache.Tokens(b.Filename, b.CodeContent)

	result, err := e.calculator.CompareTokens(ctx, tokensA, tokensB)
	if err != nil {
		return models.SimilarityResult{}, models.HighlightData{}, err
	}
	return result, e.highlighter.HighlightTokens(a.CodeContent, b.CodeContent, tokensA, tokensB), nil
}

func (e *plagiarismEngine) GetEngineInfo() EngineInfo {
	workers := e.config.MaxWorkers
	if workers <= 0 {
		workers = worker.DefaultWorkerCount()
	}
	return EngineInfo{
		Name:        "Plagiarism Engine",
		Version:     "2.0.0",
		Algorithm:   "jaccard+lcs",
		Description: "Scores token streams with Jaccard overlap and a bit-parallel LCS",
		Workers:     workers,
		MinScore:    e.config.FastMinScore,
		Prefix:      e.config.FastPrefixLength,
	}
}

// comparePairs scores pairs on the worker pool and returns outcomes in pair
// order. onDone runs on the calling goroutine once per finished pair that was
// not cancelled, so progress counts stay monotonic.
func (e *plagiarismEngine) comparePairs(ctx context.Context, sc *scan, pairs []pairRef, keep keepFunc, onDone func()) []pairOutcome {
	outcomes := make([]pairOutcome, len(pairs))
	if len(pairs) == 0 {
		return outcomes
	}

	finished := make(chan int, len(pairs))
	submitted := make(chan int, 1)

	go func() {
		n := 0
		for k := range pairs {
			err := sc.pool.Submit(ctx, func() {
				outcomes[k] = e.comparePair(ctx, sc, pairs[k], keep)
				finished <- k
			})
			if err != nil {
				break
			}
			n++
		}
		submitted <- n
	}()

	expected := -1
	received := 0
	for expected < 0 || received < expected {
		select {
		case k := <-finished:
			received++
			if !outcomes[k].cancelled && onDone != nil {
				onDone()
			}
		case n := <-submitted:
			expected = n
		}
	}

	// pairs never submitted were cancelled
	for k := expected; k < len(pairs); k++ {
		outcomes[k].cancelled = true
	}
	return outcomes
}

func (e *plagiarismEngine) comparePair(ctx context.Context, sc *scan, p pairRef, keep keepFunc) (out pairOutcome) {
	a, b := sc.submissions[p.i], sc.submissions[p.j]

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Str("submission1_id", a.ID).
				Str("submission2_id", b.ID).
				Interface("panic", r).
				Msg("Pair comparison panicked, skipping pair")
			out = pairOutcome{failure: &models.PairFailure{
				Submission1ID: a.ID,
				Submission2ID: b.ID,
				Reason:        fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	if ctx.Err() != nil {
		return pairOutcome{cancelled: true}
	}

	pairCtx := ctx
	if e.config.PairTimeout > 0 {
		var cancel context.CancelFunc
		pairCtx, cancel = context.WithTimeout(ctx, e.config.PairTimeout)
		defer cancel()
	}

	tokensA := sc.cache.Tokens(a.Filename, a.CodeContent)
	tokensB := sc.cache.Tokens(b.Filename, b.CodeContent)

	result, err := e.calculator.CompareTokens(pairCtx, tokensA, tokensB)
	if err != nil {
		if ctx.Err() != nil {
			return pairOutcome{cancelled: true}
		}
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("comparison exceeded %s", e.config.PairTimeout)
		}
		e.logger.Warn().
			Str("submission1_id", a.ID).
			Str("submission2_id", b.ID).
			Str("reason", reason).
			Msg("Pair comparison failed, skipping pair")
		return pairOutcome{failure: &models.PairFailure{
			Submission1ID: a.ID,
			Submission2ID: b.ID,
			Reason:        reason,
		}}
	}

	out = pairOutcome{result: result}
	if !keep(result) {
		return out
	}

	highlight := e.highlighter.HighlightTokens(a.CodeContent, b.CodeContent, tokensA, tokensB)
	encoded, err := highlight.Encode()
	if err != nil {
		return pairOutcome{failure: &models.PairFailure{
			Submission1ID: a.ID,
			Submission2ID: b.ID,
			Reason:        fmt.Sprintf("failed to encode highlight data: %v", err),
		}}
	}

	out.kept = true
	out.similarity = models.Similarity{
		ReportID:        models.UnassignedReportID,
		Submission1ID:   a.ID,
		Submission2ID:   b.ID,
		SimilarityScore: result.CombinedScore,
		JaccardScore:    result.JaccardScore,
		LCSScore:        result.LCSScore,
		HighlightData:   encoded,
		CreatedAt:       e.config.Clock(),
	}

	e.logger.Debug().
		Str("submission1_id", a.ID).
		Str("submission2_id", b.ID).
		Float64("combined_score", result.CombinedScore).
		Msg("Compared pair")

	return out
}

func (e *plagiarismEngine) collect(result *ScanResult, outcomes []pairOutcome) {
	for _, o := range outcomes {
		switch {
		case o.cancelled:
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		case o.kept:
			result.ComparedPairs++
			result.Similarities = append(result.Similarities, o.similarity)
		default:
			result.ComparedPairs++
			result.SkippedPairs++
		}
	}
}

// dedupe drops submissions whose ID was already seen, keeping the first.
func (e *plagiarismEngine) dedupe(submissions []models.Submission) []models.Submission {
	seen := make(map[string]struct{}, len(submissions))
	unique := make([]models.Submission, 0, len(submissions))
	for _, s := range submissions {
		if _, dup := seen[s.ID]; dup {
			e.logger.Warn().Str("submission_id", s.ID).Msg("Duplicate submission id, ignoring")
			continue
		}
		seen[s.ID] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

func (e *plagiarismEngine) logScanFinished(mode string, result *ScanResult, cache *TokenCache, startTime time.Time) {
	hits, misses := cache.Stats()
	e.logger.Info().
		Str("mode", mode).
		Int("total_pairs", result.TotalPairs).
		Int("compared_pairs", result.ComparedPairs).
		Int("skipped_pairs", result.SkippedPairs).
		Int("failed_pairs", len(result.Failures)).
		Int("similarities", len(result.Similarities)).
		Int64("token_cache_hits", hits).
		Int64("token_cache_misses", misses).
		Int64("processing_time_ms", time.Since(startTime).Milliseconds()).
		Msg("Plagiarism scan finished")
}

// allPairs lists (i, j) with i before j in members order.
func allPairs(members []int) []pairRef {
	pairs := make([]pairRef, 0, pairCount(len(members)))
	for x := 0; x < len(members); x++ {
		for y := x + 1; y < len(members); y++ {
			pairs = append(pairs, pairRef{i: members[x], j: members[y]})
		}
	}
	return pairs
}

func indexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func notify(progress models.ProgressFunc, current, total int) {
	if progress != nil {
		progress(models.PlagiarismProgress{Current: current, Total: total})
	}
}
