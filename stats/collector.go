// Package stats aggregates engine throughput and quality observations.
// Stats are observability, not correctness state: persistence is
// best-effort and loss on crash is acceptable.
package stats

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
)

// QualitySampleSize bounds the retained quality-score history.
const QualitySampleSize = 1000

// Outcome is one terminal task result to fold into the aggregate.
type Outcome struct {
	Success      bool
	FromCache    bool
	Latency      time.Duration
	QualityScore float64
	SourceLang   string
	TargetLangs  []string
}

// QualitySummary describes the recent quality-score distribution.
type QualitySummary struct {
	Samples int     `json:"samples"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
}

// View is a read-only snapshot of the aggregate.
type View struct {
	Attempted        int64            `json:"attempted"`
	Succeeded        int64            `json:"succeeded"`
	Failed           int64            `json:"failed"`
	CacheHits        int64            `json:"cacheHits"`
	SuccessRate      float64          `json:"successRate"` // percentage, rounded to 2 decimals
	AverageLatencyMs float64          `json:"averageLatencyMs"`
	LanguagePairs    map[string]int64 `json:"languagePairs"`
	Quality          QualitySummary   `json:"quality"`
}

// Collector accumulates outcomes behind a mutex. Record is called from
// concurrent pipeline goroutines; Snapshot from any caller.
type Collector struct {
	mu            sync.Mutex
	attempted     int64
	succeeded     int64
	failed        int64
	cacheHits     int64
	avgLatencyMs  float64
	languagePairs map[string]int64

	qualityScores []float64
	qualityNext   int
	qualityFull   bool

	logger *zap.SugaredLogger
}

// NewCollector creates an empty collector.
func NewCollector(logger *zap.SugaredLogger) *Collector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Collector{
		languagePairs: make(map[string]int64),
		qualityScores: make([]float64, QualitySampleSize),
		logger:        logger,
	}
}

// Record folds one outcome into the aggregate.
func (c *Collector) Record(outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempted++
	if outcome.Success {
		c.succeeded++
	} else {
		c.failed++
	}
	if outcome.FromCache {
		c.cacheHits++
	}

	// Incremental running average keeps no latency history.
	latencyMs := float64(outcome.Latency.Milliseconds())
	c.avgLatencyMs += (latencyMs - c.avgLatencyMs) / float64(c.attempted)

	for _, target := range outcome.TargetLangs {
		c.languagePairs[outcome.SourceLang+"-"+target]++
	}

	if outcome.QualityScore > 0 {
		c.qualityScores[c.qualityNext] = outcome.QualityScore
		c.qualityNext++
		if c.qualityNext == len(c.qualityScores) {
			c.qualityNext = 0
			c.qualityFull = true
		}
	}
}

// Snapshot returns an independent copy of the aggregate.
func (c *Collector) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	pairs := make(map[string]int64, len(c.languagePairs))
	for pair, count := range c.languagePairs {
		pairs[pair] = count
	}

	view := View{
		Attempted:        c.attempted,
		Succeeded:        c.succeeded,
		Failed:           c.failed,
		CacheHits:        c.cacheHits,
		AverageLatencyMs: math.Round(c.avgLatencyMs*100) / 100,
		LanguagePairs:    pairs,
		Quality:          c.qualitySummaryLocked(),
	}
	if c.attempted > 0 {
		view.SuccessRate = math.Round(float64(c.succeeded)/float64(c.attempted)*10000) / 100
	}
	return view
}

func (c *Collector) qualitySummaryLocked() QualitySummary {
	count := c.qualityNext
	if c.qualityFull {
		count = len(c.qualityScores)
	}
	if count == 0 {
		return QualitySummary{}
	}

	samples := make([]float64, count)
	copy(samples, c.qualityScores[:count])
	sort.Float64s(samples)

	var sum float64
	for _, s := range samples {
		sum += s
	}

	return QualitySummary{
		Samples: count,
		Average: math.Round(sum/float64(count)*1000) / 1000,
		Min:     samples[0],
		Max:     samples[count-1],
		P50:     samples[count/2],
		P90:     samples[(count*9)/10],
	}
}

// persistedState is the wire form written to the cache store.
type persistedState struct {
	Attempted     int64            `json:"attempted"`
	Succeeded     int64            `json:"succeeded"`
	Failed        int64            `json:"failed"`
	CacheHits     int64            `json:"cacheHits"`
	AvgLatencyMs  float64          `json:"avgLatencyMs"`
	LanguagePairs map[string]int64 `json:"languagePairs"`
	Quality       []float64        `json:"quality"`
	SavedAt       time.Time        `json:"savedAt"`
}

// Persist writes the aggregate to the cache store. Failures are logged;
// callers never depend on the write.
func (c *Collector) Persist(ctx context.Context, store cache.Cache) {
	c.mu.Lock()
	count := c.qualityNext
	if c.qualityFull {
		count = len(c.qualityScores)
	}
	state := persistedState{
		Attempted:     c.attempted,
		Succeeded:     c.succeeded,
		Failed:        c.failed,
		CacheHits:     c.cacheHits,
		AvgLatencyMs:  c.avgLatencyMs,
		LanguagePairs: make(map[string]int64, len(c.languagePairs)),
		Quality:       append([]float64(nil), c.qualityScores[:count]...),
		SavedAt:       time.Now().UTC(),
	}
	for pair, n := range c.languagePairs {
		state.LanguagePairs[pair] = n
	}
	c.mu.Unlock()

	payload, err := json.Marshal(state)
	if err != nil {
		c.logger.Errorw("failed to marshal stats snapshot", "error", err)
		return
	}
	if err := store.Set(ctx, cache.StatsKey(), payload, 0); err != nil {
		c.logger.Debugw("stats persistence skipped", "error", err)
	}
}

// Restore loads a previously persisted aggregate, if one exists. It only
// applies to a fresh collector.
func (c *Collector) Restore(ctx context.Context, store cache.Cache) {
	payload, ok, err := store.Get(ctx, cache.StatsKey())
	if err != nil {
		c.logger.Debugw("stats restore skipped", "error", err)
		return
	}
	if !ok {
		return
	}

	var state persistedState
	if err := json.Unmarshal(payload, &state); err != nil {
		c.logger.Warnw("discarding corrupt persisted stats", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempted != 0 {
		return
	}

	c.attempted = state.Attempted
	c.succeeded = state.Succeeded
	c.failed = state.Failed
	c.cacheHits = state.CacheHits
	c.avgLatencyMs = state.AvgLatencyMs
	for pair, n := range state.LanguagePairs {
		c.languagePairs[pair] = n
	}
	for i, score := range state.Quality {
		if i >= len(c.qualityScores) {
			break
		}
		c.qualityScores[i] = score
		c.qualityNext = i + 1
	}
	if c.qualityNext == len(c.qualityScores) {
		c.qualityNext = 0
		c.qualityFull = true
	}
}
