package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
)

func TestCollectorSuccessRate(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	for i := 0; i < 7; i++ {
		c.Record(Outcome{Success: true, SourceLang: "en", TargetLangs: []string{"zh"}})
	}
	for i := 0; i < 3; i++ {
		c.Record(Outcome{Success: false, SourceLang: "en", TargetLangs: []string{"zh"}})
	}

	view := c.Snapshot()
	require.EqualValues(t, 10, view.Attempted)
	require.EqualValues(t, 7, view.Succeeded)
	require.EqualValues(t, 3, view.Failed)
	require.InDelta(t, 70.0, view.SuccessRate, 0.001)
	require.EqualValues(t, 10, view.LanguagePairs["en-zh"])
}

func TestCollectorAverageLatency(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	c.Record(Outcome{Success: true, Latency: 100 * time.Millisecond})
	c.Record(Outcome{Success: true, Latency: 300 * time.Millisecond})

	view := c.Snapshot()
	require.InDelta(t, 200.0, view.AverageLatencyMs, 0.001)

	c.Record(Outcome{Success: true, Latency: 200 * time.Millisecond})
	require.InDelta(t, 200.0, c.Snapshot().AverageLatencyMs, 0.001)
}

func TestCollectorCacheHits(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	c.Record(Outcome{Success: true, FromCache: true})
	c.Record(Outcome{Success: true})

	view := c.Snapshot()
	require.EqualValues(t, 1, view.CacheHits)
	require.EqualValues(t, 2, view.Attempted)
}

func TestCollectorQualityDistribution(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	for _, score := range []float64{0.5, 0.6, 0.7, 0.8, 0.9} {
		c.Record(Outcome{Success: true, QualityScore: score})
	}

	quality := c.Snapshot().Quality
	require.Equal(t, 5, quality.Samples)
	require.InDelta(t, 0.7, quality.Average, 0.001)
	require.InDelta(t, 0.5, quality.Min, 0.001)
	require.InDelta(t, 0.9, quality.Max, 0.001)
	require.InDelta(t, 0.7, quality.P50, 0.001)
}

func TestCollectorQualityRingWraps(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	for i := 0; i < QualitySampleSize+50; i++ {
		c.Record(Outcome{Success: true, QualityScore: 0.8})
	}

	quality := c.Snapshot().Quality
	require.Equal(t, QualitySampleSize, quality.Samples)
	require.InDelta(t, 0.8, quality.Average, 0.001)
}

func TestCollectorZeroScoreNotSampled(t *testing.T) {
	t.Parallel()

	// Rejected-before-scoring tasks carry a zero score and must not
	// drag the distribution down.
	c := NewCollector(nil)
	c.Record(Outcome{Success: false, QualityScore: 0})
	c.Record(Outcome{Success: true, QualityScore: 0.9})

	quality := c.Snapshot().Quality
	require.Equal(t, 1, quality.Samples)
	require.InDelta(t, 0.9, quality.Average, 0.001)
}

func TestCollectorConcurrentRecord(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Record(Outcome{Success: true, Latency: 10 * time.Millisecond, SourceLang: "en", TargetLangs: []string{"es"}})
			}
		}()
	}
	wg.Wait()

	view := c.Snapshot()
	require.EqualValues(t, 1000, view.Attempted)
	require.EqualValues(t, 1000, view.LanguagePairs["en-es"])
}

func TestCollectorPersistRestore(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	ctx := context.Background()

	c := NewCollector(nil)
	c.Record(Outcome{Success: true, FromCache: true, Latency: 120 * time.Millisecond, QualityScore: 0.85, SourceLang: "en", TargetLangs: []string{"zh", "es"}})
	c.Record(Outcome{Success: false, Latency: 40 * time.Millisecond, SourceLang: "en", TargetLangs: []string{"zh"}})
	c.Persist(ctx, store)

	restored := NewCollector(nil)
	restored.Restore(ctx, store)

	require.Equal(t, c.Snapshot(), restored.Snapshot())
}

func TestCollectorRestoreSkipsNonFresh(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	ctx := context.Background()

	persisted := NewCollector(nil)
	persisted.Record(Outcome{Success: true})
	persisted.Persist(ctx, store)

	c := NewCollector(nil)
	c.Record(Outcome{Success: false})
	c.Restore(ctx, store)

	view := c.Snapshot()
	require.EqualValues(t, 1, view.Attempted)
	require.EqualValues(t, 1, view.Failed)
}

func TestCollectorRestoreSurvivesMissingSnapshot(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil)
	c.Restore(context.Background(), cache.NewMemory())
	require.EqualValues(t, 0, c.Snapshot().Attempted)
}
