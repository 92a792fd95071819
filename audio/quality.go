package audio

import "math"

// DefaultQualityThreshold is the minimum score the gate admits.
const DefaultQualityThreshold = 0.7

// Scorer estimates signal quality for an audio buffer on a [0,1] scale.
// The formula is a heuristic, not a perceptual model; implementations are
// interchangeable as long as the scale holds.
type Scorer interface {
	Score(buf []byte) float64
}

// RMSScorerConfig tunes the RMS-based scorer.
type RMSScorerConfig struct {
	// ReferenceLevel is the RMS amplitude (fraction of full scale) that
	// maps to a score of 1.0. Zero means 0.15, roughly the level of
	// clear close-mic speech.
	ReferenceLevel float64
	// FallbackScore is reported for containers the scorer cannot decode
	// (compressed codecs go through the normalizer instead). Zero means
	// DefaultQualityThreshold, so unmeasurable audio is admitted.
	FallbackScore float64
}

// RMSScorer derives a quality score from the normalized RMS amplitude of
// decoded 16-bit PCM. Louder (up to the reference level) scores higher.
type RMSScorer struct {
	reference float64
	fallback  float64
}

// NewRMSScorer creates a scorer with the given config.
func NewRMSScorer(config RMSScorerConfig) *RMSScorer {
	reference := config.ReferenceLevel
	if reference <= 0 {
		reference = 0.15
	}
	fallback := config.FallbackScore
	if fallback <= 0 {
		fallback = DefaultQualityThreshold
	}
	return &RMSScorer{reference: reference, fallback: fallback}
}

// Score computes the clamped RMS amplitude relative to the reference level.
// Buffers that are not decodable WAV receive the fallback score.
func (s *RMSScorer) Score(buf []byte) float64 {
	format, data, err := decodeWAV(buf)
	if err != nil {
		return s.fallback
	}

	samples := pcm16Samples(format, data)
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		v := float64(sample) / math.MaxInt16
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	score := rms / s.reference
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Gate applies an admission threshold to quality scores.
type Gate struct {
	Threshold float64
}

// NewGate creates a gate; a non-positive threshold falls back to the default.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	return &Gate{Threshold: threshold}
}

// Admits reports whether the score passes. The boundary is inclusive: a
// score exactly at the threshold is admitted.
func (g *Gate) Admits(score float64) bool {
	return score >= g.Threshold
}
