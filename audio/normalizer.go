package audio

import (
	"context"
	"fmt"
	"math"
	"time"
)

// NormalizedAudio is PCM audio in the fixed format the recognizer expects.
type NormalizedAudio struct {
	// PCMData contains interleaved little-endian 16-bit samples.
	PCMData []byte `json:"pcmData"`
	// SampleRate is the audio sample rate in Hz.
	SampleRate int `json:"sampleRate"`
	// Channels is the number of audio channels.
	Channels int `json:"channels"`
	// Duration of the normalized audio.
	Duration time.Duration `json:"duration"`
}

// WAV re-encodes the normalized PCM as a WAVE container for providers
// that take whole files rather than raw sample streams.
func (a NormalizedAudio) WAV() []byte {
	count := len(a.PCMData) / 2
	samples := make([]int16, count)
	for i := 0; i < count; i++ {
		samples[i] = int16(uint16(a.PCMData[2*i]) | uint16(a.PCMData[2*i+1])<<8)
	}
	return EncodeWAV(samples, a.SampleRate, a.Channels)
}

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Normalizer converts arbitrary input audio into the fixed sample
// rate/channel count/bit depth expected by speech recognition.
type Normalizer interface {
	Normalize(ctx context.Context, buf []byte) (NormalizedAudio, error)

	// Health returns the current health status of the normalizer.
	Health() HealthStatus
}

const (
	// TargetSampleRate is the rate recognizers are fed (16 kHz mono).
	TargetSampleRate = 16000
	// TargetChannels is always mono.
	TargetChannels = 1

	// peakTarget leaves ~1 dB of headroom after gain normalization.
	peakTarget = 0.89
	// maxGain bounds amplification of very quiet recordings.
	maxGain = 4.0
)

// PCMNormalizerConfig tunes the pure-Go normalizer.
type PCMNormalizerConfig struct {
	// SampleRate overrides TargetSampleRate when positive.
	SampleRate int
	// DisableGain skips peak normalization.
	DisableGain bool
}

// PCMNormalizer decodes WAV input and resamples/downmixes it in process.
// Compressed containers need the ffmpeg normalizer.
type PCMNormalizer struct {
	config PCMNormalizerConfig
}

// NewPCMNormalizer creates a normalizer with the given config.
func NewPCMNormalizer(config PCMNormalizerConfig) *PCMNormalizer {
	if config.SampleRate <= 0 {
		config.SampleRate = TargetSampleRate
	}
	return &PCMNormalizer{config: config}
}

// Normalize decodes, downmixes to mono, resamples, and applies peak gain.
func (n *PCMNormalizer) Normalize(ctx context.Context, buf []byte) (NormalizedAudio, error) {
	if err := ctx.Err(); err != nil {
		return NormalizedAudio{}, err
	}

	format, data, err := decodeWAV(buf)
	if err != nil {
		return NormalizedAudio{}, fmt.Errorf("normalize: %w", err)
	}

	mono := downmix(pcm16Samples(format, data), format.Channels)
	resampled := resample(mono, format.SampleRate, n.config.SampleRate)
	if !n.config.DisableGain {
		applyPeakGain(resampled)
	}

	pcm := make([]byte, len(resampled)*2)
	for i, s := range resampled {
		pcm[2*i] = byte(uint16(s))
		pcm[2*i+1] = byte(uint16(s) >> 8)
	}

	duration := time.Duration(float64(len(resampled)) / float64(n.config.SampleRate) * float64(time.Second))
	return NormalizedAudio{
		PCMData:    pcm,
		SampleRate: n.config.SampleRate,
		Channels:   TargetChannels,
		Duration:   duration,
	}, nil
}

// Health reports the normalizer as always ready; it has no external deps.
func (n *PCMNormalizer) Health() HealthStatus {
	return HealthStatus{Healthy: true, Message: "pcm normalizer ready"}
}

func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

// resample performs linear interpolation between sample rates. Good enough
// for speech fed to ASR; not a band-limited resampler.
func resample(samples []int16, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}

	outLen := int(float64(len(samples)) * float64(to) / float64(from))
	if outLen == 0 {
		return nil
	}

	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}

func applyPeakGain(samples []int16) {
	var peak float64
	for _, s := range samples {
		v := math.Abs(float64(s)) / math.MaxInt16
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}

	gain := peakTarget / peak
	if gain > maxGain {
		gain = maxGain
	}
	if gain >= 1 && gain <= 1.01 {
		return
	}

	for i, s := range samples {
		scaled := float64(s) * gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		}
		if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		samples[i] = int16(scaled)
	}
}
