package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// FFmpegNormalizerConfig configures the external-tool normalizer.
type FFmpegNormalizerConfig struct {
	// BinaryPath is the ffmpeg executable. Empty means "ffmpeg" on PATH.
	BinaryPath string
	// SampleRate overrides TargetSampleRate when positive.
	SampleRate int
	// Denoise enables the high-pass/low-pass speech band filter.
	Denoise bool
	// Timeout bounds a single conversion. Zero means 30s.
	Timeout time.Duration
}

// FFmpegNormalizer shells out to ffmpeg to decode any supported container
// and emit 16 kHz mono 16-bit PCM. Working files are scoped to the call
// and removed on every exit path.
type FFmpegNormalizer struct {
	config FFmpegNormalizerConfig
}

// NewFFmpegNormalizer creates a normalizer with the given config.
func NewFFmpegNormalizer(config FFmpegNormalizerConfig) *FFmpegNormalizer {
	if config.BinaryPath == "" {
		config.BinaryPath = "ffmpeg"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = TargetSampleRate
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &FFmpegNormalizer{config: config}
}

// Normalize writes the input to a temp file, converts it, and reads back
// the normalized WAV.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, buf []byte) (NormalizedAudio, error) {
	workDir, err := os.MkdirTemp("", "cbvoice-normalize-*")
	if err != nil {
		return NormalizedAudio{}, fmt.Errorf("normalize workdir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	inPath := filepath.Join(workDir, "input")
	outPath := filepath.Join(workDir, "output.wav")
	if err := os.WriteFile(inPath, buf, 0o600); err != nil {
		return NormalizedAudio{}, fmt.Errorf("normalize write input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	args := []string{"-hide_banner", "-loglevel", "error", "-i", inPath}
	if n.config.Denoise {
		// Speech band: cut rumble below 80 Hz and hiss above 8 kHz.
		args = append(args, "-af", "highpass=f=80,lowpass=f=8000")
	}
	args = append(args,
		"-ar", strconv.Itoa(n.config.SampleRate),
		"-ac", strconv.Itoa(TargetChannels),
		"-sample_fmt", "s16",
		"-f", "wav",
		outPath,
	)

	cmd := exec.CommandContext(ctx, n.config.BinaryPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return NormalizedAudio{}, fmt.Errorf("ffmpeg: %w: %s", err, output)
	}

	converted, err := os.ReadFile(outPath)
	if err != nil {
		return NormalizedAudio{}, fmt.Errorf("normalize read output: %w", err)
	}

	// The converter already produced the target format; the PCM pass just
	// unwraps the container and applies gain.
	return NewPCMNormalizer(PCMNormalizerConfig{SampleRate: n.config.SampleRate}).Normalize(ctx, converted)
}

// Health probes the ffmpeg binary.
func (n *FFmpegNormalizer) Health() HealthStatus {
	if _, err := exec.LookPath(n.config.BinaryPath); err != nil {
		return HealthStatus{Healthy: false, Message: "ffmpeg not found: " + err.Error()}
	}
	return HealthStatus{Healthy: true, Message: "ffmpeg normalizer ready"}
}
