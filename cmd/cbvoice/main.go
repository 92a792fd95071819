// cbvoice is the command line front end of the voice translation engine.
// It submits recorded audio through the full pipeline and exposes the
// supporting operations (language registry, health probes, statistics,
// cache maintenance).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/config"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/di"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/engine"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/stats"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/translation"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

var (
	// Global flags
	configFile string
	verbose    bool
	asJSON     bool

	// Translate command flags
	sourceLang  string
	targetLangs []string
	voiceName   string
	textOnly    bool
	enhance     bool
	timeout     time.Duration
	outputDir   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cbvoice",
		Short: "Voice translation pipeline",
		Long: `cbvoice runs recorded audio through the full voice translation
pipeline: quality gating, speech recognition, translation, and speech
synthesis, with multi-level caching in between.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: environment only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")

	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(languagesCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(flushCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <audio-file>",
		Short: "Translate a recorded audio file",
		Long: `Submit one audio file to the pipeline and wait for the result.

Examples:
  cbvoice translate clip.wav --target zh
  cbvoice translate clip.wav --source en --target zh --target es --out ./speech
  cbvoice translate clip.wav --target fr --text-only --json`,
		Args: cobra.ExactArgs(1),
		RunE: runTranslate,
	}

	cmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code, or auto for detection")
	cmd.Flags().StringSliceVarP(&targetLangs, "target", "t", nil, "Target language code (repeatable)")
	cmd.Flags().StringVar(&voiceName, "voice", "", "Synthesis voice")
	cmd.Flags().BoolVar(&textOnly, "text-only", false, "Skip speech synthesis")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Run ffmpeg preprocessing before recognition")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the task")
	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "Directory for synthesized audio files")

	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	container, err := di.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	eng, err := container.Engine(cfg.EngineConfig())
	if err != nil {
		return err
	}
	eng.Start(ctx)
	defer eng.Close()

	handle, err := eng.Submit(ctx, engine.Request{
		Audio:       buf,
		SourceLang:  sourceLang,
		TargetLangs: targetLangs,
		Options: engine.Options{
			Voice:        tts.VoiceOptions{Voice: voiceName},
			EnhanceAudio: enhance,
			TextOnly:     textOnly,
		},
	})
	if err != nil {
		return err
	}

	awaitCtx, awaitCancel := context.WithTimeout(ctx, timeout)
	defer awaitCancel()

	result, err := handle.Await(awaitCtx)
	if err != nil {
		return err
	}

	if container.Sink != nil {
		if sinkErr := container.Sink.Write(ctx, eng.Stats()); sinkErr != nil {
			logger.Warnw("failed to write stats snapshot", "error", sinkErr)
		}
	}

	if outputDir != "" && !textOnly {
		if err := writeAudio(result, outputDir); err != nil {
			return err
		}
	}

	return printResult(result)
}

func printResult(result *engine.Result) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Task:       %s\n", result.TaskID)
	fmt.Printf("Recognized: %s\n", result.OriginalText)
	fmt.Printf("Language:   %s (quality %.2f", result.DetectedLang, result.QualityScore)
	if result.FromCache {
		fmt.Print(", cached")
	}
	fmt.Println(")")
	for _, target := range result.Targets {
		if target.Error != "" {
			fmt.Printf("  [%s] FAILED: %s\n", target.TargetLang, target.Error)
			continue
		}
		fmt.Printf("  [%s] %s\n", target.TargetLang, target.TranslatedText)
	}
	fmt.Printf("Took %dms\n", result.ProcessingTimeMs)
	return nil
}

func writeAudio(result *engine.Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, target := range result.Targets {
		if target.Audio == nil {
			continue
		}
		ext := target.Audio.Encoding
		if ext == "" {
			ext = "bin"
		}
		path := filepath.Join(dir, fmt.Sprintf("%s.%s", target.TargetLang, ext))
		if err := os.WriteFile(path, target.Audio.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := translation.SupportedLanguages()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(langs)
			}
			for _, lang := range langs {
				fmt.Printf("  %-5s %s\n", lang.Code, lang.DisplayName)
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the engine's external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			container, err := di.FromConfig(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			eng, err := container.Engine(cfg.EngineConfig())
			if err != nil {
				return err
			}
			defer eng.Close()

			health := eng.HealthCheck(ctx)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(health); err != nil {
					return err
				}
			} else {
				printProbe("recognizer", health.Recognizer)
				printProbe("translator", health.Translator)
				printProbe("synthesizer", health.Synthesizer)
				printProbe("cache", health.Cache)
			}

			if !health.Recognizer || !health.Translator || !health.Synthesizer {
				os.Exit(1)
			}
			return nil
		},
	}
}

func printProbe(name string, ok bool) {
	status := "ok"
	if !ok {
		status = "DOWN"
	}
	fmt.Printf("  %-12s %s\n", name, status)
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics from the last persisted snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer func() { _ = logger.Sync() }()

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			collector := stats.NewCollector(logger)
			collector.Restore(ctx, store)
			view := collector.Snapshot()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			fmt.Printf("Attempted:    %d\n", view.Attempted)
			fmt.Printf("Succeeded:    %d (%.2f%%)\n", view.Succeeded, view.SuccessRate)
			fmt.Printf("Failed:       %d\n", view.Failed)
			fmt.Printf("Cache hits:   %d\n", view.CacheHits)
			fmt.Printf("Avg latency:  %.1fms\n", view.AverageLatencyMs)
			if view.Quality.Samples > 0 {
				fmt.Printf("Quality:      avg %.2f p50 %.2f p90 %.2f (n=%d)\n",
					view.Quality.Average, view.Quality.P50, view.Quality.P90, view.Quality.Samples)
			}
			if len(view.LanguagePairs) > 0 {
				fmt.Println("Language pairs:")
				for pair, count := range view.LanguagePairs {
					fmt.Printf("  %-12s %d\n", pair, count)
				}
			}
			return nil
		},
	}
}

func flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Clear every cached pipeline artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			if err := store.Flush(ctx); err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			fmt.Println("Cache cleared")
			return nil
		},
	}
}

// openStore connects to the configured cache backend, or a no-op store
// when none is configured.
func openStore(cfg config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewNoop(), nil
	}
	return cache.NewRedis(cfg.RedisAddr)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, canceling...")
		cancel()
	}()
	return ctx, cancel
}

func newLogger() *zap.SugaredLogger {
	level := strings.ToLower(os.Getenv("CBVOICE_LOG_LEVEL"))
	if verbose {
		level = "debug"
	}
	cfg := zap.NewProductionConfig()

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger.Sugar()
}
