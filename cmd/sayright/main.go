// Command sayright is the pronunciation evaluation server. It fronts a local
// Kokoro synthesis engine, a whisper-server recognition engine, and a Kaldi
// GOP recipe with a cached scoring pipeline and a small HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sayright/sayright/internal/cache"
	"github.com/sayright/sayright/internal/config"
	"github.com/sayright/sayright/internal/eval"
	"github.com/sayright/sayright/internal/gop"
	"github.com/sayright/sayright/internal/health"
	"github.com/sayright/sayright/internal/lang"
	"github.com/sayright/sayright/internal/observe"
	"github.com/sayright/sayright/internal/resilience"
	"github.com/sayright/sayright/internal/server"
	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
	"github.com/sayright/sayright/pkg/provider/asr/whisper"
	"github.com/sayright/sayright/pkg/provider/tts/kokoro"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sayright: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sayright: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sayright starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────
	mp, shutdownMetrics, err := observe.InitProvider(ctx, "sayright", version)
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Speech engines ────────────────────────────────────────────────────
	var ttsOpts []kokoro.Option
	if cfg.Engines.TTS.Timeout > 0 {
		ttsOpts = append(ttsOpts, kokoro.WithTimeout(cfg.Engines.TTS.Timeout))
	}
	kokoroClient, err := kokoro.New(cfg.Engines.TTS.URL, ttsOpts...)
	if err != nil {
		slog.Error("failed to create synthesis client", "err", err)
		return 1
	}
	ttsProvider := resilience.NewGuardedTTS(kokoroClient, resilience.Config{Name: "tts"})

	var asrOpts []whisper.Option
	if cfg.Engines.ASR.Model != "" {
		asrOpts = append(asrOpts, whisper.WithModel(cfg.Engines.ASR.Model))
	}
	if cfg.Engines.ASR.Timeout > 0 {
		asrOpts = append(asrOpts, whisper.WithTimeout(cfg.Engines.ASR.Timeout))
	}
	whisperClient, err := whisper.New(cfg.Engines.ASR.URL, asrOpts...)
	if err != nil {
		slog.Error("failed to create recognition client", "err", err)
		return 1
	}
	asrProvider := resilience.NewGuardedASR(whisperClient, resilience.Config{Name: "asr"})

	// ── Caches ────────────────────────────────────────────────────────────
	var audioCacheOpts []cache.Option
	if cfg.Cache.AudioSizeLimit > 0 {
		audioCacheOpts = append(audioCacheOpts, cache.WithSizeLimit(cfg.Cache.AudioSizeLimit))
	}
	audioCache, err := cache.New[cache.AudioKey, audio.Clip](cfg.Cache.Dir, "tts", cache.AudioCodec{}, audioCacheOpts...)
	if err != nil {
		slog.Error("failed to open audio cache", "dir", cfg.Cache.Dir, "err", err)
		return 1
	}
	defer audioCache.Close()

	var asrCacheOpts []cache.Option
	if cfg.Cache.TranscriptionSizeLimit > 0 {
		asrCacheOpts = append(asrCacheOpts, cache.WithSizeLimit(cfg.Cache.TranscriptionSizeLimit))
	}
	asrCache, err := cache.New[cache.TranscriptionKey, asr.Result](cfg.Cache.Dir, "asr", cache.TranscriptionCodec{}, asrCacheOpts...)
	if err != nil {
		slog.Error("failed to open transcription cache", "dir", cfg.Cache.Dir, "err", err)
		return 1
	}
	defer asrCache.Close()

	// ── Toolkit + phone table ─────────────────────────────────────────────
	var toolkitOpts []gop.ToolkitOption
	if cfg.Toolkit.RunTimeout > 0 {
		toolkitOpts = append(toolkitOpts, gop.WithRunTimeout(cfg.Toolkit.RunTimeout))
	}
	toolkit, err := gop.NewToolkit(cfg.Toolkit.RecipeDir, toolkitOpts...)
	if err != nil {
		slog.Error("failed to create toolkit", "err", err)
		return 1
	}
	table, err := gop.LoadPhoneTable(cfg.Toolkit.PhoneTable)
	if err != nil {
		slog.Error("failed to load phone table", "path", cfg.Toolkit.PhoneTable, "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────
	languageTag := lang.Parse(cfg.Reference.Language)
	evaluator, err := eval.New(eval.Deps{
		TTS:        ttsProvider,
		AudioCache: audioCache,
		Toolkit:    toolkit,
		PhoneTable: table,
		DataDir:    cfg.DataDir,
		Reference: eval.Reference{
			Language:    languageTag,
			Voice:       cfg.Reference.Voice,
			Speed:       cfg.Reference.Speed,
			SampleRate:  cfg.Reference.SampleRate,
			ProviderTag: "kokoro",
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("failed to create evaluator", "err", err)
		return 1
	}

	transcriber, err := eval.NewTranscriber(eval.TranscriberDeps{
		ASR:         asrProvider,
		Cache:       asrCache,
		ProviderTag: "whisper",
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("failed to create transcriber", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────
	checks := health.New(
		health.Engine("tts", ttsProvider),
		health.Engine("asr", asrProvider),
		health.Toolkit(toolkit.RecipeDir()),
		health.Storage(cfg.Cache.Dir),
	)
	srv, err := server.New(server.Deps{
		Evaluator:      evaluator,
		Transcriber:    transcriber,
		TTS:            ttsProvider,
		Health:         checks,
		Metrics:        metrics,
		Logger:         logger,
		Language:       languageTag,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx, cfg.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
