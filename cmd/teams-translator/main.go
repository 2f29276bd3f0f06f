// Command teams-translator captures system playback audio from an online
// meeting, transcribes it, translates it and prints live subtitles.
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

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alonsorgl28/teams-translator/internal/config"
	"github.com/alonsorgl28/teams-translator/internal/health"
	"github.com/alonsorgl28/teams-translator/internal/observe"
	"github.com/alonsorgl28/teams-translator/internal/pipeline"
	"github.com/alonsorgl28/teams-translator/internal/render"
	"github.com/alonsorgl28/teams-translator/internal/report"
	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/pkg/audio"
	audioportaudio "github.com/alonsorgl28/teams-translator/pkg/audio/portaudio"
	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
	sttopenai "github.com/alonsorgl28/teams-translator/pkg/provider/stt/openai"
	sttrealtime "github.com/alonsorgl28/teams-translator/pkg/provider/stt/realtime"
	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
	tranyllm "github.com/alonsorgl28/teams-translator/pkg/provider/translate/anyllm"
	tropenai "github.com/alonsorgl28/teams-translator/pkg/provider/translate/openai"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list input-capable audio devices and exit")
	timestamps := flag.Bool("timestamps", false, "prefix each subtitle with the emission time")
	showLatency := flag.Bool("show-latency", false, "append capture-to-display latency to each subtitle")
	flag.Parse()

	if *listDevices {
		names, err := audioportaudio.ListInputDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "teams-translator: %v\n", err)
			return 1
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return 0
	}

	// ── Configuration, with hot reload for the log level ──────────────────────
	levelVar := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.TranslateModelsChanged {
			slog.Info("translation models changed; they apply on the next session",
				"model", d.NewTranslateModel, "fallback", d.NewTranslateFallback)
		}
		if d.RestartRequired {
			slog.Warn("configuration change requires a restart to take effect")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "teams-translator: config file %q not found — copy config.example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "teams-translator: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar.Set(slogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("teams-translator starting",
		"version", version,
		"config", *configPath,
		"profile", cfg.Profile,
		"log_level", cfg.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "teams-translator",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	source, err := reg.CreateAudio(cfg.Audio)
	if err != nil {
		slog.Error("failed to create capture source", "err", err)
		return 1
	}
	sttProvider, err := reg.CreateSTT(cfg.STT)
	if err != nil {
		slog.Error("failed to create STT provider", "err", err)
		return 1
	}
	translator, err := reg.CreateTranslate(cfg.Translate)
	if err != nil {
		slog.Error("failed to create translation backend", "err", err)
		return 1
	}
	// Rolling context and glossary pinning sit in front of every backend.
	translator = translate.NewMemory(translator, cfg.Translate.ContextWindow)

	reporter := report.New(report.Config{
		Enabled:     cfg.Report.Enabled,
		EventsPath:  cfg.Report.EventsPath,
		SummaryPath: cfg.Report.SummaryPath,
		Append:      cfg.Report.Append,
	}, logger)

	renderer := render.NewConsole(render.ConsoleConfig{
		Timestamps:  *timestamps,
		ShowLatency: *showLatency,
		Logger:      logger,
	})

	orch, err := pipeline.NewOrchestrator(pipeline.Config{
		Source:     source,
		STT:        sttProvider,
		Translator: translator,
		Renderer:   renderer,
		Sink:       reporter,

		SourceLang: cfg.Translate.SourceLang,
		TargetLang: cfg.Translate.TargetLang,

		STTModel:               cfg.STT.Model,
		STTFallbackModel:       cfg.STT.FallbackModel,
		TranslateModel:         cfg.Translate.Model,
		TranslateFallbackModel: cfg.Translate.FallbackModel,
		Retry: resilience.ExecutorConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BackoffBase: cfg.Retry.Backoff(),
			Logger:      logger,
		},

		AudioQueueCap:   cfg.Pipeline.AudioQueue,
		TextQueueCap:    cfg.Pipeline.TextQueue,
		Staleness:       cfg.Pipeline.Staleness(),
		EmitRelaxFactor: cfg.Pipeline.EmitRelaxFactor,
		Scheduler: pipeline.SchedulerConfig{
			MinWords:           cfg.Pipeline.MinWords,
			MergeMaxWords:      cfg.Pipeline.MergeMaxWords,
			MergeFlush:         cfg.Pipeline.MergeFlush(),
			MinWordsOnAgeFlush: cfg.Pipeline.MinWordsOnAgeFlush,
		},
		DedupWindow:    cfg.Pipeline.DedupWindow,
		DedupThreshold: cfg.Pipeline.DedupThreshold,

		Logger: logger,
	})
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// ── Status listener (/metrics, /healthz, /readyz) ─────────────────────────
	var statusSrv *http.Server
	if cfg.Metrics.Enabled {
		statusSrv = newStatusServer(cfg, orch)
		go func() {
			slog.Info("status listener started", "addr", cfg.Metrics.ListenAddr)
			if err := statusSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status listener error", "err", err)
			}
		}()
	}

	printStartupSummary(cfg)

	// ── Session ───────────────────────────────────────────────────────────────
	reporter.StartSession()
	if err := orch.Start(ctx); err != nil {
		slog.Error("failed to start session", "err", err)
		return 1
	}
	slog.Info("listening — press Ctrl+C to stop")

	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-statusTicker.C:
			if reporter.Enabled() {
				avg, p95, issues := reporter.Snapshot()
				slog.Info("session status",
					"avg_latency_s", fmt.Sprintf("%.1f", avg),
					"p95_latency_s", fmt.Sprintf("%.1f", p95),
					"issue_rate_pct", fmt.Sprintf("%.0f", issues),
				)
			}
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := orch.Stop(shutdownCtx); err != nil && !errors.Is(err, pipeline.ErrNotRunning) {
		slog.Warn("session stop error", "err", err)
	}
	if statusSrv != nil {
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("status listener shutdown error", "err", err)
		}
	}
	if reporter.Enabled() {
		s := reporter.Finalize()
		slog.Info("session report written",
			"segments", s.SegmentsLogged,
			"avg_latency_s", fmt.Sprintf("%.1f", s.LatencyAvg),
			"p95_latency_s", fmt.Sprintf("%.1f", s.LatencyP95),
			"issue_rate_pct", fmt.Sprintf("%.0f", s.IssueRatePct),
		)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in capture, STT and translation
// factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterAudio("portaudio", func(cfg config.AudioConfig) (audio.Source, error) {
		return audioportaudio.New(audioportaudio.Config{
			DeviceKeywords: cfg.DeviceKeywords,
			ChunkSeconds:   cfg.ChunkSeconds,
			HopSeconds:     cfg.HopFactor * cfg.ChunkSeconds,
			MinRMS:         cfg.MinRMS,
		})
	})

	reg.RegisterSTT("openai", func(cfg config.STTConfig) (stt.Provider, error) {
		var opts []sttopenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(cfg.BaseURL))
		}
		return sttopenai.New(apiKey(cfg.APIKey), opts...), nil
	})

	reg.RegisterSTT("realtime", func(cfg config.STTConfig) (stt.Provider, error) {
		// The websocket session degrades to the batch endpoint on failure.
		var batchOpts []sttopenai.Option
		if cfg.BaseURL != "" {
			batchOpts = append(batchOpts, sttopenai.WithBaseURL(cfg.BaseURL))
		}
		batch := sttopenai.New(apiKey(cfg.APIKey), batchOpts...)

		opts := []sttrealtime.Option{sttrealtime.WithFallback(batch)}
		if cfg.BaseURL != "" {
			opts = append(opts, sttrealtime.WithBaseURL(cfg.BaseURL))
		}
		return sttrealtime.New(apiKey(cfg.APIKey), opts...), nil
	})

	reg.RegisterTranslate("openai", func(cfg config.TranslateConfig) (translate.Translator, error) {
		var opts []tropenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, tropenai.WithBaseURL(cfg.BaseURL))
		}
		return tropenai.New(apiKey(cfg.APIKey), opts...), nil
	})

	reg.RegisterTranslate("anyllm", func(cfg config.TranslateConfig) (translate.Translator, error) {
		var opts []anyllmlib.Option
		if cfg.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
		}
		return tranyllm.New(cfg.Provider, opts...)
	})
}

// apiKey falls back to the conventional environment variable when the config
// leaves the key empty.
func apiKey(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("OPENAI_API_KEY")
}

// newStatusServer assembles the /metrics and health mux.
func newStatusServer(cfg *config.Config, orch *pipeline.Orchestrator) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	checkers := []health.Checker{}
	if cfg.Audio.Provider == "portaudio" {
		checkers = append(checkers, health.Checker{
			Name: "audio_device",
			Check: func(ctx context.Context) error {
				names, err := audioportaudio.ListInputDevices()
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return errors.New("no input-capable audio devices")
				}
				return nil
			},
		})
	}
	h := health.New(func() string { return orch.State().String() }, checkers...)
	h.Register(mux)

	return &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║       teams-translator — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════════════╣")
	printRow("Profile", string(cfg.Profile))
	printRow("Audio", cfg.Audio.Provider)
	printRow("STT", cfg.STT.Provider+" / "+cfg.STT.Model)
	translateVal := cfg.Translate.Backend
	if cfg.Translate.Backend == "anyllm" {
		translateVal += ":" + cfg.Translate.Provider
	}
	printRow("Translate", translateVal+" / "+cfg.Translate.Model)
	printRow("Languages", cfg.Translate.SourceLang+" → "+cfg.Translate.TargetLang)
	if cfg.Report.Enabled {
		printRow("Report", cfg.Report.EventsPath)
	} else {
		printRow("Report", "(disabled)")
	}
	if cfg.Metrics.Enabled {
		printRow("Metrics", cfg.Metrics.ListenAddr)
	} else {
		printRow("Metrics", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 31 {
		value = value[:28] + "…"
	}
	fmt.Printf("║  %-11s : %-29s ║\n", label, value)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
