// Command claimsvoice runs the flight-delay claims intake server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/geniusjr001/claimsvoice/internal/airports"
	"github.com/geniusjr001/claimsvoice/internal/comp"
	"github.com/geniusjr001/claimsvoice/internal/config"
	"github.com/geniusjr001/claimsvoice/internal/convo"
	"github.com/geniusjr001/claimsvoice/internal/health"
	"github.com/geniusjr001/claimsvoice/internal/observe"
	"github.com/geniusjr001/claimsvoice/internal/resilience"
	"github.com/geniusjr001/claimsvoice/internal/server"
	"github.com/geniusjr001/claimsvoice/internal/store"
	"github.com/geniusjr001/claimsvoice/internal/uploads"
	"github.com/geniusjr001/claimsvoice/pkg/provider/crm"
	crmmock "github.com/geniusjr001/claimsvoice/pkg/provider/crm/mock"
	"github.com/geniusjr001/claimsvoice/pkg/provider/crm/zoho"
	"github.com/geniusjr001/claimsvoice/pkg/provider/stt"
	sttelevenlabs "github.com/geniusjr001/claimsvoice/pkg/provider/stt/elevenlabs"
	sttmock "github.com/geniusjr001/claimsvoice/pkg/provider/stt/mock"
	"github.com/geniusjr001/claimsvoice/pkg/provider/stt/whisper"
	"github.com/geniusjr001/claimsvoice/pkg/provider/tts"
	ttselevenlabs "github.com/geniusjr001/claimsvoice/pkg/provider/tts/elevenlabs"
	ttsmock "github.com/geniusjr001/claimsvoice/pkg/provider/tts/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "claimsvoice: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "claimsvoice: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so the config watcher can adjust it at
	// runtime.
	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.Server.LogLevel.SlogLevel())
	slog.SetDefault(newLogger(cfg.Server.LogFile, logLevel))

	slog.Info("claimsvoice starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "claimsvoice"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Session store ─────────────────────────────────────────────────────────
	sessions, err := openStore(ctx, cfg.Sessions)
	if err != nil {
		slog.Error("failed to open session store", "err", err)
		return 1
	}
	defer sessions.Close()
	go store.RunJanitor(ctx, sessions, store.DefaultJanitorInterval)

	metrics := observe.DefaultMetrics()
	if _, err := metrics.ObserveActiveSessions(sessions.Count); err != nil {
		slog.Error("failed to register active-session gauge", "err", err)
		return 1
	}

	// ── Upload storage ────────────────────────────────────────────────────────
	um, err := uploads.New(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes)
	if err != nil {
		slog.Error("failed to initialise upload storage", "err", err)
		return 1
	}

	// ── Domain data ───────────────────────────────────────────────────────────
	idx, err := airports.Load()
	if err != nil {
		slog.Error("failed to load airport dataset", "err", err)
		return 1
	}
	calc := comp.NewCalculator(idx)

	// ── Conversation engine ───────────────────────────────────────────────────
	engineOpts := []convo.Option{convo.WithCompensator(calc)}
	if providers.STT != nil {
		engineOpts = append(engineOpts, convo.WithTranscriber(providers.STT))
	}
	engine := convo.NewEngine(sessions, engineOpts...)

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := server.New(server.Config{
		Engine:             engine,
		Uploads:            um,
		Airports:           idx,
		Comp:               calc,
		STT:                providers.STT,
		TTS:                providers.TTS,
		CRM:                providers.CRM,
		Metrics:            metrics,
		Health:             health.New(health.StoreChecker(sessions)),
		FrontendURL:        cfg.Server.FrontendURL,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(d.NewLogLevel.SlogLevel())
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.FrontendURLChanged {
			srv.SetFrontendURL(d.NewFrontendURL)
			slog.Info("frontend URL changed", "url", d.NewFrontendURL)
		}
		if d.SessionTTLChanged {
			slog.Info("session TTL change takes effect on restart", "ttl", d.NewSessionTTL.Std())
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// Warm the synthesis cache so the very first caller gets audio instantly.
	if providers.TTS != nil {
		go func() {
			if _, err := providers.TTS.Synthesize(ctx, convo.FirstPrompt()); err != nil {
				slog.Debug("first prompt warm-up failed", "err", err)
			}
		}()
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		var err error
		if cfg.Server.TLS != nil {
			err = httpSrv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// providerSet holds the instantiated external providers. Any of them may be
// nil; the server degrades the matching endpoints.
type providerSet struct {
	STT stt.Provider
	TTS tts.Synthesizer
	CRM crm.Client
}

// registerBuiltinProviders wires the provider factories that ship with the
// server into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("elevenlabs", func(cfg config.STTConfig) (stt.Provider, error) {
		var opts []sttelevenlabs.Option
		if cfg.Model != "" {
			opts = append(opts, sttelevenlabs.WithModel(cfg.Model))
		}
		if cfg.Language != "" {
			opts = append(opts, sttelevenlabs.WithLanguage(cfg.Language))
		}
		return sttelevenlabs.New(cfg.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(cfg config.STTConfig) (stt.Provider, error) {
		var opts []whisper.Option
		if cfg.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Language))
		}
		return whisper.New(cfg.WhisperURL, opts...)
	})

	reg.RegisterSTT("mock", func(cfg config.STTConfig) (stt.Provider, error) {
		return sttmock.New(), nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(cfg config.TTSConfig) (tts.Synthesizer, error) {
		var opts []ttselevenlabs.Option
		if cfg.Model != "" {
			opts = append(opts, ttselevenlabs.WithModel(cfg.Model))
		}
		if cfg.VoiceID != "" {
			opts = append(opts, ttselevenlabs.WithVoice(cfg.VoiceID))
		}
		return ttselevenlabs.New(cfg.APIKey, opts...)
	})

	reg.RegisterTTS("silent", func(cfg config.TTSConfig) (tts.Synthesizer, error) {
		return &tts.Silent{}, nil
	})

	reg.RegisterTTS("mock", func(cfg config.TTSConfig) (tts.Synthesizer, error) {
		return ttsmock.New(), nil
	})

	// ── CRM ───────────────────────────────────────────────────────────────────

	reg.RegisterCRM("zoho", func(cfg config.CRMConfig) (crm.Client, error) {
		var opts []zoho.Option
		if cfg.AccountsURL != "" {
			opts = append(opts, zoho.WithAccountsURL(cfg.AccountsURL))
		}
		if cfg.APIURL != "" {
			opts = append(opts, zoho.WithAPIURL(cfg.APIURL))
		}
		return zoho.New(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, opts...)
	})

	reg.RegisterCRM("mock", func(cfg config.CRMConfig) (crm.Client, error) {
		return crmmock.New(), nil
	})
}

// buildProviders instantiates the providers named in cfg and wraps them in
// their resilience layers. Unconfigured kinds stay nil.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providerSet, error) {
	ps := &providerSet{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		fb := resilience.NewSTTFallback(p, name, resilience.FallbackConfig{})
		if url := cfg.Providers.STT.WhisperURL; url != "" && name != "whisper" {
			w, err := whisper.New(url)
			if err != nil {
				return nil, fmt.Errorf("create whisper fallback: %w", err)
			}
			fb.AddFallback("whisper", w)
		}
		ps.STT = fb
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		fb := resilience.NewTTSFallback(p, name, resilience.FallbackConfig{})
		fb.AddFallback("silent", &tts.Silent{})
		cached, err := tts.NewCache(fb, cfg.Providers.TTS.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create tts cache: %w", err)
		}
		ps.TTS = cached
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	if name := cfg.Providers.CRM.Name; name != "" {
		c, err := reg.CreateCRM(cfg.Providers.CRM)
		if err != nil {
			return nil, fmt.Errorf("create crm client %q: %w", name, err)
		}
		ps.CRM = resilience.NewCRMBreaker(c, resilience.CircuitBreakerConfig{Name: name})
		slog.Info("provider created", "kind", "crm", "name", name)
	}

	return ps, nil
}

// ── Session store ─────────────────────────────────────────────────────────────

func openStore(ctx context.Context, cfg config.SessionsConfig) (store.Store, error) {
	ttl := cfg.TTL.Std()
	switch cfg.Backend {
	case config.BackendSQLite:
		return store.OpenSQLite(cfg.SQLitePath, ttl)
	case config.BackendPostgres:
		return store.OpenPostgres(ctx, cfg.PostgresDSN, ttl)
	default:
		return store.NewMemory(ttl), nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      claimsvoice — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("CRM", cfg.Providers.CRM.Name, "")
	fmt.Printf("║  Sessions        : %-19s ║\n", cfg.Sessions.Backend)
	fmt.Printf("║  Uploads dir     : %-19s ║\n", truncate(cfg.Uploads.Dir, 19))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, truncate(value, 19))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-1] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. With a log file configured the output
// goes through a size-rotated file writer; otherwise it goes to stderr.
func newLogger(logFile string, level slog.Leveler) *slog.Logger {
	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
