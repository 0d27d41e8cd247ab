package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/siren/internal/api"
	"github.com/MikeSquared-Agency/siren/internal/config"
	"github.com/MikeSquared-Agency/siren/internal/engage"
	"github.com/MikeSquared-Agency/siren/internal/hermes"
	"github.com/MikeSquared-Agency/siren/internal/metrics"
	"github.com/MikeSquared-Agency/siren/internal/notify"
	"github.com/MikeSquared-Agency/siren/internal/persona"
	"github.com/MikeSquared-Agency/siren/internal/provider"
	"github.com/MikeSquared-Agency/siren/internal/reply"
	"github.com/MikeSquared-Agency/siren/internal/session"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("siren starting", "port", cfg.Port, "strategy", string(cfg.Strategy))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Persistence: postgres when DATABASE_URL is set, flat file when a
	// sessions path is set, memory-only otherwise.
	var persister session.Persister
	switch {
	case cfg.DatabaseURL != "":
		pg, err := session.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		persister = pg
		slog.Info("database connected")
	case cfg.SessionsPath != "":
		fileStore, err := session.NewFileStore(cfg.SessionsPath)
		if err != nil {
			slog.Error("failed to open sessions file", "error", err)
			os.Exit(1)
		}
		persister = fileStore
		slog.Info("sessions file ready", "path", cfg.SessionsPath)
	default:
		slog.Warn("no persistence configured — sessions are memory-only")
	}

	sessions := session.NewManager(ctx, persister, cfg.IdleExpiry, slog.Default())

	// Generation back-ends. A missing credential skips that provider.
	var providers []provider.Provider
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, provider.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel))
		slog.Info("anthropic provider ready", "model", cfg.AnthropicModel)
	}
	if cfg.GeminiAPIKey != "" {
		gem, err := provider.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Warn("gemini provider unavailable", "error", err)
		} else {
			providers = append(providers, gem)
			slog.Info("gemini provider ready", "model", cfg.GeminiModel)
		}
	}

	observe := func(name, status string, elapsed time.Duration) {
		m.ProviderCalls.WithLabelValues(name, status).Inc()
		m.ProviderDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	gen := reply.NewGenerator(providers, cfg.ProviderTimeout, slog.Default(), observe)
	validator := reply.NewValidator(cfg.MaxReplyLen)

	strategy := buildStrategy(cfg, gen, validator)
	if len(providers) == 0 && cfg.Strategy != config.StrategyTemplate {
		slog.Warn("no provider credentials configured — degrading to template strategy")
		strategy = reply.NewTemplateStrategy(validator)
	}

	// Swarm bus (optional).
	var bus engage.Bus
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable — running without bus events", "error", err)
		} else {
			defer hermesClient.Close()
			bus = hermesClient
			slog.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	notifier := notify.New(cfg.ReportURL, cfg.ReportTimeout, slog.Default())
	personaGen := persona.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	engine := engage.New(sessions, strategy, personaGen, notifier, bus, m, engage.Options{
		MaxTurns:         cfg.MaxTurns,
		TurnBudget:       cfg.TurnBudget,
		MaxReplyLen:      cfg.MaxReplyLen,
		RetrievalEnabled: cfg.RetrievalEnabled,
	}, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIToken, engine)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("siren ready", "port", cfg.Port, "providers", len(providers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("siren stopped")
}

func buildStrategy(cfg config.Config, gen *reply.Generator, validator *reply.Validator) reply.Strategy {
	switch cfg.Strategy {
	case config.StrategyTemplate:
		return reply.NewTemplateStrategy(validator)
	case config.StrategySingle:
		return reply.NewSingleProviderStrategy(gen, validator)
	default:
		return reply.NewAuditedStrategy(gen, validator, cfg.RewriteEnabled, slog.Default())
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
