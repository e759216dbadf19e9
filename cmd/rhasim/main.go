// Command rhasim runs the room simulation service: the room registry, the
// websocket hub, the HTTP API and the optional cron scheduler, wired from a
// YAML config file with RHASIM_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/graphicsoft-com/RHA-simulation/broadcast"
	"github.com/graphicsoft-com/RHA-simulation/config"
	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/metrics"
	"github.com/graphicsoft-com/RHA-simulation/logging"
	"github.com/graphicsoft-com/RHA-simulation/model"
	anthropicmodel "github.com/graphicsoft-com/RHA-simulation/model/anthropic"
	openaimodel "github.com/graphicsoft-com/RHA-simulation/model/openai"
	"github.com/graphicsoft-com/RHA-simulation/room"
	"github.com/graphicsoft-com/RHA-simulation/scheduler"
	"github.com/graphicsoft-com/RHA-simulation/server"
	"github.com/graphicsoft-com/RHA-simulation/session"
	sessionmongo "github.com/graphicsoft-com/RHA-simulation/session/mongo"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "rhasim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zl, err := newZapLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer zl.Sync()
	logger := logging.NewZapAdapter(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("rhasim", promReg)

	// The hub and the registry reference each other: events flow registry to
	// hub, acknowledgments flow hub to registry. The ack side is bound
	// through a closure so the hub can be constructed first.
	var registry *room.Registry
	hub := broadcast.NewHub(func(o *broadcast.Options) {
		o.Logger = logger
		o.Acknowledge = func(roomID string) bool { return registry.Acknowledge(roomID) }
	})

	registry = room.New(func(o *room.Options) {
		o.Config = room.Config{
			TurnsPerSession: cfg.Simulation.TurnsPerSession,
			AckTimeout:      cfg.Simulation.AckTimeout,
			SettlePause:     cfg.Simulation.SettlePause,
		}
		o.Store = store
		o.Generator = gen
		o.Broadcaster = hub
		o.Logger = logger
		o.Metrics = collector
	})

	api := server.New(registry, func(o *server.Options) {
		o.Addr = cfg.Server.Addr
		o.Store = store
		o.Hub = hub
		o.MetricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
		o.AllowedOrigins = cfg.Server.AllowedOrigins
		o.Logger = logger
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(registry, func(o *scheduler.Options) {
			o.StartSpec = cfg.Scheduler.StartSpec
			o.StopSpec = cfg.Scheduler.StopSpec
			o.Logger = logger
		})
		if err != nil {
			return err
		}
		sched.Start()
	}

	logger.Info("rhasim starting",
		"addr", cfg.Server.Addr,
		"provider", cfg.Model.Provider,
		"store", storeKind(cfg),
		"scheduler", cfg.Scheduler.Enabled,
	)

	serveErr := api.ListenAndServe(ctx)

	// Orderly teardown: stop scheduling, drain room loops, drop clients.
	if sched != nil {
		sched.Stop()
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := registry.Close(closeCtx); err != nil {
		logger.Warn("room loops did not drain cleanly", "error", err)
	}
	hub.Close()

	return serveErr
}

func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (core.SessionStore, func(), error) {
	if cfg.Mongo.URI == "" {
		logger.Warn("no mongo uri configured, sessions are kept in memory only")
		return session.NewInMemoryStore(), func() {}, nil
	}

	store, err := sessionmongo.Connect(ctx, cfg.Mongo.URI, func(o *sessionmongo.Options) {
		o.Database = cfg.Mongo.Database
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("mongodb close failed", "error", err)
		}
	}
	return store, closeFn, nil
}

func newGenerator(cfg *config.Config) (core.Generator, error) {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewGenerator(func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
			o.APIKey = cfg.Model.APIKey
			o.BaseURL = cfg.Model.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewGenerator(func(o *anthropicmodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropic.Model(cfg.Model.Name)
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = int64(cfg.Model.MaxTokens)
			o.APIKey = cfg.Model.APIKey
		}), nil
	case config.ProviderMock:
		return model.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func storeKind(cfg *config.Config) string {
	if cfg.Mongo.URI == "" {
		return "memory"
	}
	return "mongodb"
}
