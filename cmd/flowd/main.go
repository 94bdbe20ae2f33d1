package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"

	app "github.com/hexaflow/engine"
	"github.com/hexaflow/engine/internal/client"
	"github.com/hexaflow/engine/internal/config"
	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/internal/engine/scheduler"
	"github.com/hexaflow/engine/internal/mail"
	"github.com/hexaflow/engine/internal/record"
	"github.com/hexaflow/engine/internal/server"
	"github.com/hexaflow/engine/pkg/log"
)

type flowd struct {
	cfg        *config.Config
	records    *record.NotifyingStore
	source     *engine.MemorySource
	runner     *engine.Runner
	sched      *scheduler.Scheduler
	timers     *engine.TimerAdapter
	apiServer  *server.Server
	httpServer *http.Server
	cancel     context.CancelFunc
	quit       chan os.Signal
}

var ErrConnectRecordStore = errors.New("failed to connect to record store")

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &flowd{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *flowd) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.initializeStores(ctx); err != nil {
		return err
	}
	s.initializeEngine(ctx)
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *flowd) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Hexaflow engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("records_redis_addr", s.cfg.RecordStore.Addr),
		slog.Int("records_redis_db", s.cfg.RecordStore.DB),
		slog.String("smtp_addr", s.cfg.SMTPAddr),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Int("max_iterations", s.cfg.MaxIterations))
}

func (s *flowd) initializeStores(ctx context.Context) error {
	redisClient := backend.NewClient(&backend.Options{
		Addr:     s.cfg.RecordStore.Addr,
		Password: s.cfg.RecordStore.Password,
		DB:       s.cfg.RecordStore.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectRecordStore, err)
	}

	store := record.NewRedisStore(
		redisClient, record.WithPrefix(s.cfg.RecordStore.Prefix),
	)
	s.records = record.NewNotifyingStore(store)
	return nil
}

func (s *flowd) initializeEngine(ctx context.Context) {
	s.source = engine.NewMemorySource()

	env := &engine.Env{
		Records:  s.records,
		Mail:     mail.NewSMTPSender(s.cfg.SMTPAddr, nil),
		HTTP:     client.New(s.cfg.HTTPTimeout),
		MailFrom: s.cfg.MailFrom,
	}
	s.runner = engine.NewRunner(
		engine.NewRegistry(env),
		engine.WithMaxIterations(s.cfg.MaxIterations),
	)

	s.sched = scheduler.New(time.Now, scheduler.NewTimer)
	go s.sched.Run(ctx)
	s.timers = engine.NewTimerAdapter(s.sched, s.runner, time.Now)

	s.records.Subscribe(engine.NewRecordAdapter(s.runner, s.source))
}

func (s *flowd) startServer() {
	metrics := server.NewMetrics(prometheus.DefaultRegisterer)
	s.apiServer = server.NewServer(
		s.cfg, s.runner, s.source, s.timers, metrics,
	)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *flowd) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.cancel()
	slog.Info("Server exited")
}
