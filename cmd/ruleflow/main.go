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

	"github.com/redis/go-redis/v9"

	app "github.com/corpact/ruleflow"
	"github.com/corpact/ruleflow/internal/archive"
	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/internal/engine"
	"github.com/corpact/ruleflow/internal/idempotency"
	"github.com/corpact/ruleflow/internal/rules"
	"github.com/corpact/ruleflow/internal/server"
	"github.com/corpact/ruleflow/pkg/log"
)

type ruleflow struct {
	cfg        *config.Config
	redis      *redis.Client
	journal    *audit.MemoryRecorder
	table      *rules.Table
	registry   *engine.Registry
	engine     *engine.Engine
	exporter   *archive.Exporter
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrLoadRules  = errors.New("failed to load rules")
	ErrOpenBucket = errors.New("failed to open archive bucket")
)

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

	s := &ruleflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *ruleflow) run() error {
	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *ruleflow) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Ruleflow Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.Int("redis_db", s.cfg.Redis.DB),
		slog.String("rule_file", s.cfg.RuleFile),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *ruleflow) initializeEngine() error {
	s.redis = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})

	s.journal = audit.NewMemoryRecorder()
	recorder := audit.Multi(
		audit.SlogRecorder{},
		audit.NewStreamRecorder(s.redis, s.cfg.Redis.Prefix),
		s.journal,
	)

	s.table = rules.NewTable()
	if s.cfg.RuleFile != "" {
		loaded, err := rules.Load(s.cfg.RuleFile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoadRules, err)
		}
		if err := s.table.Replace(loaded); err != nil {
			return fmt.Errorf("%w: %w", ErrLoadRules, err)
		}
		slog.Info("Rule table loaded",
			slog.String("source", s.cfg.RuleFile),
			slog.Int("rules", len(loaded)))
	}

	s.registry = engine.NewRegistry()
	s.engine = engine.New(s.cfg, s.table, s.registry, recorder)

	if err := s.registerUnits(); err != nil {
		return err
	}

	if snap, err := s.table.Snapshot(); err == nil {
		if err := s.registry.ValidateRules(snap.Rules); err != nil {
			return err
		}
	}

	return s.engine.Start(context.Background())
}

// registerUnits wires the built-in units. Embedding applications replace
// this with their own cartridge catalog
func (s *ruleflow) registerUnits() error {
	units := []engine.Unit{
		&engine.LogUnit{},
		engine.NewConsensusGate(s.engine.Coordinator()),
	}
	for _, u := range units {
		if err := s.registry.Register(u); err != nil {
			return err
		}
	}
	return nil
}

func (s *ruleflow) startServer() {
	gate := idempotency.NewGate(s.redis, s.cfg.Redis.Prefix)
	s.apiServer = server.NewServer(s.cfg, s.engine, s.table, gate)

	if s.cfg.ArchiveBucketURL != "" {
		exp, err := archive.NewExporter(
			context.Background(),
			s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			slog.Error("Archive disabled",
				log.Error(fmt.Errorf("%w: %w", ErrOpenBucket, err)))
		} else {
			s.exporter = exp
			s.apiServer.EnableArchive(exp, s.journal)
		}
	}

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

func (s *ruleflow) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if err := s.engine.Stop(ctx); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}

	if s.exporter != nil {
		_ = s.exporter.Close()
	}
	_ = s.redis.Close()

	slog.Info("Server exited")
}
