package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apihttp "seedvault/internal/api/http"
	"seedvault/internal/app"
	"seedvault/internal/domain/ports"
	enganacrolix "seedvault/internal/engine/anacrolix"
	"seedvault/internal/metrics"
	"seedvault/internal/policy"
	mongorepo "seedvault/internal/repository/mongo"
	"seedvault/internal/selector"
	redisfeed "seedvault/internal/statusfeed/redis"
	"seedvault/internal/telemetry"
	"seedvault/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "seedvault")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		logger.Error("policy load failed", slog.String("path", cfg.PolicyPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("service", "seedvault"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("statusSource", cfg.StatusSource),
		slog.String("policyPath", cfg.PolicyPath),
		slog.String("dataDir", cfg.DataDir),
		slog.Int64("minFreeBytes", cfg.MinFreeBytes),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metaStore := mongorepo.NewMetaStore(mongoClient, cfg.MongoDatabase, cfg.MongoCollection)
	if err := metaStore.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	var (
		feed        ports.StatusFeed
		deleter     ports.Deleter
		closeEngine func() error
	)
	switch cfg.StatusSource {
	case "embedded":
		clientConfig := torrent.NewDefaultClientConfig()
		clientConfig.DataDir = cfg.DataDir
		clientConfig.Seed = true
		client, err := torrent.NewClient(clientConfig)
		if err != nil {
			logger.Error("torrent client init failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		adapter := enganacrolix.New(client, cfg.DataDir, logger)
		feed, deleter = adapter, adapter
		closeEngine = func() error {
			errList := client.Close()
			if len(errList) > 0 {
				return errList[0]
			}
			return nil
		}
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		rf := redisfeed.NewFeed(redisClient)
		if err := rf.Ping(ctx); err != nil {
			logger.Error("redis ping failed", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
			os.Exit(1)
		}
		feed, deleter = rf, rf
		closeEngine = redisClient.Close
	default:
		logger.Error("unknown status source", slog.String("statusSource", cfg.StatusSource))
		os.Exit(1)
	}

	keyer, err := selector.NewHeuristicKeyer(selector.TableKeyer{
		Container:  pol.Selection.Container,
		Resolution: pol.Selection.Resolution,
		Source:     pol.Selection.Source,
	}, pol.Selection.SeedersCap)
	if err != nil {
		logger.Error("selector init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := apihttp.NewServer(feed, metaStore, pol, keyer, apihttp.WithLogger(logger))

	reclaimer := usecase.Reclaimer{
		Feed:            feed,
		Meta:            metaStore,
		Deleter:         deleter,
		Policy:          pol,
		Logger:          logger,
		Notify:          handler.CycleNotifier(),
		DataDir:         cfg.DataDir,
		MinFreeBytes:    cfg.MinFreeBytes,
		TargetFreeBytes: cfg.TargetFreeBytes,
		Interval:        cfg.ReclaimInterval,
		DeletesPerMin:   cfg.DeletesPerMin,
	}
	go reclaimer.Run(rootCtx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if closeEngine != nil {
		if err := closeEngine(); err != nil {
			logger.Warn("status source close error", slog.String("error", err.Error()))
		}
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
