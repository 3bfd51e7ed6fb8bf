package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/config"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/handler"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/httpserver"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/repository"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/service/review"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/circuitbreaker"
	pkgconfig "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/config"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/db"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/otel"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/outbox"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/redis"
)

func main() {
	cfg, err := config.Load(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting milestone-service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("http_port", cfg.Server.Port),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName: cfg.OTel.ServiceName,
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
		SampleRatio: cfg.OTel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.Open(context.Background(), cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx, dbConn); err != nil {
		schemaCancel()
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}
	schemaCancel()

	outboxRepo := outbox.NewRepository(dbConn)
	teamRepo := repository.NewTeamRepository(dbConn, outboxRepo, log)
	processor := review.NewProcessor(teamRepo, log)

	checks := map[string]httpserver.ReadinessCheck{
		"db": teamRepo.Ping,
	}

	// Redis board cache
	var rdb *goredis.Client
	if cfg.BoardCache.Enabled {
		rdb = redis.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redis.Ping(pingCtx, rdb); err != nil {
			log.Warn("Redis unavailable, board cache will fall back to the database", zap.Error(err))
		}
		pingCancel()
		processor.WithBoardCache(repository.NewBoardCache(rdb, cfg.BoardCache.TTL))
		log.Info("Board cache enabled", zap.Duration("ttl", cfg.BoardCache.TTL))
	}

	// MQ publisher for the outbox
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	checks["mq"] = func(context.Context) error {
		if !publisher.IsConnected() {
			return errors.New("publisher not connected")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithCircuitBreaker(breaker)
	go dispatcher.Start(ctx)
	log.Info("Outbox dispatcher started",
		zap.Duration("interval", cfg.Outbox.Interval),
		zap.Int("batch_size", cfg.Outbox.BatchSize),
	)

	replayService := outbox.NewReplayService(outboxRepo, publisher, log)

	// HTTP
	teamHandler := handler.NewTeamHandler(processor, log)
	adminHandler := handler.NewAdminHandler(replayService, log)
	router := httpserver.NewRouter(teamHandler, adminHandler, httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		Checks:    checks,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("milestone-service is fully initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down milestone-service gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Stop the dispatcher after the last request so its events still get a publish attempt.
	cancel()

	log.Info("milestone-service shutdown complete")
}
