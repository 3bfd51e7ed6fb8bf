package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mqcontracts "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/contracts/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/config"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/mqhandler"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/repository"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/service/review"
	pkgconfig "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/config"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/db"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/logger"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/otel"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/outbox"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/redis"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/util"
)

type queueBinding struct {
	queue      string
	routingKey string
	handle     func(ctx context.Context, raw json.RawMessage) error
}

func main() {
	cfg, err := config.Load(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting milestone-worker...",
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Int64("max_retries", cfg.Worker.MaxRetries),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName: cfg.OTel.ServiceName + "-worker",
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
		SampleRatio: cfg.OTel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	dbConn, err := db.Open(context.Background(), cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redis.Ping(pingCtx, rdb); err != nil {
		log.Warn("Redis unavailable, dedup and retry counting degrade to always-process", zap.Error(err))
	}
	pingCancel()

	teamRepo := repository.NewTeamRepository(dbConn, outbox.NewRepository(dbConn), log)
	processor := review.NewProcessor(teamRepo, log)
	if cfg.BoardCache.Enabled {
		// The worker writes teams too, so it must invalidate cached boards.
		processor.WithBoardCache(repository.NewBoardCache(rdb, cfg.BoardCache.TTL))
	}

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Worker.DedupTTL)

	draftsHandler := mqhandler.NewDraftsGeneratedHandler(processor, deduper, retryCounter, cfg.Worker.MaxRetries, log)
	flagHandler := mqhandler.NewTeamFlagChangedHandler(processor, retryCounter, cfg.Worker.MaxRetries, log)

	dlqPublisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init DLQ publisher", zap.Error(err))
	}
	defer dlqPublisher.Close()

	bindings := []queueBinding{
		{queue: mqcontracts.RoutingDraftsGenerated + ".q", routingKey: mqcontracts.RoutingDraftsGenerated, handle: draftsHandler.Handle},
		{queue: mqcontracts.RoutingTeamFlagChanged + ".q", routingKey: mqcontracts.RoutingTeamFlagChanged, handle: flagHandler.Handle},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A consumer that dies cancels the group so the process exits and gets restarted.
	g, gctx := errgroup.WithContext(ctx)
	for _, qb := range bindings {
		log.Info("Initializing MQ consumer...",
			zap.String("queue", qb.queue),
			zap.String("routing_key", qb.routingKey),
		)
		consumer, err := mq.NewConsumer(cfg.MQ.URL, qb.queue, qb.routingKey, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("queue", qb.queue), zap.Error(err))
		}
		defer consumer.Close()

		consumer.SetHandler(qb.handle)
		consumer.SetDeadLetterPublisher(dlqPublisher)

		queue := qb.queue
		g.Go(func() error {
			if err := consumer.StartConsuming(gctx); err != nil {
				log.Error("Consumer stopped with error", zap.String("queue", queue), zap.Error(err))
				return err
			}
			return nil
		})
	}

	log.Info("milestone-worker is fully initialized and running")

	<-gctx.Done()
	log.Info("Shutting down milestone-worker gracefully...")
	if err := g.Wait(); err != nil {
		log.Error("milestone-worker stopped after consumer failure", zap.Error(err))
	}
	log.Info("milestone-worker shutdown complete")
}
