package mqhandler

import (
	"context"

	"go.uber.org/zap"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/model"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/mq"
	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/util"
)

// Deduper remembers which messages a handler already processed.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

// RetryCounter counts delivery attempts per message across redeliveries.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// retryPolicy turns a handler error into either a plain error (requeue) or a permanent one
// (dead letter).
type retryPolicy struct {
	counter    RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

// classifyError decides domain outcomes first, then defers to the infrastructure classifier.
// Storage failures it cannot place are treated as transient.
func classifyError(err error) (bool, string) {
	switch {
	case model.IsValidation(err):
		return false, "validation_error"
	case model.IsInvalidTransition(err):
		return false, "invalid_transition"
	case model.IsNotFound(err):
		return false, "not_found"
	case model.IsConcurrentModification(err):
		return true, "concurrent_modification"
	}

	retryable, errType := util.IsRetryableError(err)
	if errType != "unknown_error" {
		return retryable, errType
	}
	if model.IsPersistence(err) {
		return true, "persistence_error"
	}
	return false, errType
}

func (p retryPolicy) classify(ctx context.Context, handler, id string, err error) error {
	retryable, errType := classifyError(err)
	log := p.logger.With(
		zap.String("handler", handler),
		zap.String("id", id),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
	)

	if !retryable {
		log.Warn("Non-retryable failure, sending to DLQ", zap.Error(err))
		return mq.Permanent(errType, err)
	}
	if p.counter == nil || id == "" {
		return err
	}

	count, cerr := p.counter.IncrementAndGet(ctx, util.FormatRetryKey(handler, id))
	if cerr != nil {
		log.Warn("Failed to get retry count, requeueing anyway", zap.Error(cerr))
		return err
	}
	if !util.ShouldRetry(count, p.maxRetries, retryable) {
		log.Error("Max retries exceeded, sending to DLQ",
			zap.Int64("retry_count", count),
			zap.Int64("max_retries", p.maxRetries),
			zap.Error(err),
		)
		return mq.Permanent("max_retries_exceeded", err)
	}

	log.Warn("Retryable failure, requeueing", zap.Int64("retry_count", count), zap.Error(err))
	return err
}

func (p retryPolicy) reset(ctx context.Context, handler, id string) {
	if p.counter == nil || id == "" {
		return
	}
	if err := p.counter.Reset(ctx, util.FormatRetryKey(handler, id)); err != nil {
		p.logger.Debug("Failed to reset retry count", zap.String("handler", handler), zap.Error(err))
	}
}
