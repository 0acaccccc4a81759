package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// RetryConfig конфигурация повторов при конфликте остатков.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) normalize() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	return c
}

// nextDelay считает экспоненциальную задержку с ограничением сверху.
func (c RetryConfig) nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * c.BackoffFactor)
	if next > c.MaxDelay || next < delay {
		return c.MaxDelay
	}
	return next
}

// withStockRetry повторяет fn только при ErrStockConflict. Бизнес-ошибки возвращаются сразу.
func (s *Service) withStockRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := s.retry.InitialDelay

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				s.logger.WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("operation succeeded after retry")
			}
			return nil
		}
		if !domain.IsStockConflict(err) {
			return err
		}

		lastErr = err
		s.metrics.RecordStockConflict()
		if attempt == s.retry.MaxAttempts {
			break
		}

		s.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
		}).Warn("stock conflict, retrying")
		s.metrics.RecordStockRetry()

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.sleep(delay):
			}
		}
		delay = s.retry.nextDelay(delay)
	}

	s.logger.WithError(lastErr).WithFields(log.Fields{
		"operation":    operation,
		"max_attempts": s.retry.MaxAttempts,
	}).Error("operation failed after all retry attempts")
	return lastErr
}
