package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/newspulse/feed-enricher/pkg/logger"
)

type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
	}
}

// EnrichmentConfig matches the budget used for calls to the enrichment
// services: up to 5 attempts, delays growing from 4s and capped at 60s.
func EnrichmentConfig() Config {
	return Config{
		MaxRetries:      4,
		InitialInterval: 4 * time.Second,
		MaxInterval:     60 * time.Second,
		Multiplier:      2,
	}
}

// Do runs operation with exponential backoff. Wrap an error in
// backoff.Permanent to stop retrying early.
func Do(ctx context.Context, log logger.Logger, operationName string, operation func() error, cfg Config) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.Multiplier = cfg.Multiplier
	bo.Reset()

	retryable := backoff.WithMaxRetries(bo, cfg.MaxRetries)
	retryableWithContext := backoff.WithContext(retryable, ctx)

	notify := func(err error, t time.Duration) {
		log.Warn(
			"Operation failed, retrying...",
			"operation", operationName,
			"error", err,
			"next_attempt_in", t.Round(time.Millisecond).String(),
		)
	}

	return backoff.RetryNotify(operation, retryableWithContext, notify)
}
