package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/config"
)

// RetryPolicy bounds gateway retries.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NewRetryPolicy reads the retry budget from configuration.
func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      cfg.GatewayMaxRetries,
		InitialInterval: cfg.GatewayRetryBackoff,
		MaxInterval:     cfg.GatewayTimeout,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// withRetry calls fn until it succeeds, fails permanently or the budget runs out.
// Only transient and auth gateway errors are retried.
func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	operation := func() error {
		r, err := fn(ctx)
		if err != nil {
			if gateway.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("gateway call failed, retrying",
			slog.String("op", op),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	}
	err := backoff.RetryNotify(operation, policy.backOff(ctx), notify)
	return result, err
}
