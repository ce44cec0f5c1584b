package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/pdf-chat-be/metrics"
	"github.com/tieubaoca/pdf-chat-be/types"
	"github.com/tieubaoca/pdf-chat-be/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	defaultRateLimit   = 10.0
	defaultBurst       = 5
)

// RetryConfig controls throttling and retries of provider calls.
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	RateLimit   float64 // requests per second, <= 0 disables throttling
	Burst       int
}

// retryableError marks an error as transient.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type retrier struct {
	provider    string
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

func newRetrier(provider string, cfg RetryConfig, logger *zap.Logger) *retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &retrier{
		provider:    provider,
		limiter:     rate.NewLimiter(limit, cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		logger:      utils.OrNop(logger),
	}
}

// do runs fn, retrying rate limit and overload responses with exponential
// backoff. Any final failure is wrapped in types.ErrUpstream.
func (r *retrier) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := r.run(ctx, operation, fn)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.ProviderRequests.WithLabelValues(r.provider, operation, result).Inc()
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", types.ErrUpstream, r.provider, operation, err)
	}
	return nil
}

func (r *retrier) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.baseBackoff * time.Duration(1<<(attempt-1))
			metrics.ProviderRetries.WithLabelValues(r.provider, operation).Inc()
			r.logger.Warn("retrying provider call",
				zap.String("provider", r.provider),
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError reports whether err is a 429 or 503 from either provider
// SDK, or was explicitly marked transient.
func isRetryableError(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
