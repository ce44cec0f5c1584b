package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/types"
	"google.golang.org/api/googleapi"
)

func fastRetrier(maxRetries int) *retrier {
	return newRetrier("test", RetryConfig{MaxRetries: maxRetries, BaseBackoff: time.Millisecond}, nil)
}

func TestRetrierRetriesTransientErrors(t *testing.T) {
	r := fastRetrier(3)
	calls := 0
	err := r.do(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &googleapi.Error{Code: 429, Message: "quota"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := fastRetrier(3)
	calls := 0
	err := r.do(context.Background(), "generate", func(ctx context.Context) error {
		calls++
		return &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}
	})
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.Equal(t, 1, calls)
}

func TestRetrierGivesUp(t *testing.T) {
	r := fastRetrier(2)
	calls := 0
	err := r.do(context.Background(), "generate", func(ctx context.Context) error {
		calls++
		return &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("overloaded")}
	})
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.ErrorContains(t, err, "max retries exceeded")
	assert.Equal(t, 3, calls)
}

func TestRetrierHonoursCancellation(t *testing.T) {
	r := newRetrier("test", RetryConfig{MaxRetries: 5, BaseBackoff: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.do(ctx, "embed", func(ctx context.Context) error {
		calls++
		cancel()
		return &retryableError{err: errors.New("flaky")}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrierThrottlesEveryAttempt(t *testing.T) {
	// two tokens and a refill far beyond the deadline: the third attempt
	// must be refused by the limiter
	r := newRetrier("test", RetryConfig{MaxRetries: 5, BaseBackoff: time.Millisecond, RateLimit: 0.001, Burst: 2}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	calls := 0
	err := r.do(ctx, "embed", func(ctx context.Context) error {
		calls++
		return &googleapi.Error{Code: 429, Message: "quota"}
	})
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.ErrorContains(t, err, "rate limiter")
	assert.Equal(t, 2, calls)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 503})))
	assert.False(t, isRetryableError(&googleapi.Error{Code: 400}))
	assert.True(t, isRetryableError(&openai.APIError{HTTPStatusCode: 429}))
	assert.False(t, isRetryableError(errors.New("plain")))
}
