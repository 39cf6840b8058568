package services

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryingClient bounds every attempt with a timeout and retries transient provider failures
type RetryingClient struct {
	CompletionClient
	timeout         time.Duration
	maxRetries      int
	initialInterval time.Duration
}

// NewRetryingClient wraps client. maxRetries counts retries after the first attempt.
func NewRetryingClient(client CompletionClient, timeout time.Duration, maxRetries int, initialInterval time.Duration) *RetryingClient {
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &RetryingClient{
		CompletionClient: client,
		timeout:          timeout,
		maxRetries:       maxRetries,
		initialInterval:  initialInterval,
	}
}

// Generate calls the wrapped client, retrying transient failures
func (r *RetryingClient) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	var reply string
	err := retryTransient(ctx, r.Name(), r.timeout, r.maxRetries, r.initialInterval, func(attemptCtx context.Context) error {
		out, err := r.CompletionClient.Generate(attemptCtx, system, user, maxTokens)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// retryTransient runs operation with a per-attempt timeout, retrying it up to
// maxRetries times while it fails with a transient provider error
func retryTransient(ctx context.Context, name string, timeout time.Duration, maxRetries int, initialInterval time.Duration, operation func(context.Context) error) error {
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempt := 0
	attemptFn := func() error {
		attempt++
		attemptCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		err := operation(attemptCtx)
		if err != nil && (ctx.Err() != nil || !IsTransient(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		log.Printf("[retry] %s attempt %d failed, retrying in %v: %v", name, attempt, wait, err)
	}

	return backoff.RetryNotify(attemptFn, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx), notify)
}
