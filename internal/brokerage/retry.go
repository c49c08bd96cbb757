package brokerage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy implements spec §7's transport-failure retry policy: up to
// maxAttempts attempts with a fixed backoff between them. Rejected orders
// are a brokerage-level business outcome, not a transport failure, and
// must never be retried by Retrier.Do — callers distinguish the two by
// wrapping only transport errors with MarkTransportError.
const (
	defaultMaxAttempts = 10
	defaultBackoff     = 3 * time.Second
)

// transportError wraps an error that Retrier.Do retries. Any error not
// wrapped as a transportError is treated as a terminal (non-retryable)
// brokerage response, per spec §7 ("Rejected orders are NOT retried").
type transportError struct{ err error }

func (t *transportError) Error() string { return t.err.Error() }
func (t *transportError) Unwrap() error { return t.err }

// MarkTransportError wraps err so Retrier.Do treats it as retryable.
// Adapters call this around network/IO failures (dial refused, timeout,
// 5xx) and leave business rejections (4xx, order validation failure)
// unwrapped.
func MarkTransportError(err error) error {
	if err == nil {
		return nil
	}
	return &transportError{err: err}
}

func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// Retrier retries transport-level failures with a fixed backoff, per spec
// §7's policy. It never retries an error that isn't marked as a transport
// failure via MarkTransportError.
type Retrier struct {
	maxAttempts int
	backoff     time.Duration
	log         *zap.Logger
}

// NewRetrier creates a Retrier with spec §7's defaults (10 attempts, 3s
// fixed backoff). A nil logger is replaced with zap.NewNop().
func NewRetrier(log *zap.Logger) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{maxAttempts: defaultMaxAttempts, backoff: defaultBackoff, log: log}
}

// Do calls fn, retrying it while it returns a transport-marked error, up
// to maxAttempts total attempts, waiting backoff between attempts. A
// non-transport error (a business rejection) is returned immediately
// without retry. ctx cancellation aborts the retry loop.
func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransportError(lastErr) {
			return lastErr
		}
		r.log.Warn("brokerage transport call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(lastErr),
		)
		if attempt == r.maxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return lastErr
}
