package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Policy controls how often and how long a database operation is retried.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy is used when no retry configuration is given.
var DefaultPolicy = Policy{ //nolint:gochecknoglobals // -
	MaxRetries:      5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	MaxElapsedTime:  30 * time.Second,
}

// PolicyFromConfig builds a policy from the retry section of the config.
// Zero values fall back to the defaults.
func PolicyFromConfig(cfg *config.Retry) Policy {
	p := DefaultPolicy
	if cfg == nil {
		return p
	}
	if cfg.MaxRetries > 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.Delay > 0 {
		p.InitialInterval = time.Duration(cfg.Delay) * time.Millisecond
	}
	if cfg.MaxDelay > 0 {
		p.MaxInterval = time.Duration(cfg.MaxDelay) * time.Millisecond
	}
	if cfg.MaxElapsed > 0 {
		p.MaxElapsedTime = time.Duration(cfg.MaxElapsed) * time.Millisecond
	}
	return p
}

// retryableClasses lists the SQLSTATE classes worth retrying:
// connection exceptions, transaction rollbacks, insufficient resources
// and operator intervention.
var retryableClasses = []string{"08", "40", "53", "57"} //nolint:gochecknoglobals // -

// IsRetryableError checks if the given error is a transient failure.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Caller gave up, retrying would not help
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		code := pgerr.Field('C')
		for _, class := range retryableClasses {
			if strings.HasPrefix(code, class) {
				return true
			}
		}
		return code == "55P03" // lock_not_available
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "EOF")
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Operation runs a database operation, retrying transient failures.
// Non-retryable errors are returned unchanged so callers can match them.
func Operation[T any](ctx context.Context, p Policy, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		retried bool
	)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		retried = true
		return err
	}, p.backOff(ctx))
	if err != nil && retried && IsRetryableError(err) {
		return result, fmt.Errorf("database operation failed after retries: %w", err)
	}

	return result, err
}

// NoResult runs a database operation without a result, retrying transient failures.
func NoResult(ctx context.Context, p Policy, operation func(context.Context) error) error {
	_, err := Operation(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}
