package store

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"metastore/internal/logger"
)

// withRetry runs op, retrying with bounded exponential backoff on sqlite's
// transient "database is locked" / "database is busy" errors. Everything
// else is returned immediately: this is not a general-purpose retry, only
// a cushion against the single connection contending with itself under the
// per-object lock.
func withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, 5), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			logger.Warn("store: transient error on attempt %d: %v", attempt, err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy")
}
