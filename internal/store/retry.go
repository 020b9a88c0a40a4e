package store

import (
	"context"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sethvargo/go-retry"
)

const (
	retryBase     = 20 * time.Millisecond
	retryMaxDelay = 500 * time.Millisecond
	retryAttempts = 5
)

// withRetry runs fn again while sqlite reports a busy or locked database.
// Other errors return immediately.
func withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.NewExponential(retryBase)
	backoff = retry.WithCappedDuration(retryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(retryAttempts, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
