package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

const (
	minLockBackoff = 2 * time.Millisecond
	maxLockBackoff = 50 * time.Millisecond
)

func CabLockKey(id int) string      { return "cab:" + strconv.Itoa(id) }
func TripLockKey(id int) string     { return "trip:" + strconv.Itoa(id) }
func LocationLockKey(id int) string { return "location:" + strconv.Itoa(id) }

// Lock polls lm until key is acquired, ctx is done or wait has elapsed. The
// returned unlock func releases the key under the token of this acquisition,
// even if ctx has been cancelled by then. A failed release is logged to logger
// at warn level; the lock then frees itself once ttl runs out.
//
// Callers that take more than one key must take them in the order
// trip, location, cab.
func Lock(ctx context.Context, lm LockManager, logger *slog.Logger, key string, ttl, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)
	backoff := minLockBackoff

	for {
		token, acquired, err := lm.AcquireLock(ctx, key, ttl)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if acquired {
			return func() {
				releaseCtx := context.WithoutCancel(ctx)
				if err := lm.ReleaseLock(releaseCtx, key, token); err != nil {
					logger.WarnContext(releaseCtx, "lock_release_failed", "key", key, "error", err)
				}
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("lock %s: %w", key, ErrLockTimeout)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < maxLockBackoff {
			backoff *= 2
		}
	}
}
