package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jordanella.com/reward-pinger/internal/logging"
)

// ErrGraceExceeded is returned when the run did not stop within the grace
// period after cancellation.
var ErrGraceExceeded = errors.New("shutdown grace period exceeded")

// RunUntilCancelled runs fn until it returns or parent is cancelled. On
// cancellation it cancels fn's context and waits at most grace for fn to
// return before giving up on it.
func RunUntilCancelled(parent context.Context, grace time.Duration, fn func(ctx context.Context) error) error {
	logger := logging.NewLogger("shutdown")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("run panicked: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-parent.Done():
	}

	logger.Info("Process interrupted, cleaning up")
	cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-done:
		logger.Info("Cleanup done")
		if err == nil || errors.Is(err, context.Canceled) {
			return parent.Err()
		}
		return err
	case <-timer.C:
		logger.Warn(fmt.Sprintf("Tasks still running after %s, abandoning them", grace))
		return ErrGraceExceeded
	}
}
