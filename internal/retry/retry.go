package retry

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Do invokes op up to maxAttempts times. After a failed attempt it waits
// attempt² seconds (1s, 4s, 9s, ...) before trying again, honoring ctx
// cancellation during the wait. The last error is returned once attempts
// are exhausted.
func Do(ctx context.Context, logger *log.Logger, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if logger != nil {
			logger.Printf("attempt %d/%d failed: %v", attempt, maxAttempts, lastErr)
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(Delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

// Delay returns the pause after the given attempt index (1-based).
func Delay(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}
