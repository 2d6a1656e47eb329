// Package startup holds the helpers both binaries use while bringing up
// their connections.
package startup

import (
	"context"
	"fmt"
	"time"

	"admissions-wizard/internal/common/logger"
)

// RetryWithBackoff runs operation until it succeeds, attempts run out or ctx
// is done. The delay doubles after every failure.
func RetryWithBackoff(ctx context.Context, operationName string, attempts int, initialDelay time.Duration, log logger.Logger, operation func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := initialDelay

	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxRetries":  attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, i+1, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}
