package startup

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"admissions-wizard/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	errDown := stderrors.New("connection refused")

	tests := []struct {
		name      string
		attempts  int
		failFirst int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", attempts: 3, failFirst: 0, wantCalls: 1},
		{name: "recovers", attempts: 3, failFirst: 2, wantCalls: 3},
		{name: "gives up", attempts: 3, failFirst: 5, wantCalls: 3, wantErr: true},
		{name: "zero attempts still runs once", attempts: 0, failFirst: 0, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), "redis connection", tt.attempts, time.Millisecond, logger.NewTestLogger(t), func() error {
				calls++
				if calls <= tt.failFirst {
					return errDown
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errDown)
				assert.Contains(t, err.Error(), "redis connection failed after 3 attempts")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, "zeebe client", 10, time.Hour, logger.NewNoOpLogger(), func() error {
		calls++
		cancel()
		return stderrors.New("unavailable")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
