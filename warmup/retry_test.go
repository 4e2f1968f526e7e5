package warmup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetry(t *testing.T) {
	persistent := errors.New("persistent error")
	tests := []struct {
		name         string
		attempts     int
		failures     int
		wantErr      error
		wantAttempts int
	}{
		{"first try", 3, 0, nil, 1},
		{"eventual success", 5, 2, nil, 3},
		{"all attempts fail", 3, 10, persistent, 3},
		{"zero attempts", 0, 0, ErrInvalidMaxAttempts, 0},
		{"negative attempts", -1, 0, ErrInvalidMaxAttempts, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastPolicy(tt.attempts), nil, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return persistent
				}
				return nil
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, calls)
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastPolicy(10), nil, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 800*time.Millisecond, p.delay(4))
	assert.Equal(t, time.Second, p.delay(5))
	assert.Equal(t, time.Second, p.delay(30))

	uncapped := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Millisecond}
	assert.Equal(t, 16*time.Millisecond, uncapped.delay(5))
}
