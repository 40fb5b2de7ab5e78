package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/digital-twin/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	errFlaky := errors.New("flaky")

	tests := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{name: "first try", attempts: 3, wantCalls: 1},
		{name: "succeeds after failures", failures: 2, err: errFlaky, attempts: 3, wantCalls: 3},
		{name: "exhausted", failures: 5, err: errFlaky, attempts: 3, wantCalls: 3, wantErr: ErrMaxRetries},
		{
			name:      "non-retryable stops at once",
			failures:  5,
			err:       &RetryableError{Err: errFlaky, Retryable: false},
			attempts:  3,
			wantCalls: 1,
			wantErr:   errFlaky,
		},
		{name: "rate limit is retried", failures: 1, err: ErrRateLimit, attempts: 2, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			}, fastRetry(tt.attempts))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("boom")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "rate limit", err: fmt.Errorf("wrapped: %w", ErrRateLimit), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "retryable", err: &RetryableError{Err: errors.New("503"), Retryable: true}, want: true},
		{name: "not retryable", err: &RetryableError{Err: errors.New("400"), Retryable: false}},
		{name: "plain", err: errors.New("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	err := NewUserError("Campaign parsing needs an API key", ErrMissingConfig)
	assert.Equal(t, "Campaign parsing needs an API key: missing configuration", err.Error())
	require.ErrorIs(t, err, ErrMissingConfig)

	assert.Equal(t, "just a message", NewUserError("just a message", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(&buf, slog.LevelInfo, "json")
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("Simulation complete", "customers", 1000)
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"customers":1000`)
	})

	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(&buf, slog.LevelDebug, "console")
		require.NoError(t, err)

		logger.Debug("Cache miss", "key", "abc")
		assert.Contains(t, buf.String(), "key=abc")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewLogger(&bytes.Buffer{}, slog.LevelInfo, "xml")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoggerOrDefault(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, custom, LoggerOrDefault(custom))
	assert.Same(t, slog.Default(), LoggerOrDefault(nil))
}
