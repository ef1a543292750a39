package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/kioku-api/internal/config"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: " warn ", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := logger.ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// Setup mutates the slog default, so these tests do not run in parallel.
func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Run("filters below configured level", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "warn"}, buf)
		require.NoError(t, err)
		require.NotNil(t, l)

		l.Info("hidden")
		l.Warn("shown", slog.String("component", "test"))

		entries, err := buf.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "shown", entries[0]["msg"])
		assert.Equal(t, "test", entries[0]["component"])
	})

	t.Run("installs default", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		_, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "debug"}, buf)
		require.NoError(t, err)

		slog.Debug("via default")
		assert.Contains(t, buf.String(), "via default")
	})

	t.Run("invalid level warns and uses info", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "chatty"}, buf)
		require.NoError(t, err)

		l.Debug("hidden")
		msgs := buf.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "invalid log level configured, using default level", msgs[0])
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("stored logger wins", func(t *testing.T) {
		t.Parallel()
		ctx, buf := logger.NewLogCaptureContext(t)
		fallback, fallbackBuf := logger.GetTestLogger(t)

		logger.FromContextOrDefault(ctx, fallback).Info("hello")

		assert.Contains(t, buf.String(), "hello")
		assert.Empty(t, fallbackBuf.String())
	})

	t.Run("fallback without stored logger", func(t *testing.T) {
		t.Parallel()
		fallback, buf := logger.GetTestLogger(t)

		logger.FromContextOrDefault(context.Background(), fallback).Info("fallback used")

		assert.Contains(t, buf.String(), "fallback used")
	})

	t.Run("nil fallback uses default", func(t *testing.T) {
		t.Parallel()
		assert.NotNil(t, logger.FromContextOrDefault(context.Background(), nil))
		assert.NotNil(t, logger.FromContext(context.Background()))
	})

	t.Run("operation id attached", func(t *testing.T) {
		t.Parallel()
		ctx, buf := logger.NewLogCaptureContext(t)
		ctx = logger.WithOperationID(ctx, "exam-123")

		logger.FromContext(ctx).Info("assembling")

		entries, err := buf.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "exam-123", entries[0]["operation_id"])
		assert.Equal(t, "exam-123", logger.OperationID(ctx))
	})
}
