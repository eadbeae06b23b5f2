package logger_test

import (
	"context"
	"testing"

	"github.com/Gunvolt24/dms_events/pkg/ctxmeta"
	"github.com/Gunvolt24/dms_events/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Infow_StructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.Wrap(zap.New(core))

	l.Infow(context.Background(), "handled", "topic", "t", "partition", 0, "offset", int64(42))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "handled", entry.Message)
	fields := entry.ContextMap()
	require.Equal(t, "t", fields["topic"])
	require.EqualValues(t, 0, fields["partition"])
	require.EqualValues(t, 42, fields["offset"])
}

func TestZapLogger_AddsRequestIDFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.Wrap(zap.New(core))

	ctx := ctxmeta.WithRequestID(context.Background(), "req-1")
	l.Warnf(ctx, "something %s", "odd")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "something odd", entry.Message)
	require.Equal(t, "req-1", entry.ContextMap()["request_id"])
	require.Equal(t, zapcore.WarnLevel, entry.Level)
}

func TestZapLogger_Errorw_NoContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.Wrap(zap.New(core))

	l.Errorw(context.Background(), "failed", "error", "boom")

	entry := logs.All()[0]
	require.Equal(t, zapcore.ErrorLevel, entry.Level)
	_, hasRID := entry.ContextMap()["request_id"]
	require.False(t, hasRID)
}

func TestNewZapLogger_Dev(t *testing.T) {
	l, cleanup, err := logger.NewZapLogger(false, "test")
	require.NoError(t, err)
	require.NotNil(t, l.Base())
	_ = cleanup()
}
