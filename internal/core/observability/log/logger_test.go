package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomicLevel)
	return &Logger{zapLogger: zap.New(core), zapLevel: atomicLevel}, logs
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		got, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	got, err := ParseLevel(" WARNING ")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, got)

	got, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, got)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestLoggerFieldsAndLevels(t *testing.T) {
	logger, logs := observed(LevelInfo)

	logger.Debug("hidden")
	logger.Named("postprocess").With(String("avatar", "player")).Info("pass",
		Int("slots", 3),
		Uint64("tick", 9),
		Float64("dt", 0.5),
		Bool("parallel", true),
		Duration("elapsed", time.Millisecond),
		Error(errors.New("boom")),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "postprocess", e.LoggerName)
	assert.Equal(t, zapcore.InfoLevel, e.Level)

	ctx := e.ContextMap()
	assert.Equal(t, "player", ctx["avatar"])
	assert.Equal(t, int64(3), ctx["slots"])
	assert.Equal(t, uint64(9), ctx["tick"])
	assert.Equal(t, 0.5, ctx["dt"])
	assert.Equal(t, true, ctx["parallel"])
	assert.Equal(t, time.Millisecond, ctx["elapsed"])
	assert.Equal(t, "boom", ctx["error"])

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())
	logger.Debug("visible")
	assert.Equal(t, 1, logs.FilterMessage("visible").Len())
}

func TestNewWithConfigRejectsUnknownEncoding(t *testing.T) {
	_, err := NewWithConfig(Config{Level: LevelInfo, Encoding: "xml"})
	assert.Error(t, err)
}
