package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(core zapcore.Core, cfg SamplingConfig) *Logger {
	return &Logger{
		zap:    zap.New(newSampledCore(core, cfg)),
		config: NewDefaultConfig(),
	}
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := sampledLogger(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Second,
		Initial:    5,
		Thereafter: 0,
	})

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		logger.Error(ctx, "error message")
	}

	assert.Len(t, observed.FilterMessage("error message").All(), 100)
}

func TestNewSampledCore_InfoSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := sampledLogger(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    5,
		Thereafter: 0,
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		logger.Info(ctx, "info message")
	}

	assert.Len(t, observed.FilterMessage("info message").All(), 5)
}

func TestNewSampledCore_Thereafter(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := sampledLogger(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    5,
		Thereafter: 5,
	})

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		logger.Info(ctx, "repeated message")
	}

	// 5 initial, then every 5th of the remaining 95
	assert.Len(t, observed.FilterMessage("repeated message").All(), 5+19)
}

func TestLevelFilterCore_With(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{
		zap: zap.New(&levelFilterCore{
			Core:     core,
			minLevel: zapcore.ErrorLevel,
			hasMin:   true,
		}),
		config: NewDefaultConfig(),
	}

	ctx := context.Background()
	child := logger.With(zap.String("component", "test"))
	child.Info(ctx, "info message")
	child.Warn(ctx, "warn message")
	child.Error(ctx, "error message")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "error message", logs[0].Message)
	assert.Equal(t, "test", logs[0].ContextMap()["component"])
}

func TestLevelFilterCore_MaxLevel(t *testing.T) {
	core, _ := observer.New(TraceLevel)
	filtered := &levelFilterCore{Core: core, maxLevel: zapcore.WarnLevel, hasMax: true}

	assert.True(t, filtered.Enabled(TraceLevel))
	assert.True(t, filtered.Enabled(zapcore.WarnLevel))
	assert.False(t, filtered.Enabled(zapcore.ErrorLevel))
}
