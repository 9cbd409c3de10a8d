package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewBuildsBothModes(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		logger, err := New(development)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("logger ready")
		logger.Sync() //nolint:errcheck // best-effort flush
	}
}

func TestConfigTimestamps(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		cfg := newConfig(development)
		require.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
		require.NotNil(t, cfg.EncoderConfig.EncodeTime)
	}
}

func TestProductionConfigDisablesSampling(t *testing.T) {
	t.Parallel()

	require.Nil(t, newConfig(false).Sampling)
	require.False(t, newConfig(false).Development)
	require.True(t, newConfig(true).Development)
}

func TestDevelopmentConfigLogsDebug(t *testing.T) {
	t.Parallel()

	require.True(t, newConfig(true).Level.Enabled(zapcore.DebugLevel))
	require.False(t, newConfig(false).Level.Enabled(zapcore.DebugLevel))
}
