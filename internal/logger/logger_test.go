package logger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	log, err := logger.NewLogger(&config.LoggingConfig{Level: "warn", Format: "json"}, &config.AppConfig{Name: "job-sense", Environment: "development"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	// Unknown levels fall back to info
	log, err = logger.NewLogger(&config.LoggingConfig{Level: "chatty"}, &config.AppConfig{Name: "job-sense", Environment: "development"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestContextHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	userID := uuid.New()

	logger.WithUser(logger.WithRequest(base, "req-1", "GET", "/api/v1/sites"), userID, "crew@example.com").Info("served")
	logger.WithJob(base, "token_cleanup").Info("ran")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/api/v1/sites", fields["path"])
	assert.Equal(t, userID.String(), fields["user_id"])

	assert.Equal(t, "jobs", entries[1].LoggerName)
	assert.Equal(t, "token_cleanup", entries[1].ContextMap()["job"])
}
