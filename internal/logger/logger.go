package logger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Production and logging.format=json
// emit JSON with ISO8601 timestamps; everything else gets the colored
// development console.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Format == "json" || appCfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]interface{}{
		"service":     appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// WithRequest tags log lines written while serving one request
func WithRequest(log *zap.Logger, requestID, method, path string) *zap.Logger {
	return log.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)
}

// WithUser tags log lines with the authenticated account
func WithUser(log *zap.Logger, userID uuid.UUID, email string) *zap.Logger {
	return log.With(
		zap.String("user_id", userID.String()),
		zap.String("user_email", email),
	)
}

// WithJob names the scheduled job a log line belongs to
func WithJob(log *zap.Logger, name string) *zap.Logger {
	return log.Named("jobs").With(zap.String("job", name))
}
