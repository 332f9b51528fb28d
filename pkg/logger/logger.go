package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging across the service.
const (
	FieldFlight     = "flight"
	FieldCallsign   = "callsign"
	FieldAirport    = "airport"
	FieldStand      = "stand"
	FieldStage      = "stage"
	FieldConfidence = "confidence"
	FieldSource     = "source"
	FieldCacheKey   = "cache_key"
	FieldStatus     = "status"
	FieldWorker     = "worker"
	FieldSubject    = "subject"
	FieldDurationMS = "duration_ms"
	FieldRequestID  = "request_id"
)

// New builds a zap logger. JSON output uses the production config, otherwise a
// colored console encoder is used for local development.
func New(level string, jsonOutput bool) (*zap.Logger, error) {
	lvl := parseLevel(level)

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
		return config.Build()
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			lvl,
		),
	), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
