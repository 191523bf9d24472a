// Package logging provides the structured logging the connection core uses
// around state transitions, swallowed per-frame errors, heartbeat
// overruns, and handler failures. The default-logger plumbing (Init,
// level/format/output selection, Debug/Info/Warn/Error wrappers) is
// grounded on the teacher's pkg/logger; the typed helpers below are this
// package's own addition, giving the connection core's log lines a fixed,
// consistent field set instead of callers hand-building zap.Field lists.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger *zap.Logger

// Config selects the logger's level, encoding, and output sink.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, file path
}

// Init builds the default logger from cfg. Safe to call once at process
// start; callers embedding this client in a larger service that already
// owns a zap logger should use With/L directly instead.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var writer zapcore.WriteSyncer
	if cfg.Output == "stdout" || cfg.Output == "" {
		writer = zapcore.AddSync(os.Stdout)
	} else {
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		writer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writer, level)
	// Skip this package's own wrapper frame so the caller field reported
	// by every log line points at the actual call site (connection.go,
	// cmd/danmakuclient), not logging.go.
	defaultLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the default logger, lazily falling back to a production
// logger if Init was never called.
func L() *zap.Logger {
	if defaultLogger == nil {
		defaultLogger, _ = zap.NewProduction()
	}
	return defaultLogger
}

// With returns a child logger with the given fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Debug logs at debug level on the default logger.
func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }

// Info logs at info level on the default logger.
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

// Warn logs at warn level on the default logger.
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

// Error logs at error level on the default logger.
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Sync flushes the default logger's buffer.
func Sync() error { return L().Sync() }

// StateTransition logs a connection lifecycle transition (spec.md §4.4.1).
// Called at the same stack depth as Debug/Info/Warn/Error above, so it
// shares their AddCallerSkip(1) setting.
func StateTransition(connectionID string, roomID int64, from, to string) {
	L().Info("connection state transition",
		zap.String("connection_id", connectionID),
		zap.Int64("room_id", roomID),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// FrameDropped logs a per-frame decode failure the receive loop swallowed
// and continued past.
func FrameDropped(connectionID string, roomID int64, action uint32, err error) {
	L().Warn("dropping malformed frame",
		zap.String("connection_id", connectionID),
		zap.Int64("room_id", roomID),
		zap.Uint32("action", action),
		zap.Error(err),
	)
}

// HeartbeatOverrun logs a heartbeat send that consumed the whole interval.
func HeartbeatOverrun(connectionID string, roomID int64) {
	L().Warn("heartbeat send overran its interval",
		zap.String("connection_id", connectionID),
		zap.Int64("room_id", roomID),
	)
}

// Disconnected logs the end of a session. err is nil for a clean,
// caller-initiated or cancellation-triggered shutdown.
func Disconnected(connectionID string, roomID int64, err error) {
	if err != nil {
		L().Warn("connection disconnected",
			zap.String("connection_id", connectionID),
			zap.Int64("room_id", roomID),
			zap.Error(err),
		)
		return
	}
	L().Info("connection disconnected",
		zap.String("connection_id", connectionID),
		zap.Int64("room_id", roomID),
	)
}

// HandlerError logs a dispatch handler returning an error for a delivered
// event.
func HandlerError(connectionID string, eventKind string, err error) {
	L().Warn("handler returned an error",
		zap.String("connection_id", connectionID),
		zap.String("event", eventKind),
		zap.Error(err),
	)
}
