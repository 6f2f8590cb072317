package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// defaultLogFileMaxSizeMB is the size in megabytes at which the log file is rotated.
	defaultLogFileMaxSizeMB = 10
	// defaultLogFileMaxBackups is the number of rotated log files kept on disk.
	defaultLogFileMaxBackups = 3
)

var (
	//nolint:gochecknoglobals // Process-wide log level shared by every logger built in this package.
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	//nolint:gochecknoglobals // Process-wide logger returned by Logger.
	baseLogger *zap.Logger

	//nolint:gochecknoglobals // Sugared view of baseLogger used by the context helpers.
	globalLogger *zap.SugaredLogger

	//nolint:gochecknoglobals // Guards globalLogger replacement.
	globalLoggerMutex sync.RWMutex
)

//nolint:gochecknoinits // The logger must be usable before any command runs.
func init() {
	SetLogger(New(atomicLevel))
}

// New creates a console logger writing to stderr with the given level enabler.
// A nil level falls back to the package-wide atomic level.
// Stdout stays free because audio may be streamed there.
func New(level zapcore.LevelEnabler, options ...zap.Option) *zap.Logger {
	if level == nil {
		level = atomicLevel
	}

	return zap.New(newConsoleCore(level), options...)
}

// NewWithFile creates a logger that writes to stderr and to a rotating log file.
func NewWithFile(level zapcore.LevelEnabler, filename string) *zap.Logger {
	if level == nil {
		level = atomicLevel
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    defaultLogFileMaxSizeMB,
		MaxBackups: defaultLogFileMaxBackups,
	})

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), fileWriter, level)

	return zap.New(zapcore.NewTee(newConsoleCore(level), fileCore))
}

func newConsoleCore(level zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeCaller = nil

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)
}

// ParseLogLevel converts a textual level into a zap level.
// Unknown values yield InfoLevel and false.
func ParseLogLevel(value string) (zapcore.Level, bool) {
	var level zapcore.Level

	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return zapcore.InfoLevel, false
	}

	if err := level.UnmarshalText([]byte(normalized)); err != nil {
		return zapcore.InfoLevel, false
	}

	return level, true
}

// Level returns the current process-wide log level.
func Level() zapcore.Level {
	return atomicLevel.Level()
}

// SetLevel changes the process-wide log level.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// IsDebugLevel reports whether debug messages are currently emitted.
func IsDebugLevel() bool {
	return atomicLevel.Enabled(zapcore.DebugLevel)
}

// Logger returns the underlying process-wide zap logger.
func Logger() *zap.Logger {
	globalLoggerMutex.RLock()
	defer globalLoggerMutex.RUnlock()

	return baseLogger
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}

	globalLoggerMutex.Lock()
	defer globalLoggerMutex.Unlock()

	baseLogger = l
	globalLogger = l.Sugar()
}

func fromContext(_ context.Context) *zap.SugaredLogger {
	globalLoggerMutex.RLock()
	defer globalLoggerMutex.RUnlock()

	return globalLogger
}

// Debug logs a message at debug level.
func Debug(ctx context.Context, args ...any) {
	fromContext(ctx).Debug(args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(ctx context.Context, format string, args ...any) {
	fromContext(ctx).Debugf(format, args...)
}

// DebugKV logs a message with key-value pairs at debug level.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	fromContext(ctx).Debugw(message, kvs...)
}

// Info logs a message at info level.
func Info(ctx context.Context, args ...any) {
	fromContext(ctx).Info(args...)
}

// Infof logs a formatted message at info level.
func Infof(ctx context.Context, format string, args ...any) {
	fromContext(ctx).Infof(format, args...)
}

// InfoKV logs a message with key-value pairs at info level.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	fromContext(ctx).Infow(message, kvs...)
}

// Warn logs a message at warn level.
func Warn(ctx context.Context, args ...any) {
	fromContext(ctx).Warn(args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(ctx context.Context, format string, args ...any) {
	fromContext(ctx).Warnf(format, args...)
}

// WarnKV logs a message with key-value pairs at warn level.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	fromContext(ctx).Warnw(message, kvs...)
}

// Error logs a message at error level.
func Error(ctx context.Context, args ...any) {
	fromContext(ctx).Error(args...)
}

// Errorf logs a formatted message at error level.
func Errorf(ctx context.Context, format string, args ...any) {
	fromContext(ctx).Errorf(format, args...)
}

// ErrorKV logs a message with key-value pairs at error level.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	fromContext(ctx).Errorw(message, kvs...)
}

// Fatal logs a message at fatal level and exits the process.
func Fatal(ctx context.Context, args ...any) {
	fromContext(ctx).Fatal(args...)
}

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(ctx context.Context, format string, args ...any) {
	fromContext(ctx).Fatalf(format, args...)
}

// Panic logs a message at panic level and panics.
func Panic(ctx context.Context, args ...any) {
	fromContext(ctx).Panic(args...)
}
