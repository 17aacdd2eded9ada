package logcollection

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ===== ZAP BACKEND ADAPTER =====

// ZapAdapter provides a Zap backend implementation that hides zap types from users
type ZapAdapter struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	file   *os.File
}

// NewZapAdapter creates a new Zap backend adapter
func NewZapAdapter(config ZapConfig) (*ZapAdapter, error) {
	zapLogger, file, err := createZapLogger(config)
	if err != nil {
		return nil, err
	}

	return &ZapAdapter{
		logger: zapLogger,
		sugar:  zapLogger.Sugar(),
		file:   file,
	}, nil
}

// ===== STRUCTURED LOGGER IMPLEMENTATION =====

// Debugf implements simple logging interface
func (z *ZapAdapter) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(format, args...)
}

// Infof implements simple logging interface
func (z *ZapAdapter) Infof(format string, args ...interface{}) {
	z.sugar.Infof(format, args...)
}

// Warnf implements simple logging interface
func (z *ZapAdapter) Warnf(format string, args ...interface{}) {
	z.sugar.Warnf(format, args...)
}

// Errorf implements simple logging interface
func (z *ZapAdapter) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(format, args...)
}

// LogWithFields implements structured logging
func (z *ZapAdapter) LogWithFields(level LogLevel, msg string, fields ...LogField) {
	zapFields := z.convertFields(fields)
	z.logAtLevel(level, msg, zapFields...)
}

// WithFields creates a new logger with additional fields
func (z *ZapAdapter) WithFields(fields ...LogField) StructuredLogger {
	zapFields := z.convertFields(fields)
	newLogger := z.logger.With(zapFields...)

	return &ZapAdapter{
		logger: newLogger,
		sugar:  newLogger.Sugar(),
		file:   z.file,
	}
}

// WithError creates a new logger with an error field
func (z *ZapAdapter) WithError(err error) StructuredLogger {
	return z.WithFields(Error(err))
}

// WithUnit creates a new logger with a unit field
func (z *ZapAdapter) WithUnit(unitID string) StructuredLogger {
	return z.WithFields(Unit(unitID))
}

// Sync flushes any buffered log entries
func (z *ZapAdapter) Sync() error {
	return z.logger.Sync()
}

// Close flushes and closes the log file, if any.
func (z *ZapAdapter) Close() error {
	_ = z.logger.Sync()
	if z.file != nil {
		return z.file.Close()
	}
	return nil
}

// LogFuncs exposes the adapter to pkg/logging.
func (z *ZapAdapter) LogFuncs() logging.LogFuncs {
	return logging.LogFuncs{
		Debugf: z.sugar.Debugf,
		Infof:  z.sugar.Infof,
		Warnf:  z.sugar.Warnf,
		Errorf: z.sugar.Errorf,
	}
}

// ===== INTERNAL CONVERSION METHODS =====

// convertFields converts our LogField types to zap.Field types (internal only)
func (z *ZapAdapter) convertFields(fields []LogField) []zap.Field {
	zapFields := make([]zap.Field, len(fields))

	for i, field := range fields {
		zapFields[i] = z.convertSingleField(field)
	}

	return zapFields
}

// convertSingleField converts a single LogField to zap.Field
func (z *ZapAdapter) convertSingleField(field LogField) zap.Field {
	switch field.Type {
	case StringField:
		return zap.String(field.Key, field.Value.(string))
	case IntField:
		return zap.Int(field.Key, field.Value.(int))
	case DurationField:
		return zap.Duration(field.Key, field.Value.(time.Duration))
	case ErrorField:
		if err, ok := field.Value.(error); ok {
			return zap.Error(err)
		}
		return zap.String(field.Key, "invalid error field")
	default:
		return zap.Any(field.Key, field.Value)
	}
}

// logAtLevel logs at the specified level
func (z *ZapAdapter) logAtLevel(level LogLevel, msg string, fields ...zap.Field) {
	switch level {
	case DebugLevel:
		z.logger.Debug(msg, fields...)
	case InfoLevel:
		z.logger.Info(msg, fields...)
	case WarnLevel:
		z.logger.Warn(msg, fields...)
	case ErrorLevel:
		z.logger.Error(msg, fields...)
	default:
		z.logger.Info(msg, fields...)
	}
}

// ===== ZAP CONFIGURATION =====

// TimeLayout is the timestamp layout of every log line, e.g. "2024-05-01 13:04:05".
const TimeLayout = "2006-01-02 15:04:05"

// ZapConfig defines Zap-specific configuration
type ZapConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
	Output string // "stdout", "stderr", "none"
	// File is an append-only log file written alongside Output. Opening it is best effort.
	File string
	// Writer replaces Output when set.
	Writer io.Writer
	Caller bool
}

// createZapLogger creates a zap logger from configuration
func createZapLogger(config ZapConfig) (*zap.Logger, *os.File, error) {
	// Parse level, in zap v1.27.0 use zapcore.ParseLevel(config.Level)
	level, err := getLevelFromString(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = layoutTimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	cores := make([]zapcore.Core, 0, 2)

	switch {
	case config.Writer != nil:
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(config.Writer)), level))
	case config.Output == "stdout" || config.Output == "":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level))
	case config.Output == "stderr":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level))
	case config.Output == "none":
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", config.Output)
	}

	var file *os.File
	if config.File != "" {
		file, err = openLogFile(config.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file unavailable, continuing without it: %v\n", err)
		} else {
			cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(file), level))
		}
	}

	opts := []zap.Option{}
	if config.Caller {
		opts = append(opts, zap.AddCaller())
	}

	return zap.New(zapcore.NewTee(cores...), opts...), file, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func layoutTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(TimeLayout))
}

// And older version (v1.20.0) of zapcore.ParseLevel(levelStr string) (v1.27.0)
func getLevelFromString(levelStr string) (zapcore.Level, error) {
	switch levelStr {
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return -1, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

// DefaultZapConfig returns a sensible default Zap configuration
func DefaultZapConfig() ZapConfig {
	return ZapConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
}

// DefaultLogFile returns the log file path next to the running executable.
func DefaultLogFile(appName string) string {
	exe, err := os.Executable()
	if err != nil {
		return appName + ".log"
	}
	return filepath.Join(filepath.Dir(exe), appName+".log")
}
