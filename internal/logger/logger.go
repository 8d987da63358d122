package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across the tool.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Ensure zapLogger satisfies Logger.
var _ Logger = (*zapLogger)(nil)

// Debug logs at DebugLevel. keysAndValues are alternating key/value pairs.
func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at InfoLevel.
func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at WarnLevel.
func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at ErrorLevel.
func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// globalSugar holds the SugaredLogger for global use.
var globalSugar *zap.SugaredLogger

// Init creates the run logger: a colored console core plus a plain-text
// core appending to backup_<YYYYMMDD>.log under logDir. An empty logDir
// means console only. If the log directory cannot be created, logging
// degrades to console only with a warning instead of failing the run.
func Init(logDir string) (Logger, error) {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			zap.InfoLevel,
		),
	}

	var fileErr error
	if logDir != "" {
		file, err := openDailyFile(logDir)
		if err != nil {
			fileErr = err
		} else {
			fileCfg := zap.NewDevelopmentEncoderConfig()
			fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			cores = append(cores, zapcore.NewCore(
				zapcore.NewConsoleEncoder(fileCfg),
				zapcore.Lock(zapcore.AddSync(file)),
				zap.InfoLevel,
			))
		}
	}

	zapLog := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	sugar := zapLog.Sugar()
	globalSugar = sugar

	log := &zapLogger{sugar: sugar}
	if fileErr != nil {
		log.Warn("log directory unavailable, console logging only",
			"dir", logDir,
			"error", fileErr.Error(),
		)
	}
	return log, nil
}

// openDailyFile opens (appending) the daily log file under logDir,
// creating the directory if needed.
func openDailyFile(logDir string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %q: %w", logDir, err)
	}
	name := fmt.Sprintf("backup_%s.log", time.Now().Format("20060102"))
	file, err := os.OpenFile(
		filepath.Join(logDir, name),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", name, err)
	}
	return file, nil
}

// Cleanup flushes any buffered log entries. Call at program exit.
func Cleanup() {
	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
}

// Global returns the Logger created by the last Init call. It falls back
// to a console-only logger when Init has not run yet.
func Global() Logger {
	if globalSugar == nil {
		log, _ := Init("")
		return log
	}
	return &zapLogger{sugar: globalSugar}
}
