// Package logger holds the process-wide zap logger.
//
// The TUI owns the terminal, so logs go to a file under the data directory
// unless a sink is configured explicitly.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger. It is a no-op logger until Init is called.
var Log = zap.NewNop()

var (
	mu      sync.Mutex
	logFile *os.File
)

// Options configure Init.
type Options struct {
	// Level is one of debug, info, warn, error. Empty falls back to
	// HARK_LOG_LEVEL and then info.
	Level string
	// Path is the log file. "-" logs to stderr. Empty disables logging.
	Path string
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init replaces Log according to opts.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	level := opts.Level
	if level == "" {
		level = os.Getenv("HARK_LOG_LEVEL")
	}

	if opts.Path == "" {
		Log = zap.NewNop()
		return nil
	}

	var sink zapcore.WriteSyncer
	if opts.Path == "-" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", opts.Path, err)
		}
		closeFileLocked()
		logFile = f
		sink = zapcore.AddSync(f)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, ParseLevel(level))
	Log = zap.New(core, zap.AddCaller())
	return nil
}

// Named returns a child of Log for a component.
func Named(name string) *zap.Logger {
	return Log.Named(name)
}

// Close flushes the logger and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = Log.Sync()
	closeFileLocked()
}

func closeFileLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }

func Debugf(format string, args ...any) {
	Log.Debug(fmt.Sprintf(format, args...))
}
