package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the name of the active log file inside Config.Path.
const LogFileName = "vidsrc-addon.log"

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
	buffer  *LogBuffer
	path    string
}

// Config holds logger configuration.
type Config struct {
	Level      string
	Format     string // "console" or "json"
	Path       string // directory for log files, empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	BufferSize int // entries kept in memory for the logs endpoint
}

// IsDevBuild reports whether the binary was started with "go run".
func IsDevBuild() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	return strings.Contains(exe, "go-build")
}

// New creates a new logger instance.
// Dev builds log at debug level unless trace is configured.
func New(cfg Config) *Logger {
	var consoleOutput io.Writer
	if cfg.Format == "json" {
		consoleOutput = os.Stdout
	} else {
		consoleOutput = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLevel(cfg.Level)
	if IsDevBuild() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	buffer := NewLogBuffer(cfg.BufferSize)
	writers := []io.Writer{consoleOutput, buffer}

	var rotator *lumberjack.Logger
	var logPath string
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err == nil {
			logPath = filepath.Join(cfg.Path, LogFileName)
			rotator = &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    positiveOr(cfg.MaxSizeMB, 10),
				MaxBackups: positiveOr(cfg.MaxBackups, 5),
				MaxAge:     positiveOr(cfg.MaxAgeDays, 30),
				Compress:   cfg.Compress,
				LocalTime:  true,
			}
			writers = append(writers, rotator)
		}
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger, rotator: rotator, buffer: buffer, path: logPath}
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// GetRecentLogs returns the buffered log entries, oldest first.
func (l *Logger) GetRecentLogs() []LogEntry {
	if l.buffer == nil {
		return nil
	}
	return l.buffer.GetRecentLogs()
}

// GetLogFilePath returns the active log file, or "" when logging to stdout only.
func (l *Logger) GetLogFilePath() string {
	return l.path
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child zerolog logger tagged with component.
func (l *Logger) WithComponent(component string) zerolog.Logger {
	return l.Logger.With().Str("component", component).Logger()
}
