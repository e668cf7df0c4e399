package clio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelSuccess
	LevelWarning
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogFormat selects the prefix written before each message.
type LogFormat int

const (
	LogFormatSymbols LogFormat = iota // ● ◆ ✓ ▲ ✗
	LogFormatTagged                   // [DEBUG] [INFO] [SUCCESS] [WARN] [ERROR]
	LogFormatPlain                    // no prefix
)

var prefixes = map[LogFormat]map[LogLevel]string{
	LogFormatSymbols: {
		LevelDebug:   "●",
		LevelInfo:    "◆",
		LevelSuccess: "✓",
		LevelWarning: "▲",
		LevelError:   "✗",
	},
	LogFormatTagged: {
		LevelDebug:   "[DEBUG]",
		LevelInfo:    "[INFO]",
		LevelSuccess: "[SUCCESS]",
		LevelWarning: "[WARN]",
		LevelError:   "[ERROR]",
	},
	LogFormatPlain: {},
}

var levelColors = map[LogLevel][]color.Attribute{
	LevelDebug:   {color.FgMagenta},
	LevelInfo:    {color.FgBlue},
	LevelSuccess: {color.FgGreen},
	LevelWarning: {color.FgYellow},
	LevelError:   {color.FgRed, color.Bold},
}

// Logger writes leveled, optionally colored messages through an IOManager.
// Messages below the minimum level are dropped; the default minimum is
// LevelInfo, so Debug output appears only after WithLevel(LevelDebug).
type Logger struct {
	io           *IOManager
	format       LogFormat
	min          LogLevel
	withTime     bool
	timeFormat   string
	errorsStderr bool
}

// NewLogger creates a logger bound to m.
func NewLogger(m *IOManager) *Logger {
	return &Logger{
		io:           m,
		format:       LogFormatSymbols,
		min:          LevelInfo,
		timeFormat:   "15:04:05",
		errorsStderr: true,
	}
}

// WithFormat sets the message prefix style.
func (l *Logger) WithFormat(format LogFormat) *Logger {
	l.format = format
	return l
}

// WithLevel sets the minimum level written.
func (l *Logger) WithLevel(level LogLevel) *Logger {
	l.min = level
	return l
}

// WithTimestamp adds the current time after the prefix.
func (l *Logger) WithTimestamp(enabled bool) *Logger {
	l.withTime = enabled
	return l
}

// WithTimeFormat sets the timestamp layout.
func (l *Logger) WithTimeFormat(format string) *Logger {
	l.timeFormat = format
	return l
}

// ErrorsToStderr controls whether warnings and errors go to Err.
func (l *Logger) ErrorsToStderr(enabled bool) *Logger {
	l.errorsStderr = enabled
	return l
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && level >= l.min
}

// Log writes one message at level.
func (l *Logger) Log(level LogLevel, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	fmt.Fprintln(l.writer(level), l.render(level, fmt.Sprintf(format, args...)))
}

func (l *Logger) render(level LogLevel, msg string) string {
	if strings.TrimSpace(msg) == "" {
		return msg
	}
	var parts []string
	if p := prefixes[l.format][level]; p != "" {
		parts = append(parts, p)
	}
	if l.withTime {
		parts = append(parts, "["+time.Now().Format(l.timeFormat)+"]")
	}
	parts = append(parts, msg)
	return l.io.Paint(strings.Join(parts, " "), levelColors[level]...)
}

func (l *Logger) writer(level LogLevel) io.Writer {
	if l.errorsStderr && level >= LevelWarning {
		return l.io.Err()
	}
	return l.io.Out()
}

func (l *Logger) Debug(format string, args ...any)   { l.Log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)    { l.Log(LevelInfo, format, args...) }
func (l *Logger) Success(format string, args ...any) { l.Log(LevelSuccess, format, args...) }
func (l *Logger) Warning(format string, args ...any) { l.Log(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...any)   { l.Log(LevelError, format, args...) }
