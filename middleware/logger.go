package middleware

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dzonerzy/go-cmdline/internal/pool"
)

var requestInfoPool = pool.NewPoolWithReset(
	func() *RequestInfo {
		return &RequestInfo{Metadata: make(map[string]any, 4)}
	},
	func(info *RequestInfo) {
		info.Command = ""
		info.Args = info.Args[:0]
		info.StartTime = time.Time{}
		info.Duration = 0
		info.Error = nil
		clear(info.Metadata)
	},
)

// Logger reports each invocation on stderr, or stdout with LogOutputStdout.
func Logger(options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return LoggerWithWriter(outputWriter(config.LogOutput), options...)
}

// LoggerWithWriter reports each invocation on w.
func LoggerWithWriter(w io.Writer, options ...MiddlewareOption) Middleware {
	config := newConfig(options)

	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			if config.LogLevel == LogLevelNone || w == nil {
				return next(ctx)
			}

			info := requestInfoPool.Get()
			defer requestInfoPool.Put(info)

			info.Command = getCommandName(ctx)
			info.Args = append(info.Args, ctx.Args()...)
			info.StartTime = time.Now()
			logRequest(w, config, info, "START")

			err := next(ctx)

			info.Duration = time.Since(info.StartTime)
			info.Error = err
			level := "SUCCESS"
			if err != nil {
				level = "ERROR"
			}
			logRequest(w, config, info, level)
			return err
		}
	}
}

func outputWriter(output LogOutput) io.Writer {
	switch output {
	case LogOutputStdout:
		return os.Stdout
	case LogOutputNone:
		return nil
	}
	return os.Stderr
}

func shouldLog(configLevel LogLevel, level string) bool {
	switch level {
	case "ERROR":
		return configLevel >= LogLevelError
	case "START":
		return configLevel >= LogLevelDebug
	}
	return configLevel >= LogLevelInfo
}

func logRequest(w io.Writer, config *MiddlewareConfig, info *RequestInfo, level string) {
	if !shouldLog(config.LogLevel, level) {
		return
	}
	if config.LogFormat == LogFormatJSON {
		writeJSONLog(w, info, level, config)
		return
	}
	writeTextLog(w, info, level, config)
}

func writeTextLog(w io.Writer, info *RequestInfo, level string, config *MiddlewareConfig) {
	buf := pool.GetBuffer(256)
	defer pool.PutBuffer(buf)

	b := append(*buf, '[')
	b = info.StartTime.AppendFormat(b, "2006-01-02 15:04:05")
	b = append(b, "] "...)
	b = append(b, level...)
	b = append(b, " command="...)
	b = append(b, info.Command...)
	if info.Duration > 0 {
		b = append(b, " duration="...)
		b = append(b, info.Duration.String()...)
	}
	if config.IncludeArgs && len(info.Args) > 0 {
		b = append(b, " args="...)
		for i, arg := range info.Args {
			if i > 0 {
				b = append(b, ' ')
			}
			b = append(b, arg...)
		}
	}
	if info.Error != nil {
		b = append(b, " error="...)
		b = strconv.AppendQuote(b, info.Error.Error())
	}
	b = append(b, '\n')
	*buf = b

	//nolint:errcheck // best-effort logging
	w.Write(b)
}

func writeJSONLog(w io.Writer, info *RequestInfo, level string, config *MiddlewareConfig) {
	buf := pool.GetBuffer(512)
	defer pool.PutBuffer(buf)

	b := append(*buf, `{"timestamp":"`...)
	b = info.StartTime.AppendFormat(b, time.RFC3339)
	b = append(b, `","level":"`...)
	b = append(b, level...)
	b = append(b, `","command":`...)
	b = appendJSON(b, info.Command)
	if info.Duration > 0 {
		b = append(b, `,"duration_ms":`...)
		b = strconv.AppendInt(b, info.Duration.Milliseconds(), 10)
	}
	if config.IncludeArgs && len(info.Args) > 0 {
		b = append(b, `,"args":`...)
		b = appendJSON(b, info.Args)
	}
	if info.Error != nil {
		b = append(b, `,"error":`...)
		b = appendJSON(b, info.Error.Error())
	}
	if len(info.Metadata) > 0 {
		b = append(b, `,"metadata":`...)
		b = appendJSON(b, info.Metadata)
	}
	b = append(b, "}\n"...)
	*buf = b

	//nolint:errcheck // best-effort logging
	w.Write(b)
}

func appendJSON(b []byte, v any) []byte {
	enc, err := json.Marshal(v)
	if err != nil {
		return append(b, "null"...)
	}
	return append(b, enc...)
}

// DebugLogger logs invocation starts as well as results.
func DebugLogger() Middleware { return Logger(WithLogLevel(LogLevelDebug)) }

// ErrorLogger logs failed invocations only.
func ErrorLogger() Middleware { return Logger(WithLogLevel(LogLevelError)) }

// JSONLogger logs one JSON object per line.
func JSONLogger() Middleware { return Logger(WithLogFormat(LogFormatJSON)) }

// SilentLogger logs nothing.
func SilentLogger() Middleware {
	return Logger(func(config *MiddlewareConfig) { config.LogOutput = LogOutputNone })
}
