package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseZerologLevel maps a config log level onto zerolog, defaulting to info.
func ParseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the component logger used by adapters and handlers.
// Console output goes to file when given (without colors) and to stdout
// otherwise; graylog, when non-nil, receives raw JSON lines. ctx, when
// non-nil, adds live runtime attributes to every event.
func NewZerolog(level string, file, graylog io.Writer, ctx ContextProvider) zerolog.Logger {
	var writers []io.Writer

	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        stdout,
			TimeFormat: time.RFC3339,
		})
	}
	if graylog != nil {
		writers = append(writers, graylog)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseZerologLevel(level)).
		With().Timestamp().Logger()

	if ctx != nil {
		logger = logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			for _, a := range ctx() {
				e.Interface(a.Key, a.Value.Any())
			}
		}))
	}

	return logger
}
