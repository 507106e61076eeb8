// Package log wraps zerolog into the small, leveled interface the MERCAT CLI
// actually calls: Init to configure the global logger once at startup, and
// Infow/Warnw/Fatalf for structured, key-value log lines.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	RFC3339Milli = "2006-01-02T15:04:05.000Z07:00" // like time.RFC3339Nano but with 3 fixed-width decimals
)

var (
	log   zerolog.Logger
	logMu sync.RWMutex
)

func getLogger() zerolog.Logger {
	logMu.RLock()
	logger := log
	logMu.RUnlock()
	return logger
}

func setLogger(logger zerolog.Logger) {
	logMu.Lock()
	log = logger
	logMu.Unlock()
}

// Logger provides access to the global logger (zerolog).
func Logger() *zerolog.Logger {
	logger := getLogger()
	return &logger
}

type errorLevelWriter struct {
	io.Writer
}

var _ zerolog.LevelWriter = &errorLevelWriter{}

func (*errorLevelWriter) Write(_ []byte) (int, error) {
	panic("should be calling WriteLevel")
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// Init configures the global logger: level is one of the LogLevel*
// constants, output is "stdout", "stderr", or a file path, and errorOutput,
// when non-nil, additionally receives a copy of every warn-and-above record.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	outputs := []io.Writer{}
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
		if strings.HasSuffix(output, ".json") {
			outputs = append(outputs, f)
			out = os.Stdout
		}
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: RFC3339Milli,
	}
	outputs = append(outputs, out)

	if errorOutput != nil {
		outputs = append(outputs, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: RFC3339Milli,
			NoColor:    true, // error log files should not be colored
		}})
	}
	if len(outputs) > 1 {
		out = zerolog.MultiLevelWriter(outputs...)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	// Include caller, increasing SkipFrameCount to account for this log package wrapper
	logger = logger.With().Caller().Logger()
	zerolog.CallerSkipFrameCount = 3
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}

	switch level {
	case LogLevelDebug:
		logger = logger.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		logger = logger.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		logger = logger.Level(zerolog.WarnLevel)
	case LogLevelError:
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}

	setLogger(logger)
	logger.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Fatalf sends a formatted fatal level log message and exits the process.
func Fatalf(template string, args ...any) {
	Logger().Fatal().Msgf(template+"\n"+string(debug.Stack()), args...)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	Logger().Info().Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	Logger().Warn().Fields(keyvalues).Msg(msg)
}
