// Package log wraps zerolog with the console format used by every c4 command.
package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Only the first stack line ("goroutine 123 [running]:") is needed.
	minStackBufSize = 32
	// Shortest stack prefix that can still carry a goroutine id.
	minStackTraceLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10

	timeFormat = "15:04:05"
	unknownID  = "unknown"
)

var (
	Logger zerolog.Logger

	// output and runID are what Logger was last built from.
	output io.Writer = os.Stderr
	runID  string

	stackPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, minStackBufSize)
		},
	}
)

func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return unknownID
	}
	defer stackPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	if n < minStackTraceLen || goroutinePrefixLen >= n {
		return unknownID
	}

	end := goroutinePrefixLen
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == goroutinePrefixLen {
		return unknownID
	}
	return string(buf[goroutinePrefixLen:end])
}

func goidHook() zerolog.Hook {
	return zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
		e.Str("goid", goroutineID())
	})
}

// New builds a logger writing console-formatted events to out.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat, NoColor: out != os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(goidHook())
}

func init() {
	rebuild(zerolog.InfoLevel)
}

// rebuild replaces Logger with a fresh one from output, level and runID.
func rebuild(level zerolog.Level) {
	logger := New(output, level)
	if runID != "" {
		logger = logger.With().Str("run", runID).Logger()
	}
	Logger = logger
	log.Logger = Logger
}

// Info starts an info-level event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error starts an error-level event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal starts a fatal event; sending it exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	rebuild(zerolog.DebugLevel)
}

// SetOutput redirects log output, keeping the current level and run id.
func SetOutput(out io.Writer) {
	output = out
	rebuild(Logger.GetLevel())
}

// WithRun stamps every subsequent event with the given run id, replacing any
// earlier one. An empty id removes the field. Call it before goroutines log.
func WithRun(id string) {
	runID = id
	rebuild(Logger.GetLevel())
}
