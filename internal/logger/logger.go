package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/rs/zerolog"
)

var (
	log zerolog.Logger = zerolog.Nop()
	mu  sync.RWMutex
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// Logger is the leveled logging surface handed to components.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger based on the given configuration
func Init(level LogLevel, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	InitWithWriter(output, level)
}

// InitWithWriter initializes the logger with a custom writer.
func InitWithWriter(w io.Writer, level LogLevel) {
	mu.Lock()
	log = zerolog.New(w).With().Timestamp().Logger()
	mu.Unlock()

	SetLogLevel(level)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// ParseLevel maps a config/flag string to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, s)
	}
}

// IsService reports whether stdin is detached, e.g. when started by the launcher
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}

	return os.Getenv("WTHUD_CHILD") != ""
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a debug message
func Debug() *LogEvent {
	l := current()
	return &LogEvent{l.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	l := current()
	return &LogEvent{l.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	l := current()
	return &LogEvent{l.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	l := current()
	return &LogEvent{l.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	l := current()
	return withCode(l.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	l := current()
	return &LogEvent{l.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	l := current()
	return withCode(l.Fatal(), err)
}

func withCode(ev *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{ev.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

type componentLogger struct {
	name string
}

// With returns a Logger that tags every event with the component name.
func With(component string) Logger {
	return &componentLogger{name: component}
}

func (c *componentLogger) Debug() *LogEvent {
	return &LogEvent{Debug().Str("component", c.name)}
}

func (c *componentLogger) Info() *LogEvent {
	return &LogEvent{Info().Str("component", c.name)}
}

func (c *componentLogger) Warn() *LogEvent {
	return &LogEvent{Warn().Str("component", c.name)}
}

func (c *componentLogger) Error() *LogEvent {
	return &LogEvent{Error().Str("component", c.name)}
}

func (c *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{ErrorWithCode(err).Str("component", c.name)}
}
