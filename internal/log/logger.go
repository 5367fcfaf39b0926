// Package log is a small leveled logging facade over zerolog. The level is
// global and checked before formatting, so disabled calls cost one atomic
// load.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levels = [...]struct {
	name string
	zl   zerolog.Level
}{
	LevelDebug: {"DEBUG", zerolog.DebugLevel},
	LevelInfo:  {"INFO", zerolog.InfoLevel},
	LevelWarn:  {"WARN", zerolog.WarnLevel},
	LevelError: {"ERROR", zerolog.ErrorLevel},
	LevelFatal: {"FATAL", zerolog.FatalLevel},
}

func (l LogLevel) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name, in any case, to a LogLevel. "warning"
// is accepted for warn. Unknown names give LevelInfo and false.
func ParseLevel(levelStr string) (LogLevel, bool) {
	name := strings.ToUpper(levelStr)
	if name == "WARNING" {
		name = "WARN"
	}
	for l, lv := range levels {
		if lv.name == name {
			return LogLevel(l), true
		}
	}
	return LevelInfo, false
}

var (
	currentLevel atomic.Uint32

	mu     sync.RWMutex
	logger = newLogger(os.Stderr)

	// exit is replaced in tests.
	exit = os.Exit
)

func init() {
	SetLevel(LevelInfo)
}

// Stdout carries the rendered spectrum; logs go to stderr.
func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) { currentLevel.Store(uint32(level)) }

// GetLevel returns the global logging level.
func GetLevel() LogLevel { return LogLevel(currentLevel.Load()) }

func logf(level LogLevel, format string, v []any) {
	if level < GetLevel() && level != LevelFatal {
		return
	}
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithLevel(levels[level].zl).Msg(fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(LevelDebug, format, v) }

func Infof(format string, v ...any) { logf(LevelInfo, format, v) }

func Warnf(format string, v ...any) { logf(LevelWarn, format, v) }

func Errorf(format string, v ...any) { logf(LevelError, format, v) }

// Fatalf logs at any level and exits with status 1.
func Fatalf(format string, v ...any) {
	logf(LevelFatal, format, v)
	exit(1)
}
