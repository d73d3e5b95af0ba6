// Package logging configures the process-wide zerolog logger.
//
// JSON output is the default; set format "console" for human-readable
// development output. Init is called once from main before anything logs.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger("info", "json", os.Stderr)
}

// Init applies the configured level and format. Unknown levels fall back to
// info rather than failing boot.
func Init(level, format string) {
	initLogger(level, format, os.Stderr)
}

// InitWriter is Init with an explicit output writer, used by tests.
func InitWriter(level, format string, w io.Writer) {
	initLogger(level, format, w)
}

func initLogger(level, format string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Logger returns the configured logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }
