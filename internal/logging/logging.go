// Package logging provides the levelled loggers used across SignLens.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelTrace Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// Package loggers. They write to stderr until Init is called.
var (
	Trace   = log.New(io.Discard, "TRACE: ", log.LstdFlags)
	Info    = log.New(os.Stderr, "INFO: ", log.LstdFlags)
	Warning = log.New(os.Stderr, "WARNING: ", log.LstdFlags)
	Error   = log.New(os.Stderr, "ERROR: ", log.LstdFlags|log.Lshortfile)
)

// ParseLevel converts a config string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return LevelTrace, nil
	case "", "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Init points every logger at out, silencing the ones below level.
func Init(out io.Writer, level Level) {
	set := func(l *log.Logger, lvl Level) {
		if lvl < level {
			l.SetOutput(io.Discard)
			return
		}
		l.SetOutput(out)
	}
	set(Trace, LevelTrace)
	set(Info, LevelInfo)
	set(Warning, LevelWarning)
	set(Error, LevelError)
}

// InitFile mirrors log output to stderr and the file at path.
// The returned closer releases the file.
func InitFile(path string, level Level) (io.Closer, error) {
	if path == "" {
		Init(os.Stderr, level)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	Init(io.MultiWriter(os.Stderr, f), level)
	return f, nil
}
