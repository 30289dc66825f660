// Package logging wires decred/slog subsystem loggers to stdout and a
// rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	// LogFile is the path of the rotated log file. Empty disables file
	// logging.
	LogFile string
	// DebugLevel is either a single level for every subsystem or a comma
	// separated list of SUBSYS=level pairs, optionally led by a default
	// level ("info,TBLE=debug").
	DebugLevel  string
	MaxLogFiles int
	// Stdout mirrors everything written to the log file. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// LogBackend hands out subsystem loggers that share one writer.
type LogBackend struct {
	backend      *slog.Backend
	rotator      *rotator.Rotator
	defaultLevel slog.Level
	levels       map[string]slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

type logWriter struct {
	stdout  io.Writer
	rotator *rotator.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.stdout != nil {
		w.stdout.Write(p)
	}
	if w.rotator != nil {
		w.rotator.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates the backend described by cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	defaultLevel, levels, err := parseDebugLevel(cfg.DebugLevel)
	if err != nil {
		return nil, err
	}

	lb := &LogBackend{
		defaultLevel: defaultLevel,
		levels:       levels,
		loggers:      make(map[string]slog.Logger),
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		r, err := rotator.New(cfg.LogFile, 10*1024, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %v", err)
		}
		lb.rotator = r
	}

	lb.backend = slog.NewBackend(logWriter{stdout: stdout, rotator: lb.rotator})
	return lb, nil
}

// Logger returns the logger for subsystem, creating it on first use.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	level, ok := lb.levels[subsystem]
	if !ok {
		level = lb.defaultLevel
	}
	l.SetLevel(level)
	lb.loggers[subsystem] = l
	return l
}

// Close flushes and closes the log file.
func (lb *LogBackend) Close() error {
	if lb.rotator != nil {
		return lb.rotator.Close()
	}
	return nil
}

func parseDebugLevel(s string) (slog.Level, map[string]slog.Level, error) {
	defaultLevel := slog.LevelInfo
	levels := make(map[string]slog.Level)
	if s == "" {
		return defaultLevel, levels, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		subsys, lvl, found := strings.Cut(part, "=")
		if !found {
			level, ok := slog.LevelFromString(part)
			if !ok {
				return 0, nil, fmt.Errorf("invalid debug level %q", part)
			}
			defaultLevel = level
			continue
		}
		level, ok := slog.LevelFromString(lvl)
		if !ok {
			return 0, nil, fmt.Errorf("invalid debug level %q for subsystem %s", lvl, subsys)
		}
		levels[strings.ToUpper(subsys)] = level
	}
	return defaultLevel, levels, nil
}
