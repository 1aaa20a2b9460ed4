package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Identifier is the syslog identifier used for journal entries.
const Identifier = "camwall"

// Logger is the subset of *slog.Logger that leaf packages depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

type registry struct {
	mu         sync.RWMutex
	config     Config
	configured bool
	modules    map[string]*moduleLogger
	root       slog.LevelVar
	buffer     *RingBuffer
	onEntry    LogCallback
}

func newRegistry() *registry {
	return &registry{
		modules: make(map[string]*moduleLogger),
		buffer:  NewRingBuffer(defaultBufferSize),
	}
}

var std = newRegistry()

// levelFor resolves the level for module: module override, then global, then info.
func (r *registry) levelFor(module string) slog.Level {
	level, ok := ParseLevel(r.config.Level)
	if !ok {
		level = slog.LevelInfo
	}
	if override, ok := ParseLevel(r.config.Modules[module]); ok {
		level = override
	}
	return level
}

func (r *registry) format() string {
	if !r.configured || r.config.Format == "" {
		return "text"
	}
	return r.config.Format
}

// build must be called with mu held.
func (r *registry) build(module string, level *slog.LevelVar) *slog.Logger {
	return slog.New(newHandler(r.format(), level)).With("module", module)
}

// Initialize sets up the logging system. Loggers handed out earlier keep
// their level var and are rebuilt with the configured format.
func Initialize(config Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.config = config
	std.configured = true
	std.root.Set(std.levelFor(""))
	for name, m := range std.modules {
		m.level.Set(std.levelFor(name))
		m.logger = std.build(name, m.level)
	}
	slog.SetDefault(slog.New(newHandler(std.format(), &std.root)))
}

// SetLevels applies new global and per-module levels in place. The output
// format stays what Initialize chose.
func SetLevels(config Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.config.Level = config.Level
	std.config.Modules = config.Modules
	std.root.Set(std.levelFor(""))
	for name, m := range std.modules {
		m.level.Set(std.levelFor(name))
	}
}

// ModuleLevel returns the effective level of a module.
func ModuleLevel(module string) slog.Level {
	std.mu.RLock()
	defer std.mu.RUnlock()

	if m, ok := std.modules[module]; ok {
		return m.level.Level()
	}
	return std.levelFor(module)
}

// GetBuffer returns the in-memory history served by the API.
func GetBuffer() *RingBuffer {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.buffer
}

// SetLogCallback registers fn to run for every buffered entry. Pass nil to
// remove it.
func SetLogCallback(fn LogCallback) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.onEntry = fn
}

func currentCallback() LogCallback {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.onEntry
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	std.mu.RLock()
	m, ok := std.modules[module]
	std.mu.RUnlock()
	if ok {
		return m.logger
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if m, ok := std.modules[module]; ok {
		return m.logger
	}

	m = &moduleLogger{level: &slog.LevelVar{}}
	m.level.Set(std.levelFor(module))
	m.logger = std.build(module, m.level)
	std.modules[module] = m
	return m.logger
}

// newHandler fans out to stdout, the journal when present, and the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	handlers := make([]slog.Handler, 0, 3)
	if stdoutUsable() {
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutUsable is false when stdout was closed, as under some service managers.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// ParseLevel maps a level name to its slog level. "warning" is accepted
// for warn.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
