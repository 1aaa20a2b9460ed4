package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// LogCallback receives every entry after it is stored.
type LogCallback func(entry LogEntry)

// BufferHandler is a slog.Handler that records entries in the shared ring
// buffer and forwards them to the registered LogCallback. Attributes are
// flattened with dot-joined group keys.
type BufferHandler struct {
	scope scope
}

// NewBufferHandler creates a handler writing to the package ring buffer.
// The buffer and callback are looked up per record so handlers created
// before SetLogCallback still publish.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{scope: scope{level: level}}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.scope.enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	module := h.scope.walk(r, func(path []string, key string, v slog.Value) {
		attrs[strings.Join(append(slices.Clip(path), key), ".")] = entryValue(v)
	})

	entry := GetBuffer().Write(LogEntry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     module,
		Message:    r.Message,
		Attributes: attrs,
	})
	if callback := currentCallback(); callback != nil {
		callback(entry)
	}
	return nil
}

// entryValue converts v to something that survives JSON encoding.
func entryValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		default:
			return x
		}
	default:
		return v.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{scope: h.scope.withAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{scope: h.scope.withGroup(name)}
}

// FormatLogLine formats an entry the way the console prints it:
// "15:04:05.000 INFO  [capture] message key=value ...".
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s [%s] %s",
		entry.Timestamp.Format("15:04:05.000"), strings.ToUpper(entry.Level), entry.Module, entry.Message)

	keys := make([]string, 0, len(entry.Attributes))
	for k := range entry.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
