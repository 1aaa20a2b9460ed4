package logging

import (
	"context"
	"log/slog"
	"slices"
)

// scope is the WithAttrs/WithGroup state shared by the ring buffer and
// journal handlers. attrs are stored already qualified by the groups that
// were open when they were added.
type scope struct {
	level  slog.Leveler
	attrs  []qualifiedAttr
	groups []string
}

type qualifiedAttr struct {
	path []string // open groups, outermost first
	attr slog.Attr
}

func (s scope) enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	next := s
	next.attrs = slices.Clip(s.attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, qualifiedAttr{path: s.groups, attr: a})
	}
	return next
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	next := s
	next.groups = append(slices.Clip(s.groups), name)
	return next
}

// walk visits every leaf attribute of the handler scope and the record, with
// its full group path. Group values are descended; empty attrs are skipped.
// module is reported separately and never visited.
func (s scope) walk(r slog.Record, visit func(path []string, key string, v slog.Value)) (module string) {
	module = "app"
	var leaf func(path []string, a slog.Attr)
	leaf = func(path []string, a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		if a.Key == "module" && len(path) == 0 {
			module = a.Value.String()
			return
		}
		if a.Value.Kind() == slog.KindGroup {
			inner := path
			if a.Key != "" {
				inner = append(slices.Clip(path), a.Key)
			}
			for _, ga := range a.Value.Group() {
				leaf(inner, ga)
			}
			return
		}
		visit(path, a.Key, a.Value)
	}

	for _, qa := range s.attrs {
		leaf(qa.path, qa.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		leaf(s.groups, a)
		return true
	})
	return module
}

// levelName converts slog.Level to the lowercase names used in entries.
func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
