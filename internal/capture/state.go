package capture

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrBadIndex is returned for a device index outside [0, devices).
	ErrBadIndex = errors.New("device index out of range")
	// ErrClosed is returned for commands sent after shutdown.
	ErrClosed = errors.New("capture worker closed")
	// ErrUnknownCommand is returned for commands the machine does not model.
	ErrUnknownCommand = errors.New("unknown command")
)

// Mode is the preview mode of the capture worker.
type Mode int

// Modes.
const (
	ModeIdle Mode = iota
	ModePreviewAll
	ModePreviewOne
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePreviewAll:
		return "preview_all"
	case ModePreviewOne:
		return "preview_one"
	case ModeClosed:
		return "closed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is a mode plus the selected device, which is -1 outside preview-one.
type State struct {
	Mode     Mode
	Selected int
}

// Idle is the initial state.
var Idle = State{Mode: ModeIdle, Selected: -1}

// Streaming reports whether devices are being watched.
func (s State) Streaming() bool {
	return s.Mode == ModePreviewAll || s.Mode == ModePreviewOne
}

func (s State) String() string {
	if s.Mode == ModePreviewOne {
		return fmt.Sprintf("%s(%d)", s.Mode, s.Selected)
	}
	return s.Mode.String()
}

// EffectKind says what to do with a device's readiness registration.
type EffectKind int

// Effect kinds.
const (
	Unwatch EffectKind = iota
	Watch
)

func (k EffectKind) String() string {
	if k == Watch {
		return "watch"
	}
	return "unwatch"
}

// Effect is a registration change the worker must apply.
type Effect struct {
	Kind   EffectKind
	Device int
}

// Machine computes mode transitions for a fixed number of devices.
type Machine struct {
	Devices int
}

// Next returns the state after cmd and the registration changes that lead
// there. On error the state is returned unchanged with no effects.
func (m Machine) Next(s State, cmd Command) (State, []Effect, error) {
	if s.Mode == ModeClosed {
		return s, nil, ErrClosed
	}

	var next State
	switch c := cmd.(type) {
	case PreviewAll:
		next = State{Mode: ModePreviewAll, Selected: -1}
	case PreviewOne:
		if c.Index < 0 || c.Index >= m.Devices {
			return s, nil, fmt.Errorf("%w: %d (have %d devices)", ErrBadIndex, c.Index, m.Devices)
		}
		next = State{Mode: ModePreviewOne, Selected: c.Index}
	case Back:
		if s.Mode != ModePreviewOne {
			return s, nil, nil
		}
		next = State{Mode: ModePreviewAll, Selected: -1}
	case Shutdown:
		next = State{Mode: ModeClosed, Selected: -1}
	default:
		return s, nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	return next, m.diff(s, next), nil
}

// Watched lists the devices registered for readiness in state s.
func (m Machine) Watched(s State) []int {
	switch s.Mode {
	case ModePreviewAll:
		all := make([]int, m.Devices)
		for i := range all {
			all[i] = i
		}
		return all
	case ModePreviewOne:
		return []int{s.Selected}
	default:
		return nil
	}
}

// diff emits unwatches before watches, each in device order.
func (m Machine) diff(from, to State) []Effect {
	before := m.Watched(from)
	after := m.Watched(to)

	var effects []Effect
	for _, d := range before {
		if !slices.Contains(after, d) {
			effects = append(effects, Effect{Kind: Unwatch, Device: d})
		}
	}
	for _, d := range after {
		if !slices.Contains(before, d) {
			effects = append(effects, Effect{Kind: Watch, Device: d})
		}
	}
	return effects
}
