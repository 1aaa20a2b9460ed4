//go:build linux

// Package hotplug reports kernel device events read from the uevent netlink
// socket, without cgo or libudev.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

// Actions the kernel reports.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// SubsystemVideo4Linux is the subsystem of /dev/videoN nodes.
const SubsystemVideo4Linux = "video4linux"

// pollTimeoutMs bounds how long Run goes without checking its context.
const pollTimeoutMs = 250

// Event is one kernel uevent.
type Event struct {
	Action    string
	SysPath   string // kernel object path, /devices/...
	Subsystem string
	DevName   string // node name relative to /dev, e.g. video0
	Env       map[string]string
}

// Node returns the device node path, or "" for events without one.
func (e Event) Node() string {
	if e.DevName == "" {
		return ""
	}
	return "/dev/" + e.DevName
}

// Monitor reads uevents from the kernel broadcast group.
type Monitor struct {
	fd         int
	subsystems map[string]bool
}

// NewMonitor opens the netlink socket. With no subsystems every event is
// reported; otherwise only events of the listed subsystems.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, err
	}

	m := &Monitor{fd: fd, subsystems: make(map[string]bool, len(subsystems))}
	for _, s := range subsystems {
		m.subsystems[s] = true
	}
	return m, nil
}

// Close releases the socket. Call it after Run has returned.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run calls fn for every matching event until ctx is done or the socket fails.
func (m *Monitor) Run(ctx context.Context, fn func(Event)) error {
	buf := make([]byte, 16<<10)
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}

		for {
			size, _, err := unix.Recvfrom(m.fd, buf, 0)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				break
			}
			if errors.Is(err, unix.ENOBUFS) {
				// receive queue overflowed; later events are still valid
				break
			}
			if err != nil {
				return err
			}
			ev, ok := ParseUEvent(buf[:size])
			if !ok || (len(m.subsystems) > 0 && !m.subsystems[ev.Subsystem]) {
				continue
			}
			fn(ev)
		}
	}
}

// ParseUEvent decodes "ACTION@SYSPATH\0KEY=VALUE\0...". Messages that do not
// start with an action are rejected, which also drops libudev's rebroadcasts.
func ParseUEvent(data []byte) (Event, bool) {
	fields := bytes.Split(data, []byte{0})
	action, syspath, ok := strings.Cut(string(fields[0]), "@")
	if !ok || action == "" || strings.ContainsAny(action, "/ ") {
		return Event{}, false
	}

	ev := Event{Action: action, SysPath: syspath, Env: make(map[string]string, len(fields)-1)}
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(string(f), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		}
	}
	return ev, true
}
