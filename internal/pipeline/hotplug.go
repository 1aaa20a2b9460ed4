//go:build linux

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/pkg/linuxav/hotplug"
)

type pathDevice interface {
	Path() string
}

func (p *Pipeline) deviceIndex(node string) int {
	for i, dev := range p.devices {
		if pd, ok := dev.(pathDevice); ok && pd.Path() == node {
			return i
		}
	}
	return -1
}

// HandleHotplug logs and publishes video node add and remove events. The
// removal of a node in use is logged as a warning; the capture worker stops
// on its own once the driver fails the next dequeue.
func (p *Pipeline) HandleHotplug(ev hotplug.Event) {
	if ev.Subsystem != hotplug.SubsystemVideo4Linux || ev.Node() == "" {
		return
	}
	if ev.Action != hotplug.ActionAdd && ev.Action != hotplug.ActionRemove {
		return
	}

	idx := p.deviceIndex(ev.Node())
	if ev.Action == hotplug.ActionRemove && idx >= 0 {
		p.logger.Warn("Capture device removed", "device", idx, "node", ev.Node())
	} else {
		p.logger.Info("Video node "+ev.Action, "node", ev.Node())
	}

	if p.bus != nil {
		p.bus.Publish(events.DeviceHotplugEvent{
			Action:    ev.Action,
			Node:      ev.Node(),
			Device:    idx,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// WatchHotplug feeds kernel video4linux events to HandleHotplug until ctx is done.
func (p *Pipeline) WatchHotplug(ctx context.Context) error {
	m, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Run(ctx, p.HandleHotplug)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
