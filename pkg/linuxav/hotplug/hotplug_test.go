//go:build linux

package hotplug

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   Event
	}{
		{name: "empty", input: ""},
		{name: "no separator", input: "invalid"},
		{name: "missing action", input: "@/devices/foo"},
		{name: "libudev header", input: "libudev\x00\xfe\xed/devices/x"},
		{
			name:   "video add",
			input:  "add@/devices/platform/fdee0000.hdmirx/video4linux/video0\x00ACTION=add\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00",
			wantOK: true,
			want: Event{
				Action:    "add",
				SysPath:   "/devices/platform/fdee0000.hdmirx/video4linux/video0",
				Subsystem: "video4linux",
				DevName:   "video0",
			},
		},
		{
			name:   "usb remove without node",
			input:  "remove@/devices/usb/1-1\x00SUBSYSTEM=usb\x00PRODUCT=1234/5678/0100\x00",
			wantOK: true,
			want:   Event{Action: "remove", SysPath: "/devices/usb/1-1", Subsystem: "usb"},
		},
		{
			name:   "empty values and trailing nulls",
			input:  "change@/devices/test\x00KEY=\x00=skipped\x00SUBSYSTEM=video4linux\x00\x00\x00",
			wantOK: true,
			want:   Event{Action: "change", SysPath: "/devices/test", Subsystem: "video4linux"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUEvent([]byte(tt.input))
			if ok != tt.wantOK {
				t.Fatalf("ParseUEvent() ok = %v, want %v (%+v)", ok, tt.wantOK, got)
			}
			if !ok {
				return
			}
			if got.Action != tt.want.Action || got.SysPath != tt.want.SysPath ||
				got.Subsystem != tt.want.Subsystem || got.DevName != tt.want.DevName {
				t.Errorf("ParseUEvent() = %+v, want %+v", got, tt.want)
			}
			if sub := got.Env["SUBSYSTEM"]; sub != got.Subsystem {
				t.Errorf("Env[SUBSYSTEM] = %q, Subsystem = %q", sub, got.Subsystem)
			}
		})
	}
}

func TestEventNode(t *testing.T) {
	if got := (Event{DevName: "video2"}).Node(); got != "/dev/video2" {
		t.Errorf("Node() = %q", got)
	}
	if got := (Event{}).Node(); got != "" {
		t.Errorf("Node() of nodeless event = %q", got)
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m, err := NewMonitor(SubsystemVideo4Linux)
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, func(Event) {}) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
