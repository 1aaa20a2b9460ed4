package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/camwall/internal/events"
)

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

type mockController struct {
	mu    sync.Mutex
	calls []setCall
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string { return []string{"system"} }
func (m *mockController) Patterns() []string  { return []string{"solid", "blink"} }

func (m *mockController) last() (setCall, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return setCall{}, 0
	}
	return m.calls[len(m.calls)-1], len(m.calls)
}

func waitForCall(t *testing.T, ctrl *mockController, want setCall) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		got, _ := ctrl.last()
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("last Set() = %+v, want %+v", got, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestManagerFollowsMode(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, "system", bus, testLogger())
	mgr.Start()

	waitForCall(t, ctrl, setCall{"system", true, "blink"})

	bus.Publish(events.ModeChangedEvent{Mode: "preview_all", Selected: -1, Previous: "idle"})
	waitForCall(t, ctrl, setCall{"system", true, "solid"})

	bus.Publish(events.WorkerExitedEvent{Worker: "capture"})
	waitForCall(t, ctrl, setCall{"system", false, "solid"})

	_, n := ctrl.last()
	mgr.Stop()
	// already off, Stop does not repeat it
	if _, after := ctrl.last(); after != n {
		t.Errorf("Stop() issued %d extra calls", after-n)
	}
}

func TestManagerSkipsRepeatedMode(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, "act", events.New(), testLogger())
	mgr.apply("preview_all")
	mgr.apply("preview_all")
	if _, n := ctrl.last(); n != 1 {
		t.Errorf("got %d Set() calls, want 1", n)
	}
}

func TestSysfsSet(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sys_led"), 0o755); err != nil {
		t.Fatal(err)
	}
	ctrl := newSysfs(root, map[string]string{"system": "sys_led"})

	tests := []struct {
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{true, "blink", "timer", "1"},
		{true, "solid", "none", "1"},
		{false, "", "none", "0"},
		{true, "mmc0", "mmc0", "1"},
	}
	for _, tt := range tests {
		if err := ctrl.Set("system", tt.enabled, tt.pattern); err != nil {
			t.Fatalf("Set(%v, %q) error = %v", tt.enabled, tt.pattern, err)
		}
		trigger, _ := os.ReadFile(filepath.Join(root, "sys_led", "trigger"))
		brightness, _ := os.ReadFile(filepath.Join(root, "sys_led", "brightness"))
		if string(trigger) != tt.wantTrigger || string(brightness) != tt.wantBrightness {
			t.Errorf("Set(%v, %q): trigger=%q brightness=%q, want %q %q",
				tt.enabled, tt.pattern, trigger, brightness, tt.wantTrigger, tt.wantBrightness)
		}
	}

	if err := ctrl.Set("user", true, ""); err == nil {
		t.Error("Set() of unknown LED type should fail")
	}
	missing := newSysfs(root, map[string]string{"user": "usr_led"})
	if err := missing.Set("user", true, ""); err == nil {
		t.Error("Set() of LED without sysfs entry should fail")
	}
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model      string
		wantStatus string
		wantLEDs   int
	}{
		{"FriendlyElec NanoPC-T6", "system", 2},
		{"Orange Pi 5 Plus", "green", 2},
		{"Raspberry Pi 5 Model B Rev 1.0", "act", 1},
		{"unknown", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl, status := forModel(tt.model, t.TempDir(), testLogger())
			if status != tt.wantStatus {
				t.Errorf("status LED = %q, want %q", status, tt.wantStatus)
			}
			if got := len(ctrl.Available()); got != tt.wantLEDs {
				t.Errorf("Available() has %d entries, want %d", got, tt.wantLEDs)
			}
		})
	}
}
