package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeviceCounters(t *testing.T) {
	Reset()

	RecordDequeue(0)
	RecordDequeue(0)
	RecordDequeue(1)
	RecordRequeue(0)
	RecordUpload(0)

	s := GetDeviceStats(0)
	if s == nil {
		t.Fatal("no stats for device 0")
	}
	if s.Dequeued != 2 || s.Requeued != 1 || s.InFlight != 1 || s.Uploaded != 1 {
		t.Errorf("device 0 stats = %+v", s)
	}
	if s.LastFrame.IsZero() {
		t.Error("LastFrame not set")
	}

	if got := testutil.ToFloat64(framesDequeued.WithLabelValues("0")); got != 2 {
		t.Errorf("frames_dequeued_total{device=0} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(buffersInFlight.WithLabelValues("1")); got != 1 {
		t.Errorf("buffers_in_flight{device=1} = %v, want 1", got)
	}

	all := GetAllDeviceStats()
	if len(all) != 2 {
		t.Errorf("GetAllDeviceStats() has %d devices, want 2", len(all))
	}

	// returned stats are copies
	s.Dequeued = 100
	if GetDeviceStats(0).Dequeued != 2 {
		t.Error("cache mutated through returned pointer")
	}

	if GetDeviceStats(9) != nil {
		t.Error("unknown device should return nil")
	}
}

func TestSetMode(t *testing.T) {
	Reset()

	SetMode("preview_one", 2)
	if got := GetMode(); got.Mode != "preview_one" || got.Selected != 2 {
		t.Errorf("GetMode() = %+v", got)
	}
	if got := testutil.ToFloat64(captureMode.WithLabelValues("preview_one")); got != 1 {
		t.Errorf("mode{preview_one} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(captureMode.WithLabelValues("preview_all")); got != 0 {
		t.Errorf("mode{preview_all} = %v, want 0", got)
	}

	SetMode("preview_all", -1)
	if got := testutil.ToFloat64(selectedDevice); got != -1 {
		t.Errorf("selected_device = %v, want -1", got)
	}

	before := GetMode().Commits
	RecordCommit()
	if GetMode().Commits != before+1 {
		t.Error("RecordCommit did not update the cache")
	}
}

type fakeMailbox struct {
	name    string
	depth   int
	dropped uint64
}

func (f *fakeMailbox) Name() string    { return f.name }
func (f *fakeMailbox) Len() int        { return f.depth }
func (f *fakeMailbox) Dropped() uint64 { return f.dropped }

func TestMailboxCollector(t *testing.T) {
	c := newMailboxCollector()
	c.sources["render"] = &fakeMailbox{name: "render", depth: 3, dropped: 1}

	expected := `
# HELP camwall_mailbox_depth Messages waiting in a worker mailbox
# TYPE camwall_mailbox_depth gauge
camwall_mailbox_depth{mailbox="render"} 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "camwall_mailbox_depth"); err != nil {
		t.Error(err)
	}

	RegisterMailbox(&fakeMailbox{name: "probe"})
	RegisterMailbox(&fakeMailbox{name: "probe", depth: 7})
	mailboxes.mu.RLock()
	got := mailboxes.sources["probe"].Len()
	mailboxes.mu.RUnlock()
	if got != 7 {
		t.Errorf("re-registered mailbox depth = %d, want 7", got)
	}
}
