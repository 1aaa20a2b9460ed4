// Package exporters pushes pipeline counters to in-process consumers.
package exporters

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter publishes a DeviceStatsEvent per device on every tick, for
// the event stream of the API.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	source   func() map[int]*metrics.DeviceStats

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// run goroutine only
	lastDequeued map[int]uint64
	lastTick     time.Time
}

// NewSSEExporter creates an exporter reading the metrics status cache.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus:     eventBus,
		interval:     time.Second,
		source:       metrics.GetAllDeviceStats,
		lastDequeued: make(map[int]uint64),
	}
}

// Start begins the export loop. A running loop is left alone.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.lastTick = time.Now()
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop ends the loop and waits for it. Safe to call repeatedly.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now)
		}
	}
}

func (s *SSEExporter) publish(now time.Time) {
	elapsed := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	stats := s.source()
	devices := make([]int, 0, len(stats))
	for d := range stats {
		devices = append(devices, d)
	}
	sort.Ints(devices)

	for _, d := range devices {
		st := stats[d]
		fps := 0.0
		if prev, ok := s.lastDequeued[d]; ok && elapsed > 0 && st.Dequeued >= prev {
			fps = float64(st.Dequeued-prev) / elapsed
		}
		s.lastDequeued[d] = st.Dequeued

		s.eventBus.Publish(events.DeviceStatsEvent{
			Device:    d,
			Dequeued:  st.Dequeued,
			Requeued:  st.Requeued,
			Uploaded:  st.Uploaded,
			InFlight:  st.InFlight,
			FPS:       strconv.FormatFloat(fps, 'f', 2, 64),
			Timestamp: now.Format(time.RFC3339),
		})
	}
}
