// Package metrics provides Prometheus metrics for the capture and render pipeline.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "camwall"

var (
	framesDequeued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_dequeued_total",
		Help:      "Frames taken from the driver",
	}, []string{"device"})

	framesRequeued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_requeued_total",
		Help:      "Buffers handed back to the driver",
	}, []string{"device"})

	buffersInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "buffers_in_flight",
		Help:      "Buffers currently owned by the render side",
	}, []string{"device"})

	captureMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "mode",
		Help:      "Current preview mode (1 for the active mode)",
	}, []string{"mode"})

	selectedDevice = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "selected_device",
		Help:      "Device shown in preview-one mode, -1 otherwise",
	})

	texturesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "textures_uploaded_total",
		Help:      "Frames uploaded to the sink",
	}, []string{"device"})

	commits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "commits_total",
		Help:      "Presented frames",
	})

	// Local cache for the status API.
	deviceCache   = make(map[int]*DeviceStats)
	deviceCacheMu sync.RWMutex
	modeCache     = ModeStats{Mode: "idle", Selected: -1}
)

// DeviceStats holds current counter values for one device.
type DeviceStats struct {
	Dequeued  uint64
	Requeued  uint64
	Uploaded  uint64
	InFlight  int64
	LastFrame time.Time
}

// ModeStats is the last mode reported by the capture worker.
type ModeStats struct {
	Mode     string
	Selected int
	Commits  uint64
}

var knownModes = []string{"idle", "preview_all", "preview_one", "closed"}

// RecordDequeue counts a frame taken from device.
func RecordDequeue(device int) {
	label := strconv.Itoa(device)
	framesDequeued.WithLabelValues(label).Inc()
	buffersInFlight.WithLabelValues(label).Inc()
	updateDevice(device, func(s *DeviceStats) {
		s.Dequeued++
		s.InFlight++
		s.LastFrame = time.Now()
	})
}

// RecordRequeue counts a buffer handed back to device.
func RecordRequeue(device int) {
	label := strconv.Itoa(device)
	framesRequeued.WithLabelValues(label).Inc()
	buffersInFlight.WithLabelValues(label).Dec()
	updateDevice(device, func(s *DeviceStats) {
		s.Requeued++
		s.InFlight--
	})
}

// RecordUpload counts a texture update for device.
func RecordUpload(device int) {
	texturesUploaded.WithLabelValues(strconv.Itoa(device)).Inc()
	updateDevice(device, func(s *DeviceStats) { s.Uploaded++ })
}

// RecordCommit counts a presented frame.
func RecordCommit() {
	commits.Inc()
	deviceCacheMu.Lock()
	modeCache.Commits++
	deviceCacheMu.Unlock()
}

// SetMode marks mode as active. selected is -1 outside preview-one.
func SetMode(mode string, selected int) {
	for _, m := range knownModes {
		v := 0.0
		if m == mode {
			v = 1
		}
		captureMode.WithLabelValues(m).Set(v)
	}
	selectedDevice.Set(float64(selected))

	deviceCacheMu.Lock()
	modeCache.Mode = mode
	modeCache.Selected = selected
	deviceCacheMu.Unlock()
}

// GetMode returns the last reported mode.
func GetMode() ModeStats {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	return modeCache
}

// GetDeviceStats returns a copy of the counters of one device.
func GetDeviceStats(device int) *DeviceStats {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	if s, ok := deviceCache[device]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// GetAllDeviceStats returns counters for every device seen so far.
func GetAllDeviceStats() map[int]*DeviceStats {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	result := make(map[int]*DeviceStats, len(deviceCache))
	for id, s := range deviceCache {
		dup := *s
		result[id] = &dup
	}
	return result
}

// Reset clears the status cache and per-device series. Used when a new pipeline starts.
func Reset() {
	framesDequeued.Reset()
	framesRequeued.Reset()
	buffersInFlight.Reset()
	texturesUploaded.Reset()

	deviceCacheMu.Lock()
	deviceCache = make(map[int]*DeviceStats)
	modeCache = ModeStats{Mode: "idle", Selected: -1}
	deviceCacheMu.Unlock()
}

func updateDevice(device int, update func(*DeviceStats)) {
	deviceCacheMu.Lock()
	defer deviceCacheMu.Unlock()
	s, ok := deviceCache[device]
	if !ok {
		s = &DeviceStats{}
		deviceCache[device] = s
	}
	update(s)
}
