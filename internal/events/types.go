package events

// Event type constants for kelindar/event.
const (
	TypeModeChanged uint32 = iota + 1
	TypeCommandRejected
	TypeWorkerExited
	TypeLogEntry
	TypeDeviceStats
	TypeDeviceHotplug
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ModeChangedEvent is published by the capture worker after every state transition.
type ModeChangedEvent struct {
	Mode      string `json:"mode" example:"preview_one" doc:"New mode: idle, preview_all, preview_one, closed"`
	Selected  int    `json:"selected" example:"2" doc:"Selected device in preview_one, -1 otherwise"`
	Previous  string `json:"previous" example:"preview_all" doc:"Mode before the transition"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// CommandRejectedEvent is published when a command is invalid for the current state.
type CommandRejectedEvent struct {
	Command   string `json:"command" example:"preview_one" doc:"Rejected command"`
	Reason    string `json:"reason" example:"device index out of range" doc:"Why it was rejected"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Rejection timestamp"`
}

// Type returns the event type identifier for CommandRejectedEvent.
func (e CommandRejectedEvent) Type() uint32 { return TypeCommandRejected }

// WorkerExitedEvent is published when a pipeline worker returns.
type WorkerExitedEvent struct {
	Worker    string `json:"worker" example:"capture" doc:"Worker name"`
	Error     string `json:"error,omitempty" example:"dequeue buffer on /dev/video0: input/output error" doc:"Fatal error, empty on clean shutdown"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Exit timestamp"`
}

// Type returns the event type identifier for WorkerExitedEvent.
func (e WorkerExitedEvent) Type() uint32 { return TypeWorkerExited }

// Failed reports whether the worker stopped because of an error.
func (e WorkerExitedEvent) Failed() bool { return e.Error != "" }

// LogEntryEvent mirrors one log record for streaming clients.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"1042" doc:"Buffer sequence number"`
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Record timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Emitting module"`
	Message    string         `json:"message" example:"Preview mode changed" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// DeviceStatsEvent is a periodic counter snapshot of one capture device.
type DeviceStatsEvent struct {
	Device    int    `json:"device" example:"0" doc:"Device index"`
	Dequeued  uint64 `json:"dequeued" example:"1200" doc:"Frames taken from the driver"`
	Requeued  uint64 `json:"requeued" example:"1198" doc:"Buffers handed back to the driver"`
	Uploaded  uint64 `json:"uploaded" example:"1200" doc:"Texture updates"`
	InFlight  int64  `json:"in_flight" example:"2" doc:"Buffers held by the pipeline"`
	FPS       string `json:"fps" example:"59.94" doc:"Dequeue rate over the last interval"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Snapshot timestamp"`
}

// Type returns the event type identifier for DeviceStatsEvent.
func (e DeviceStatsEvent) Type() uint32 { return TypeDeviceStats }

// DeviceHotplugEvent reports a video node appearing or disappearing.
type DeviceHotplugEvent struct {
	Action    string `json:"action" example:"remove" doc:"add or remove"`
	Node      string `json:"node" example:"/dev/video0" doc:"Device node"`
	Device    int    `json:"device" example:"0" doc:"Index of the capture device using the node, -1 if unused"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceHotplugEvent.
func (e DeviceHotplugEvent) Type() uint32 { return TypeDeviceHotplug }

// InUse reports whether the node belongs to a running capture device.
func (e DeviceHotplugEvent) InUse() bool { return e.Device >= 0 }
