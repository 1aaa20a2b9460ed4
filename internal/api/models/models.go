package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-01-27 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Preview status models
type DeviceStatus struct {
	Index     int    `json:"index" example:"0" doc:"Device index"`
	Dequeued  uint64 `json:"dequeued" example:"1200" doc:"Frames taken from the driver"`
	Requeued  uint64 `json:"requeued" example:"1198" doc:"Buffers handed back to the driver"`
	Uploaded  uint64 `json:"uploaded" example:"1199" doc:"Texture updates"`
	InFlight  int64  `json:"in_flight" example:"2" doc:"Buffers currently held by the renderer"`
	LastFrame string `json:"last_frame,omitempty" example:"2026-01-27T10:30:00Z" doc:"Time of the last dequeued frame"`
}

type StatusData struct {
	Mode     string         `json:"mode" enum:"idle,preview_all,preview_one,closed" example:"preview_all" doc:"Current preview mode"`
	Selected int            `json:"selected" example:"-1" doc:"Device shown in preview_one, -1 otherwise"`
	Commits  uint64         `json:"commits" example:"5000" doc:"Frames presented since start"`
	Devices  []DeviceStatus `json:"devices" doc:"Per-device counters"`
}

type StatusResponse struct {
	Body StatusData
}

// Preview command models
type PreviewOneRequest struct {
	Index int `path:"index" minimum:"0" example:"1" doc:"Device index"`
}

type CommandData struct {
	Command string `json:"command" example:"preview_one(1)" doc:"Command queued for the capture worker"`
}

type CommandResponse struct {
	Body CommandData
}

// Device listing models
type DeviceInfo struct {
	DevicePath  string `json:"device_path" example:"/dev/video0" doc:"Device node"`
	DeviceName  string `json:"device_name" example:"rk_hdmirx" doc:"Driver card name"`
	DeviceID    string `json:"device_id" example:"platform-fdee0000.hdmirx-video-index0" doc:"Stable device identifier"`
	Multiplanar bool   `json:"multiplanar" example:"true" doc:"Supports the multi-planar capture API"`
}

type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Capture devices found on the system"`
	Count   int          `json:"count" example:"2" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DeviceData
}

// Log models
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Most recent entries to return"`
	Module string `query:"module" example:"capture" doc:"Only entries of this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Only entries at or above this level"`
}

type LogEntry struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Record timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Emitting module"`
	Message    string         `json:"message" example:"Preview mode changed" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
}

type LogsResponse struct {
	Body LogsData
}
