package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const sampleConfig = `
[capture]
devices = 4
device_paths = ["/dev/video11", "hdmirx"]
width = 1920
height = 1080
pixel_format = "rgbx32"
queue_depth = 6

[server]
listen = ":9000"

[features]
led_control_enabled = true

[logging]
level = "debug"
format = "json"
capture = "warn"
render = "error"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camwall.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	opts := Defaults()
	opts.Config = writeConfig(t, sampleConfig)

	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Devices != 4 || opts.Width != 1920 || opts.Height != 1080 || opts.QueueDepth != 6 {
		t.Errorf("capture settings = %+v", opts)
	}
	if want := []string{"/dev/video11", "hdmirx"}; !reflect.DeepEqual(opts.DevicePaths, want) {
		t.Errorf("DevicePaths = %v, want %v", opts.DevicePaths, want)
	}
	if opts.PixelFormat != "rgbx32" || opts.Listen != ":9000" || !opts.LedControl {
		t.Errorf("options = %+v", opts)
	}
	if opts.LoggingLevel != "debug" || opts.LoggingFormat != "json" {
		t.Errorf("logging = %q/%q", opts.LoggingLevel, opts.LoggingFormat)
	}
	// untouched keys keep their defaults
	if opts.AuthUsername != "admin" {
		t.Errorf("AuthUsername = %q, want default", opts.AuthUsername)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("CAMWALL_CAPTURE_WIDTH", "640")
	t.Setenv("CAMWALL_CAPTURE_HEIGHT", "480")
	t.Setenv("CAMWALL_CAPTURE_DEVICE_PATHS", "/dev/video3, /dev/video4,")
	t.Setenv("CAMWALL_DISPLAY_HEADLESS", "true")

	opts := Defaults()
	opts.Config = writeConfig(t, sampleConfig)

	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().IntVar(&opts.Width, "width", opts.Width, "")
	cmd.Flags().IntVar(&opts.QueueDepth, "queue-depth", opts.QueueDepth, "")
	if err := cmd.Flags().Parse([]string{"--width", "800", "--queue-depth", "2"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"flag beats env and file", opts.Width, 800},
		{"flag beats file", opts.QueueDepth, 2},
		{"env beats file", opts.Height, 480},
		{"env list", opts.DevicePaths, []string{"/dev/video3", "/dev/video4"}},
		{"env only", opts.Headless, true},
		{"file only", opts.Devices, 4},
	}
	for _, tt := range tests {
		if !reflect.DeepEqual(tt.got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := Defaults()
	opts.Config = filepath.Join(t.TempDir(), "absent.toml")
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if opts.Width != 1280 || opts.Height != 800 {
		t.Errorf("defaults changed: %+v", opts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{name: "invalid toml", content: "[capture\nwidth = ", wantErr: "parse"},
		{name: "wrong type", content: "[capture]\nwidth = \"wide\"\n", wantErr: "capture.width"},
		{name: "bad env", content: "", env: map[string]string{"CAMWALL_CAPTURE_QUEUE_DEPTH": "deep"}, wantErr: "CAMWALL_CAPTURE_QUEUE_DEPTH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := Defaults()
			opts.Config = writeConfig(t, tt.content)
			err := LoadConfig(&opts, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigInvalidFileKeepsEnv(t *testing.T) {
	t.Setenv("CAMWALL_CAPTURE_WIDTH", "640")
	t.Setenv("CAMWALL_CAPTURE_QUEUE_DEPTH", "abc")

	opts := Defaults()
	opts.Config = writeConfig(t, "[capture\nqueue_depth = 8\n")

	err := LoadConfig(&opts, nil)
	if err == nil {
		t.Fatal("LoadConfig() should fail on a malformed file")
	}
	for _, want := range []string{"parse", "CAMWALL_CAPTURE_QUEUE_DEPTH"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if opts.Width != 640 {
		t.Errorf("Width = %d, want 640 from env", opts.Width)
	}
	if opts.QueueDepth != 4 {
		t.Errorf("QueueDepth = %d, want default 4", opts.QueueDepth)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Listen":       "listen",
		"QueueDepth":   "queue-depth",
		"DevicePaths":  "device-paths",
		"LoggingLevel": "logging-level",
		"LedControl":   "led-control",
	}
	for field, want := range tests {
		if got := fieldNameToFlag(field); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", field, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"capture": map[string]any{"width": int64(640)},
		"flat":    "x",
	}
	tests := []struct {
		path string
		want any
	}{
		{"capture.width", int64(640)},
		{"capture.height", nil},
		{"flat", "x"},
		{"flat.deeper", nil},
		{"missing.key", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"paths without count", func(o *Options) { o.Devices = 0; o.DevicePaths = []string{"/dev/video9"} }, false},
		{"no devices", func(o *Options) { o.Devices = 0 }, true},
		{"zero width", func(o *Options) { o.Width = 0 }, true},
		{"zero depth", func(o *Options) { o.QueueDepth = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Defaults()
			tt.mutate(&opts)
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceList(t *testing.T) {
	opts := Defaults()
	opts.Devices = 3
	if got, want := opts.DeviceList(), []string{"/dev/video0", "/dev/video1", "/dev/video2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DeviceList() = %v, want %v", got, want)
	}
	opts.DevicePaths = []string{"usb-cam"}
	if got := opts.DeviceList(); !reflect.DeepEqual(got, []string{"usb-cam"}) {
		t.Errorf("DeviceList() = %v, want configured paths", got)
	}
}

func TestReadLoggingConfig(t *testing.T) {
	cfg, err := ReadLoggingConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level/format = %q/%q", cfg.Level, cfg.Format)
	}
	if want := map[string]string{"capture": "warn", "render": "error"}; !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if _, err := ReadLoggingConfig(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Error("ReadLoggingConfig() of a missing file should fail")
	}
	if cfg := LoadLoggingConfig(""); cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("LoadLoggingConfig(\"\") = %+v, want defaults", cfg)
	}
}
