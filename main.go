//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/smazurov/camwall/cmd"
	"github.com/smazurov/camwall/internal/api"
	"github.com/smazurov/camwall/internal/api/models"
	"github.com/smazurov/camwall/internal/bufpool"
	"github.com/smazurov/camwall/internal/config"
	"github.com/smazurov/camwall/internal/control"
	"github.com/smazurov/camwall/internal/display"
	"github.com/smazurov/camwall/internal/display/window"
	"github.com/smazurov/camwall/internal/events"
	"github.com/smazurov/camwall/internal/led"
	"github.com/smazurov/camwall/internal/logging"
	"github.com/smazurov/camwall/internal/metrics/exporters"
	"github.com/smazurov/camwall/internal/pipeline"
	"github.com/smazurov/camwall/internal/render"
	"github.com/smazurov/camwall/pkg/linuxav/v4l2"
)

func main() {
	opts := config.Defaults()

	root := &cobra.Command{
		Use:           "camwall",
		Short:         "Multiplex V4L2 capture devices into one preview",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return run(c, &opts)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.Config, "config", "c", opts.Config, "Path to configuration file")
	f.IntVar(&opts.Devices, "devices", opts.Devices, "Number of devices, opened as /dev/video0..N-1")
	f.StringSliceVar(&opts.DevicePaths, "device-paths", opts.DevicePaths, "Device nodes or stable IDs (overrides --devices)")
	f.IntVar(&opts.Width, "width", opts.Width, "Capture width")
	f.IntVar(&opts.Height, "height", opts.Height, "Capture height")
	f.StringVar(&opts.PixelFormat, "pixel-format", opts.PixelFormat, "Capture pixel format (xbgr32, rgbx32, ... or a fourcc)")
	f.IntVar(&opts.QueueDepth, "queue-depth", opts.QueueDepth, "Buffers per device")
	f.BoolVar(&opts.Headless, "headless", opts.Headless, "Run without a preview window")
	f.BoolVar(&opts.Console, "console", opts.Console, "Read preview commands from stdin")
	f.StringVarP(&opts.Listen, "listen", "l", opts.Listen, "HTTP API address, empty to disable")
	f.StringVar(&opts.AuthUsername, "auth-username", opts.AuthUsername, "Basic auth username")
	f.StringVar(&opts.AuthPassword, "auth-password", opts.AuthPassword, "Basic auth password")
	f.BoolVar(&opts.LedControl, "led-control", opts.LedControl, "Drive the board status LED")
	f.StringVar(&opts.LoggingLevel, "logging-level", opts.LoggingLevel, "Global logging level (debug, info, warn, error)")
	f.StringVar(&opts.LoggingFormat, "logging-format", opts.LoggingFormat, "Logging format (text, json)")

	root.AddCommand(cmd.CreateDevicesCmd(), cmd.CreateVersionCmd())

	if err := root.Execute(); err != nil {
		slog.Error("camwall failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cobra.Command, opts *config.Options) error {
	loadErr := config.LoadConfig(opts, c)

	loggingConfig := config.LoadLoggingConfig(opts.Config)
	loggingConfig.Level = opts.LoggingLevel
	loggingConfig.Format = opts.LoggingFormat
	logging.Initialize(loggingConfig)

	logger := logging.GetLogger("main")
	if loadErr != nil {
		return fmt.Errorf("invalid configuration: %w", loadErr)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	pixFmt, err := v4l2.ParsePixelFormat(opts.PixelFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := events.New()
	logging.SetLogCallback(func(e logging.LogEntry) {
		eventBus.Publish(events.LogEntryEvent{
			Seq:        e.Seq,
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	})
	defer logging.SetLogCallback(nil)

	var sink render.Sink
	var surface *display.Surface
	if opts.Headless {
		sink = render.NewStatsSink()
	} else {
		surface = display.NewSurface(display.WithPixelOrder(display.OrderFor(pixFmt.RedFirst())))
		defer surface.Follow(eventBus)()
		sink = surface
	}

	p, err := pipeline.New(pipeline.Config{
		Devices: opts.DeviceList(),
		Geometry: bufpool.Geometry{
			Width:       opts.Width,
			Height:      opts.Height,
			PixelStride: pixFmt.BytesPerPixel(),
		},
		Depth: opts.QueueDepth,
	}, sink, pipeline.WithOpener(pipeline.V4L2Opener(pixFmt)), pipeline.WithEventBus(eventBus))
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Error("Failed to release devices", "error", cerr)
		}
	}()
	ctrl := p.Capture()

	var ledController led.Controller
	if opts.LedControl {
		var statusLED string
		ledController, statusLED = led.New(logger)
		ledManager := led.NewManager(ledController, statusLED, eventBus, logging.GetLogger("led"))
		ledManager.Start()
		defer ledManager.Stop()
	}

	if opts.Listen != "" {
		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Controller:        ctrl,
			EventBus:          eventBus,
			ListDevices:       listDevices,
			LEDController:     ledController,
			PrometheusHandler: promhttp.Handler(),
		})
		statsExporter := exporters.NewSSEExporter(eventBus)
		statsExporter.Start(ctx)
		defer statsExporter.Stop()

		go func() {
			logger.Info("Starting HTTP server", "addr", opts.Listen)
			if serveErr := server.Start(opts.Listen); serveErr != nil {
				logger.Error("HTTP server failed", "error", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		}()
	}

	if _, statErr := os.Stat(opts.Config); statErr == nil {
		watcher, watchErr := config.WatchLogging(ctx, opts.Config)
		if watchErr != nil {
			logger.Warn("Config hot reload disabled", "error", watchErr)
		} else {
			defer watcher.Stop()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- p.Run(runCtx)
		cancel()
	}()

	hotplugDone := make(chan struct{})
	go func() {
		defer close(hotplugDone)
		if watchErr := p.WatchHotplug(runCtx); watchErr != nil {
			logger.Warn("Hotplug monitor stopped", "error", watchErr)
		}
	}()

	if opts.Console {
		go func() {
			if consoleErr := control.NewConsole(ctrl, os.Stdin, os.Stdout).Run(runCtx); consoleErr != nil {
				logger.Warn("Console stopped", "error", consoleErr)
			}
		}()
	}

	if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
		logger.Debug("sd_notify failed", "error", notifyErr)
	}
	logger.Info("Capture running", "devices", p.Devices(), "format", pixFmt.String(),
		"width", opts.Width, "height", opts.Height, "depth", opts.QueueDepth, "headless", opts.Headless)

	if surface != nil {
		// ebiten needs the main goroutine
		win := window.New(surface, ctrl.Send, "camwall", opts.Width, opts.Height)
		if winErr := win.Run(runCtx); winErr != nil {
			logger.Error("Preview window failed", "error", winErr)
			ctrl.RequestShutdown()
		}
	}

	err = <-done
	<-hotplugDone
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Capture stopped")
	return nil
}

func listDevices() ([]models.DeviceInfo, error) {
	found, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}
	out := make([]models.DeviceInfo, 0, len(found))
	for _, d := range found {
		out = append(out, models.DeviceInfo{
			DevicePath:  d.DevicePath,
			DeviceName:  d.DeviceName,
			DeviceID:    d.DeviceID,
			Multiplanar: d.Multiplanar(),
		})
	}
	return out, nil
}
