package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camwall/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of mode changes, rejected commands, worker exits, device hotplug and per-device counters",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"mode-changed":     events.ModeChangedEvent{},
		"command-rejected": events.CommandRejectedEvent{},
		"worker-exited":    events.WorkerExitedEvent{},
		"device-stats":     events.DeviceStatsEvent{},
		"device-hotplug":   events.DeviceHotplugEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ModeChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CommandRejectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.WorkerExitedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceStatsEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceHotplugEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// current mode first, so clients need no separate status call
		if ctrl := s.options.Controller; ctrl != nil {
			state := ctrl.State()
			if err := send.Data(events.ModeChangedEvent{
				Mode:      state.Mode.String(),
				Selected:  state.Selected,
				Previous:  state.Mode.String(),
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
