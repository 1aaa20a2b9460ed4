package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camwall/internal/api/models"
	"github.com/smazurov/camwall/internal/capture"
	"github.com/smazurov/camwall/internal/metrics"
)

// registerPreviewRoutes registers status and mode switching endpoints.
func (s *Server) registerPreviewRoutes() {
	ctrl := s.options.Controller
	if ctrl == nil {
		s.logger.Debug("No capture controller, skipping preview routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Preview Status",
		Description: "Current preview mode and per-device frame counters",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: buildStatus(ctrl)}, nil
	})

	s.registerCommand("preview-all", "/api/preview/all", "Preview All",
		"Show every device in a grid", capture.PreviewAll{})

	huma.Register(s.api, huma.Operation{
		OperationID: "preview-one",
		Method:      http.MethodPost,
		Path:        "/api/preview/{index}",
		Summary:     "Preview One",
		Description: "Show a single device full size",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.PreviewOneRequest) (*models.CommandResponse, error) {
		if input.Index >= ctrl.Devices() {
			return nil, huma.Error422UnprocessableEntity(
				fmt.Sprintf("device %d does not exist, %d devices configured", input.Index, ctrl.Devices()))
		}
		return s.send(capture.PreviewOne{Index: input.Index}), nil
	})

	s.registerCommand("preview-back", "/api/back", "Back",
		"Return from a single device to the grid", capture.Back{})

	s.registerCommand("shutdown", "/api/shutdown", "Shutdown",
		"Stop capturing and exit", capture.Shutdown{})
}

func (s *Server) registerCommand(id, path, summary, description string, cmd capture.Command) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CommandResponse, error) {
		return s.send(cmd), nil
	})
}

func (s *Server) send(cmd capture.Command) *models.CommandResponse {
	s.logger.Info("API command", "command", cmd)
	s.options.Controller.Send(cmd)
	return &models.CommandResponse{Body: models.CommandData{Command: fmt.Sprint(cmd)}}
}

func buildStatus(ctrl Controller) models.StatusData {
	state := ctrl.State()
	data := models.StatusData{
		Mode:     state.Mode.String(),
		Selected: state.Selected,
		Commits:  metrics.GetMode().Commits,
		Devices:  make([]models.DeviceStatus, 0, ctrl.Devices()),
	}

	stats := metrics.GetAllDeviceStats()
	for i := range ctrl.Devices() {
		ds := models.DeviceStatus{Index: i}
		if st, ok := stats[i]; ok {
			ds.Dequeued = st.Dequeued
			ds.Requeued = st.Requeued
			ds.Uploaded = st.Uploaded
			ds.InFlight = st.InFlight
			if !st.LastFrame.IsZero() {
				ds.LastFrame = st.LastFrame.Format(time.RFC3339)
			}
		}
		data.Devices = append(data.Devices, ds)
	}
	return data
}
