package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camwall/internal/api/models"
)

func (s *Server) registerDeviceRoutes() {
	list := s.options.ListDevices
	if list == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "Capture devices present on the system, including ones not in use",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		devices, err := list()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate devices", err)
		}
		return &models.DevicesResponse{
			Body: models.DeviceData{Devices: devices, Count: len(devices)},
		}, nil
	})
}
