package led

import (
	"os"
	"strings"

	"github.com/smazurov/camwall/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// board describes the status LED wiring of a known board.
type board struct {
	match  string
	status string            // LED type the manager drives
	leds   map[string]string // LED type -> sysfs name
}

var boards = []board{
	{match: "NanoPC-T6", status: "system", leds: map[string]string{"user": "usr_led", "system": "sys_led"}},
	{match: "Orange Pi", status: "green", leds: map[string]string{"blue": "blue_led", "green": "green_led"}},
	{match: "Raspberry Pi", status: "act", leds: map[string]string{"act": "ACT"}},
}

// New returns a controller for the detected board and the LED type to use
// as status indicator. Unknown boards get a no-op controller.
func New(logger logging.Logger) (Controller, string) {
	return forModel(detectBoard(), sysfsLEDPath, logger)
}

func forModel(model, root string, logger logging.Logger) (Controller, string) {
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			logger.Info("Using sysfs LED controller", "board_model", model, "status_led", b.status)
			return newSysfs(root, b.leds), b.status
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger), ""
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
