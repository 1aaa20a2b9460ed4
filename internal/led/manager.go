package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/camwall/internal/events"
)

// Manager drives the status LED from capture events: blinking while idle,
// solid while previewing, off once capture has stopped.
type Manager struct {
	controller Controller
	ledType    string
	eventBus   *events.Bus
	logger     *slog.Logger

	mu     sync.Mutex
	unsubs []func()
	last   string
}

// NewManager creates a manager for the ledType LED of controller.
func NewManager(controller Controller, ledType string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		ledType:    ledType,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start sets the idle pattern and begins following events.
func (m *Manager) Start() {
	m.apply("idle")
	m.mu.Lock()
	m.unsubs = []func(){
		m.eventBus.Subscribe(func(e events.ModeChangedEvent) { m.apply(e.Mode) }),
		m.eventBus.Subscribe(func(e events.WorkerExitedEvent) { m.apply("closed") }),
	}
	m.mu.Unlock()
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	m.apply("closed")
	m.logger.Info("LED manager stopped")
}

// GetController returns the underlying LED controller for direct API access
func (m *Manager) GetController() Controller {
	return m.controller
}

func (m *Manager) apply(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == m.last {
		return
	}
	m.last = mode

	var err error
	switch mode {
	case "idle":
		err = m.controller.Set(m.ledType, true, "blink")
	case "closed":
		err = m.controller.Set(m.ledType, false, "solid")
	default:
		err = m.controller.Set(m.ledType, true, "solid")
	}
	if err != nil {
		m.logger.Warn("Failed to set status LED", "led", m.ledType, "mode", mode, "error", err)
		return
	}
	m.logger.Debug("Status LED updated", "led", m.ledType, "mode", mode)
}
