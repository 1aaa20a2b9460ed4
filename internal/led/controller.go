// Package led mirrors the preview state on a board status LED.
package led

// Controller abstracts LED hardware control across different SBC boards.
type Controller interface {
	// Set switches an LED on or off. pattern is "solid", "blink",
	// "heartbeat" or a raw kernel trigger name; empty leaves the trigger alone.
	Set(ledType string, enabled bool, pattern string) error
	// Available returns the LED types this board has.
	Available() []string
	// Patterns returns the supported pattern names.
	Patterns() []string
}
