// Package render drives a presentation sink from the render mailbox.
//
// The render worker accepts two messages: a *bufpool.Frame, which it
// uploads into the sink's per-device texture and then releases, and
// Commit, which asks the sink to present everything uploaded so far.
package render

import (
	"github.com/smazurov/camwall/internal/bufpool"
)

// Commit asks the sink to present the uploaded textures.
type Commit struct{}

// Sink is the presentation surface. The render worker calls UpdateTexture and
// RenderFrame from a single goroutine.
type Sink interface {
	// Initialize allocates the frame memory every device will capture into.
	Initialize(geom bufpool.Geometry, devices, depth int) (*bufpool.Bank, error)
	// UpdateTexture copies the frame into the texture of its device. The
	// frame memory must not be retained after it returns.
	UpdateTexture(frame *bufpool.Frame) error
	// RenderFrame presents the current textures.
	RenderFrame(target int) error
}
