package capture

import (
	"fmt"

	"github.com/smazurov/camwall/internal/bufpool"
)

// Command is a request to change the preview mode. The set is closed.
type Command interface {
	command()
}

// PreviewAll shows every device.
type PreviewAll struct{}

// PreviewOne shows a single device.
type PreviewOne struct {
	Index int
}

// Back leaves preview-one for preview-all.
type Back struct{}

// Shutdown stops the worker. Send maps it onto the mailbox Close message.
type Shutdown struct{}

func (PreviewAll) command() {}
func (PreviewOne) command() {}
func (Back) command()       {}
func (Shutdown) command()   {}

func (PreviewAll) String() string   { return "preview_all" }
func (c PreviewOne) String() string { return fmt.Sprintf("preview_one(%d)", c.Index) }
func (Back) String() string         { return "back" }
func (Shutdown) String() string     { return "shutdown" }

// released acknowledges that the render side is done with a frame.
type released struct {
	frame *bufpool.Frame
}
