// Package window shows a display.Surface in an ebiten window and turns key
// presses into capture commands.
package window

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/smazurov/camwall/internal/capture"
	"github.com/smazurov/camwall/internal/display"
	"github.com/smazurov/camwall/internal/logging"
)

// CommandFunc receives the commands typed into the window.
type CommandFunc func(capture.Command)

// Window renders the published images of a surface.
type Window struct {
	surface  *display.Surface
	onCmd    CommandFunc
	title    string
	width    int
	height   int
	logger   *slog.Logger
	ctx      context.Context
	textures []*ebiten.Image
}

// New creates a window for surface. onCmd may be nil.
func New(surface *display.Surface, onCmd CommandFunc, title string, width, height int) *Window {
	return &Window{
		surface: surface,
		onCmd:   onCmd,
		title:   title,
		width:   width,
		height:  height,
		logger:  logging.GetLogger("display"),
	}
}

// Run starts the ebiten game loop and returns when the window is closed,
// Esc is pressed or ctx is cancelled. Must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.ctx = ctx
	ebiten.SetWindowSize(w.width, w.height)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)

	w.logger.Info("Opening preview window", "width", w.width, "height", w.height)
	err := ebiten.RunGame(w)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if w.ctx != nil && w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if ebiten.IsWindowBeingClosed() {
		w.send(capture.Shutdown{})
		return ebiten.Termination
	}

	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		cmd, ok := commandForKey(k, w.surface.Devices())
		if !ok {
			continue
		}
		w.send(cmd)
		if _, quit := cmd.(capture.Shutdown); quit {
			return ebiten.Termination
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()

	w.surface.Read(func(view display.View, images []*image.RGBA) {
		if len(images) == 0 {
			return
		}
		if len(w.textures) != len(images) {
			w.textures = make([]*ebiten.Image, len(images))
		}

		fw, fh := images[0].Bounds().Dx(), images[0].Bounds().Dy()
		for _, t := range display.Tiles(view, len(images), fw, fh, sw, sh) {
			tex := w.textures[t.Device]
			if tex == nil {
				tex = ebiten.NewImage(fw, fh)
				w.textures[t.Device] = tex
			}
			tex.WritePixels(images[t.Device].Pix)

			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(t.Scale, t.Scale)
			op.GeoM.Translate(float64(t.Offset.X), float64(t.Offset.Y))
			op.Filter = ebiten.FilterLinear
			screen.DrawImage(tex, op)
		}
	})
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func (w *Window) send(cmd capture.Command) {
	w.logger.Debug("Key command", "command", cmd)
	if w.onCmd != nil {
		w.onCmd(cmd)
	}
}

// commandForKey maps 1-9 to a single device, A to the grid, Backspace to
// back and Esc/Q to shutdown.
func commandForKey(k ebiten.Key, devices int) (capture.Command, bool) {
	for idx, dk := range digitKeys {
		if k == dk {
			if idx >= devices {
				return nil, false
			}
			return capture.PreviewOne{Index: idx}, true
		}
	}
	switch k {
	case ebiten.KeyA:
		return capture.PreviewAll{}, true
	case ebiten.KeyBackspace:
		return capture.Back{}, true
	case ebiten.KeyEscape, ebiten.KeyQ:
		return capture.Shutdown{}, true
	}
	return nil, false
}

var digitKeys = [...]ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}
