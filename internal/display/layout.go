package display

import (
	"image"
	"math"
)

// View selects between the grid and a single device.
type View struct {
	// Selected is the full-window device, or -1 for the grid.
	Selected int
}

// ViewFor maps a capture mode name to a view. Anything but a single-device
// preview shows the grid.
func ViewFor(mode string, selected int) View {
	if mode == "preview_one" && selected >= 0 {
		return View{Selected: selected}
	}
	return View{Selected: -1}
}

// Tile places one device image in the window.
type Tile struct {
	Device int
	// Cell is the grid cell; the image is letterboxed inside it.
	Cell   image.Rectangle
	Scale  float64
	Offset image.Point
}

// GridSize returns the column and row count for n devices.
func GridSize(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// Tiles lays out devices of frameW x frameH in a viewW x viewH window.
func Tiles(v View, devices, frameW, frameH, viewW, viewH int) []Tile {
	if devices <= 0 || frameW <= 0 || frameH <= 0 || viewW <= 0 || viewH <= 0 {
		return nil
	}

	if v.Selected >= 0 && v.Selected < devices {
		cell := image.Rect(0, 0, viewW, viewH)
		return []Tile{fit(v.Selected, cell, frameW, frameH)}
	}

	cols, rows := GridSize(devices)
	cw, ch := viewW/cols, viewH/rows
	tiles := make([]Tile, 0, devices)
	for i := range devices {
		x, y := (i%cols)*cw, (i/cols)*ch
		tiles = append(tiles, fit(i, image.Rect(x, y, x+cw, y+ch), frameW, frameH))
	}
	return tiles
}

func fit(device int, cell image.Rectangle, frameW, frameH int) Tile {
	scale, ox, oy := aspectFit(float64(cell.Dx()), float64(cell.Dy()), float64(frameW), float64(frameH))
	return Tile{
		Device: device,
		Cell:   cell,
		Scale:  scale,
		Offset: image.Pt(cell.Min.X+int(ox), cell.Min.Y+int(oy)),
	}
}

// aspectFit returns the scale and offsets that letterbox a frame into a view.
func aspectFit(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
