package render

import (
	"image"
	"image/draw"

	"github.com/genricoloni/nowpaper/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Canvas is a white surface that draws in black.
// Grayscale geometries get a single channel buffer, others RGBA.
type Canvas struct {
	img  draw.Image
	geom domain.DisplayGeometry
	ink  image.Image
}

// NewCanvas allocates a canvas for the geometry and fills it white
func NewCanvas(geom domain.DisplayGeometry) *Canvas {
	bounds := image.Rect(0, 0, max(geom.Width, 0), max(geom.Height, 0))

	var img draw.Image
	if geom.ColorMode == domain.ColorGrayscale {
		img = image.NewGray(bounds)
	} else {
		img = image.NewRGBA(bounds)
	}
	draw.Draw(img, bounds, image.White, image.Point{}, draw.Src)

	return &Canvas{img: img, geom: geom, ink: image.Black}
}

// DrawText draws text with its line top at y
func (c *Canvas) DrawText(face *Face, x, y int, text string) {
	c.DrawTextBaseline(face, x, y+face.Ascent(), text)
}

// DrawTextBaseline draws text with its baseline at y
func (c *Canvas) DrawTextBaseline(face *Face, x, y int, text string) {
	if text == "" {
		return
	}
	d := font.Drawer{
		Dst:  c.img,
		Src:  c.ink,
		Face: face.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// FillRect paints r, clipped to the canvas
func (c *Canvas) FillRect(r image.Rectangle) {
	r = r.Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, c.ink, image.Point{}, draw.Src)
}

// StrokeRect paints a one pixel outline along the inside edge of r
func (c *Canvas) StrokeRect(r image.Rectangle) {
	if r.Empty() {
		return
	}
	c.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1))
	c.FillRect(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y))
	c.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y))
	c.FillRect(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y))
}

// Frame hands the finished surface over; the canvas must not be drawn on afterwards
func (c *Canvas) Frame() domain.Frame {
	return domain.Frame{Image: c.img, Geometry: c.geom}
}
