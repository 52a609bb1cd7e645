// Package render draws the now playing and idle screens onto a fixed size canvas.
package render

import (
	"fmt"
	"image"

	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/genricoloni/nowpaper/internal/layout"
	"go.uber.org/zap"
)

// Layout of the playing view, in pixels
const (
	margin = 5

	statusY = 5

	titleY        = 30
	titleLines    = 2
	titleAdvance  = 25
	artistLines   = 1
	artistAdvance = 20
	albumLines    = 1
	albumAdvance  = 18

	barHeight       = 10
	barBottomOffset = 35
	labelGap        = 2

	microsPerSecond = 1_000_000

	idleText = "No music playing"
)

// Renderer composes the layout engine and canvas primitives into frames
type Renderer struct {
	logger *zap.Logger
	geom   domain.DisplayGeometry
	fonts  *FontSet
}

// NewRenderer creates a renderer for a fixed geometry.
// A nil font set selects the built-in bitmap font.
func NewRenderer(logger *zap.Logger, geom domain.DisplayGeometry, fonts *FontSet) *Renderer {
	if fonts == nil {
		fonts = FallbackFontSet()
	}
	return &Renderer{
		logger: logger,
		geom:   geom,
		fonts:  fonts,
	}
}

// Render draws the playing view for snap, or the idle view when snap is nil
func (r *Renderer) Render(snap *domain.TrackSnapshot) domain.Frame {
	if snap == nil {
		return r.RenderIdle()
	}
	return r.RenderPlaying(*snap)
}

// textLine is one positioned run of text on the playing view
type textLine struct {
	face *Face
	x, y int
	text string
}

// RenderPlaying draws status, title, artist, album and, for tracks with a
// known length, the progress bar with its time label
func (r *Renderer) RenderPlaying(snap domain.TrackSnapshot) domain.Frame {
	c := NewCanvas(r.geom)

	lines, ok := r.layoutPlaying(snap)
	if !ok {
		r.logger.Debug("Canvas too small for layout, drawing nothing",
			zap.Int("width", r.geom.Width),
			zap.Int("height", r.geom.Height))
		return c.Frame()
	}
	for _, l := range lines {
		c.DrawText(l.face, l.x, l.y, l.text)
	}

	if outline, fill, ok := ProgressBar(r.geom, snap); ok {
		c.StrokeRect(outline)
		c.FillRect(fill)
		c.DrawText(r.fonts.Small, margin, outline.Min.Y+barHeight+labelGap, TimeLabel(snap))
	}

	return c.Frame()
}

// layoutPlaying places the text blocks top-down. It reports false when the
// canvas has no drawable width.
func (r *Renderer) layoutPlaying(snap domain.TrackSnapshot) ([]textLine, bool) {
	content := layout.Inset(r.geom.Bounds(), margin)
	maxWidth := content.Dx()
	if maxWidth <= 0 || r.geom.Height <= 0 {
		return nil, false
	}

	lines := []textLine{{face: r.fonts.Medium, x: margin, y: statusY, text: StatusGlyph(snap.Status)}}

	y := titleY
	block := func(text string, face *Face, limit, advance int) {
		n := 0
		for line := range layout.Lines(text, face, maxWidth) {
			if n == limit {
				break
			}
			lines = append(lines, textLine{face: face, x: margin, y: y, text: line})
			y += advance
			n++
		}
	}
	block(snap.Title, r.fonts.Large, titleLines, titleAdvance)
	block(snap.Artist, r.fonts.Medium, artistLines, artistAdvance)
	block(snap.Album, r.fonts.Small, albumLines, albumAdvance)

	return lines, true
}

// RenderIdle draws a single centered message
func (r *Renderer) RenderIdle() domain.Frame {
	c := NewCanvas(r.geom)
	face := r.fonts.Medium

	b := face.Bounds(idleText)
	x := (r.geom.Width - b.Dx()) / 2
	y := (r.geom.Height - b.Dy()) / 2
	c.DrawTextBaseline(face, x-b.Min.X, y-b.Min.Y, idleText)

	return c.Frame()
}

// StatusGlyph returns the transport symbol for a status
func StatusGlyph(status domain.PlayerStatus) string {
	switch status {
	case domain.StatusPlaying:
		return "▶"
	case domain.StatusPaused:
		return "⏸"
	default:
		return "⏹"
	}
}

// Progress returns position/length clamped to [0, 1], or 0 for an unknown length
func Progress(positionMicros, lengthMicros uint64) float64 {
	if lengthMicros == 0 {
		return 0
	}
	p := float64(positionMicros) / float64(lengthMicros)
	return min(1.0, max(0.0, p))
}

// ProgressBar returns the outline and fill rectangles of the progress bar.
// Both span their end coordinates inclusively, so the outline is barWidth+1
// pixels wide. ok is false when the track length is unknown or the canvas has
// no drawable width; fill is empty at zero progress.
func ProgressBar(geom domain.DisplayGeometry, snap domain.TrackSnapshot) (outline, fill image.Rectangle, ok bool) {
	barWidth := geom.Width - 2*margin
	if snap.LengthMicros == 0 || barWidth <= 0 || geom.Height <= 0 {
		return image.Rectangle{}, image.Rectangle{}, false
	}

	y := geom.Height - barBottomOffset
	outline = image.Rect(margin, y, margin+barWidth+1, y+barHeight+1)

	fillWidth := int(float64(barWidth) * Progress(snap.PositionMicros, snap.LengthMicros))
	if fillWidth > 0 {
		fill = image.Rect(margin, y, margin+fillWidth+1, y+barHeight+1)
	}
	return outline, fill, true
}

// TimeLabel formats "elapsed / total" for a snapshot
func TimeLabel(snap domain.TrackSnapshot) string {
	return FormatTime(snap.PositionMicros/microsPerSecond) + " / " + FormatTime(snap.LengthMicros/microsPerSecond)
}

// FormatTime formats seconds as MM:SS; minutes are not wrapped at 60
func FormatTime(seconds uint64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
