// Package layout breaks text into lines that fit a pixel width.
package layout

import (
	"image"
	"iter"
	"slices"
	"strings"
)

// Measurer reports the rendered width of a string in pixels
type Measurer interface {
	Measure(text string) int
}

// Lines yields text wrapped greedily on whitespace so that every line
// measures at most maxWidth. A single word wider than maxWidth is yielded
// on its own line rather than cut. Empty or blank text yields one empty line.
func Lines(text string, m Measurer, maxWidth int) iter.Seq[string] {
	return func(yield func(string) bool) {
		words := strings.Fields(text)
		if len(words) == 0 {
			yield("")
			return
		}

		var current []string
		for _, word := range words {
			candidate := append(slices.Clip(current), word)
			if m.Measure(strings.Join(candidate, " ")) <= maxWidth {
				current = candidate
				continue
			}
			if len(current) > 0 {
				if !yield(strings.Join(current, " ")) {
					return
				}
				current = []string{word}
				continue
			}
			// oversized word on an empty line
			if !yield(word) {
				return
			}
		}

		if len(current) > 0 {
			yield(strings.Join(current, " "))
		}
	}
}

// Wrap collects Lines into a slice. The result always has at least one element.
func Wrap(text string, m Measurer, maxWidth int) []string {
	return slices.Collect(Lines(text, m, maxWidth))
}

// Inset shrinks rect by paddingPx on all sides.
// A rect too small for the padding collapses to an empty rect at its center.
func Inset(rect image.Rectangle, paddingPx int) image.Rectangle {
	if paddingPx <= 0 {
		return rect
	}
	out := image.Rectangle{
		Min: image.Pt(rect.Min.X+paddingPx, rect.Min.Y+paddingPx),
		Max: image.Pt(rect.Max.X-paddingPx, rect.Max.Y-paddingPx),
	}
	if out.Min.X > out.Max.X {
		mid := rect.Min.X + rect.Dx()/2
		out.Min.X, out.Max.X = mid, mid
	}
	if out.Min.Y > out.Max.Y {
		mid := rect.Min.Y + rect.Dy()/2
		out.Min.Y, out.Max.Y = mid, mid
	}
	return out
}
