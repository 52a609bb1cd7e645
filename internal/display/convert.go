package display

import (
	"image"

	"github.com/disintegration/imaging"
)

// monoThreshold is the gray level at or above which a pixel is white
const monoThreshold = 128

// orient rotates img by 90 degrees counter-clockwise when it is the
// transpose of the panel's native width x height.
func orient(img image.Image, nativeW, nativeH int) image.Image {
	b := img.Bounds()
	if b.Dx() == nativeW && b.Dy() == nativeH {
		return img
	}
	if b.Dx() == nativeH && b.Dy() == nativeW {
		return imaging.Rotate90(img)
	}
	return img
}

// pack1bpp converts img to a 1 bit per pixel buffer: white is 1, the most
// significant bit is the leftmost pixel and every row starts on a new byte.
func pack1bpp(img image.Image) []byte {
	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	stride := (w + 7) / 8

	buf := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			// NRGBA: R, G and B are equal after Grayscale
			if row[x*4] >= monoThreshold {
				buf[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return buf
}

// packedSize is the length of a pack1bpp buffer for a w x h image
func packedSize(w, h int) int {
	return (w + 7) / 8 * h
}
