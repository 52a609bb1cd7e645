package render

import (
	"fmt"
	"image"
	"os"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Pixel sizes of the three text tiers
const (
	largeSize  = 20
	mediumSize = 16
	smallSize  = 12
)

var (
	defaultRegularPaths = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	}
	defaultBoldPaths = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
	}
)

// Face measures and draws text in one size
type Face struct {
	face font.Face
}

// NewFace wraps a font.Face
func NewFace(f font.Face) *Face {
	return &Face{face: f}
}

// Measure returns the advance width of text in pixels
func (f *Face) Measure(text string) int {
	return font.MeasureString(f.face, text).Ceil()
}

// Bounds returns the ink bounding box of text relative to a dot at the origin
func (f *Face) Bounds(text string) image.Rectangle {
	b, _ := font.BoundString(f.face, text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

// Ascent is the distance from the top of a line to its baseline
func (f *Face) Ascent() int {
	return f.face.Metrics().Ascent.Ceil()
}

// FontSet holds the three tiers used by the renderer
type FontSet struct {
	Large  *Face
	Medium *Face
	Small  *Face
}

// FontConfig overrides the font files searched at startup
type FontConfig struct {
	Regular string
	Bold    string
}

// FallbackFontSet uses the built-in 7x13 bitmap face for every tier
func FallbackFontSet() *FontSet {
	f := NewFace(basicfont.Face7x13)
	return &FontSet{Large: f, Medium: f, Small: f}
}

// LoadFontSet loads scalable fonts, bold for the large tier and regular for
// the others. Any tier that cannot be built falls back to the bitmap face.
func LoadFontSet(logger *zap.Logger, cfg FontConfig) *FontSet {
	regular := loadFirst(logger, withOverride(cfg.Regular, defaultRegularPaths))
	bold := loadFirst(logger, withOverride(cfg.Bold, defaultBoldPaths))
	if bold == nil {
		bold = regular
	}
	if regular == nil {
		regular = bold
	}
	if regular == nil {
		logger.Warn("Could not load TrueType fonts, using built-in bitmap font")
		return FallbackFontSet()
	}

	fallback := NewFace(basicfont.Face7x13)
	makeFace := func(pf parsedFont, size float64) *Face {
		face, err := pf(size)
		if err != nil {
			logger.Warn("Font face creation failed, using built-in bitmap font",
				zap.Float64("size", size),
				zap.Error(err))
			return fallback
		}
		return NewFace(face)
	}

	return &FontSet{
		Large:  makeFace(bold, largeSize),
		Medium: makeFace(regular, mediumSize),
		Small:  makeFace(regular, smallSize),
	}
}

// parsedFont builds a face at a pixel size
type parsedFont func(size float64) (font.Face, error)

func withOverride(override string, defaults []string) []string {
	if override == "" {
		return defaults
	}
	return append([]string{override}, defaults...)
}

func loadFirst(logger *zap.Logger, paths []string) parsedFont {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		pf, err := parseFont(data)
		if err != nil {
			logger.Warn("Font parse failed", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("Font loaded", zap.String("path", path))
		return pf
	}
	return nil
}

// parseFont tries the sfnt parser first and the older freetype parser second.
// sfnt accepts every font freetype does today; freetype stays as a second
// chance for files sfnt rejects.
func parseFont(data []byte) (parsedFont, error) {
	pf, err := parseOpenType(data)
	if err == nil {
		return pf, nil
	}
	pf, terr := parseTrueType(data)
	if terr == nil {
		return pf, nil
	}
	return nil, fmt.Errorf("opentype: %v; truetype: %w", err, terr)
}

// Sizes are pixels, so faces are built at 72 DPI.
func parseOpenType(data []byte) (parsedFont, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}, nil
}

func parseTrueType(data []byte) (parsedFont, error) {
	tt, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return func(size float64) (font.Face, error) {
		return truetype.NewFace(tt, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
	}, nil
}
