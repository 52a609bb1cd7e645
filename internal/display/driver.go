// Package display implements the output drivers: a PNG file for development,
// a 1-bit e-paper panel and a Linux framebuffer.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/zap"
)

// ErrNoHardware is returned when a device node is missing or not writable
var ErrNoHardware = errors.New("display hardware not available")

// Config selects and configures a driver
type Config struct {
	Class  domain.DeviceClass
	Width  int
	Height int

	OutputDir  string
	OutputFile string

	EPaperModel  string
	EPaperDevice string

	FramebufferDevice string
}

// Geometry returns the canvas the renderer must produce for this driver
func (c Config) Geometry() domain.DisplayGeometry {
	return domain.DisplayGeometry{
		Width:     c.Width,
		Height:    c.Height,
		ColorMode: c.Class.ColorMode(),
	}
}

// New builds the driver for cfg.Class. Hardware classes whose device node
// is unusable fall back to the virtual driver.
func New(logger *zap.Logger, cfg Config) (domain.Driver, error) {
	geom := cfg.Geometry()
	virtual := NewVirtualDriver(logger, geom, cfg.OutputDir, cfg.OutputFile)

	switch cfg.Class {
	case domain.DeviceVirtual:
		return virtual, nil

	case domain.DeviceEPaper:
		if err := probeDevice(cfg.EPaperDevice); err != nil {
			logger.Warn("E-paper display not available, using virtual display", zap.Error(err))
			return virtual, nil
		}
		epd, err := NewEPaperDriver(logger, geom, cfg.EPaperModel, cfg.EPaperDevice)
		if err != nil {
			return nil, err
		}
		return NewFallback(logger, epd, virtual), nil

	case domain.DeviceFramebuffer:
		if err := probeDevice(cfg.FramebufferDevice); err != nil {
			logger.Warn("Framebuffer not available, using virtual display", zap.Error(err))
			return virtual, nil
		}
		return NewFallback(logger, NewFramebufferDriver(logger, geom, cfg.FramebufferDevice), virtual), nil

	default:
		return nil, fmt.Errorf("unknown display type %q", cfg.Class)
	}
}

// checkGeometry rejects frames whose size differs from the configured canvas
func checkGeometry(geom domain.DisplayGeometry, frame domain.Frame) error {
	if frame.Image == nil {
		return fmt.Errorf("%w: empty frame", domain.ErrGeometryMismatch)
	}
	b := frame.Image.Bounds()
	if b.Dx() != geom.Width || b.Dy() != geom.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d",
			domain.ErrGeometryMismatch, b.Dx(), b.Dy(), geom.Width, geom.Height)
	}
	return nil
}

// blank returns a white canvas of the given geometry
func blank(geom domain.DisplayGeometry) image.Image {
	img := image.NewGray(geom.Bounds())
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
