package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultOutputDir  = "/tmp"
	defaultOutputFile = "display_output.png"
)

// VirtualDriver writes every frame to a PNG file
type VirtualDriver struct {
	logger *zap.Logger
	geom   domain.DisplayGeometry
	dir    string
	path   string
}

// NewVirtualDriver creates a driver writing to dir/file
func NewVirtualDriver(logger *zap.Logger, geom domain.DisplayGeometry, dir, file string) *VirtualDriver {
	if dir == "" {
		dir = defaultOutputDir
	}
	if file == "" {
		file = defaultOutputFile
	}
	return &VirtualDriver{
		logger: logger,
		geom:   geom,
		dir:    dir,
		path:   filepath.Join(dir, file),
	}
}

// Path returns the file frames are written to
func (d *VirtualDriver) Path() string {
	return d.path
}

// Init ensures the output directory exists
func (d *VirtualDriver) Init(ctx context.Context) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	d.logger.Info("Virtual display initialized",
		zap.String("path", d.path),
		zap.Int("width", d.geom.Width),
		zap.Int("height", d.geom.Height))
	return nil
}

// Present saves the frame, replacing the previous file atomically
func (d *VirtualDriver) Present(ctx context.Context, frame domain.Frame) error {
	if err := checkGeometry(d.geom, frame); err != nil {
		return err
	}
	return d.save(frame.Image)
}

// Clear writes a white frame
func (d *VirtualDriver) Clear(ctx context.Context) error {
	return d.save(blank(d.geom))
}

func (d *VirtualDriver) Sleep(ctx context.Context) error {
	d.logger.Debug("Virtual display sleeping")
	return nil
}

func (d *VirtualDriver) Close() error {
	return nil
}

// save encodes to a temporary file next to the target and renames it in place
func (d *VirtualDriver) save(img image.Image) error {
	tmp, err := os.CreateTemp(d.dir, ".nowpaper-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := imaging.Save(img, tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	var size uint64
	if info, err := os.Stat(tmpPath); err == nil {
		size = uint64(info.Size())
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write frame: %w", err)
	}

	d.logger.Debug("Frame written",
		zap.String("path", d.path),
		zap.String("size", humanize.Bytes(size)))
	return nil
}
