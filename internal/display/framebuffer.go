package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/zap"
)

// pixelSink is the writable surface of a framebuffer device
type pixelSink interface {
	Bounds() image.Rectangle
	Set(x, y int, c color.Color)
}

// FramebufferDriver copies frames 1:1 to a Linux framebuffer
type FramebufferDriver struct {
	logger *zap.Logger
	geom   domain.DisplayGeometry
	device string
	open   func(path string) (pixelSink, func(), error)

	mu      sync.Mutex
	sink    pixelSink
	release func()
}

// NewFramebufferDriver creates a driver for device; it is opened by Init
func NewFramebufferDriver(logger *zap.Logger, geom domain.DisplayGeometry, device string) *FramebufferDriver {
	return &FramebufferDriver{
		logger: logger,
		geom:   geom,
		device: device,
		open:   openFramebuffer,
	}
}

func (d *FramebufferDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sink, release, err := d.open(d.device)
	if err != nil {
		return fmt.Errorf("failed to open framebuffer: %w", err)
	}
	d.sink, d.release = sink, release

	b := sink.Bounds()
	d.logger.Info("Framebuffer initialized",
		zap.String("device", d.device),
		zap.Int("fbWidth", b.Dx()),
		zap.Int("fbHeight", b.Dy()))
	return nil
}

// Present copies the frame at the framebuffer origin, clipped to the device
func (d *FramebufferDriver) Present(ctx context.Context, frame domain.Frame) error {
	if err := checkGeometry(d.geom, frame); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sink == nil {
		return fmt.Errorf("framebuffer not initialized")
	}
	blit(d.sink, frame.Image)
	return nil
}

// Clear paints the whole device white
func (d *FramebufferDriver) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sink == nil {
		return fmt.Errorf("framebuffer not initialized")
	}
	b := d.sink.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d.sink.Set(x, y, color.White)
		}
	}
	return nil
}

func (d *FramebufferDriver) Sleep(ctx context.Context) error {
	return nil
}

func (d *FramebufferDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release != nil {
		d.release()
	}
	d.sink, d.release = nil, nil
	return nil
}

// blit writes src onto dst starting at dst's origin
func blit(dst pixelSink, src image.Image) {
	db, sb := dst.Bounds(), src.Bounds()
	w := min(db.Dx(), sb.Dx())
	h := min(db.Dy(), sb.Dy())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(db.Min.X+x, db.Min.Y+y, src.At(sb.Min.X+x, sb.Min.Y+y))
		}
	}
}
