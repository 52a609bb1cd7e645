package display

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/zap"
)

// Panel is the raw 1-bit e-paper device
type Panel interface {
	Init() error
	// Display shows a pack1bpp buffer in the panel's native orientation
	Display(buf []byte) error
	Clear() error
	Sleep() error
	Close() error
}

// epdModel is a panel's native resolution
type epdModel struct {
	width  int
	height int
}

var epdModels = map[string]epdModel{
	"epd2in13_V2": {122, 250},
	"epd2in13_V3": {122, 250},
	"epd2in7":     {176, 264},
	"epd2in9":     {128, 296},
	"epd4in2":     {400, 300},
	"epd7in5":     {640, 384},
}

// EPaperModels lists the supported panel names
func EPaperModels() []string {
	names := make([]string, 0, len(epdModels))
	for name := range epdModels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EPaperDriver sends thresholded frames to a Panel
type EPaperDriver struct {
	logger *zap.Logger
	geom   domain.DisplayGeometry
	name   string
	model  epdModel
	open   func() (Panel, error)

	mu    sync.Mutex
	panel Panel
}

// CheckEPaperGeometry reports whether a width x height canvas fits model in
// its native or rotated orientation
func CheckEPaperGeometry(model string, width, height int) error {
	m, ok := epdModels[model]
	if !ok {
		return fmt.Errorf("unknown e-paper model %q, expected one of %s",
			model, strings.Join(EPaperModels(), ", "))
	}

	native := width == m.width && height == m.height
	rotated := width == m.height && height == m.width
	if !native && !rotated {
		return fmt.Errorf("%w: %s is %dx%d, display is %dx%d",
			domain.ErrGeometryMismatch, model, m.width, m.height, width, height)
	}
	return nil
}

// NewEPaperDriver validates the model against the geometry. The panel at
// device is opened by Init.
func NewEPaperDriver(logger *zap.Logger, geom domain.DisplayGeometry, model, device string) (*EPaperDriver, error) {
	if err := CheckEPaperGeometry(model, geom.Width, geom.Height); err != nil {
		return nil, err
	}
	m := epdModels[model]

	return &EPaperDriver{
		logger: logger,
		geom:   geom,
		name:   model,
		model:  m,
		open: func() (Panel, error) {
			return openSPIPanel(device, packedSize(m.width, m.height))
		},
	}, nil
}

// Init opens and wakes the panel
func (d *EPaperDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	panel, err := d.open()
	if err != nil {
		return fmt.Errorf("failed to open e-paper panel: %w", err)
	}
	if err := panel.Init(); err != nil {
		panel.Close()
		return fmt.Errorf("failed to initialize e-paper panel: %w", err)
	}
	d.panel = panel

	d.logger.Info("E-paper display initialized",
		zap.String("model", d.name),
		zap.Int("width", d.geom.Width),
		zap.Int("height", d.geom.Height))
	return nil
}

// Present converts the frame to 1 bit and sends it to the panel
func (d *EPaperDriver) Present(ctx context.Context, frame domain.Frame) error {
	if err := checkGeometry(d.geom, frame); err != nil {
		return err
	}

	buf := pack1bpp(orient(frame.Image, d.model.width, d.model.height))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panel == nil {
		return fmt.Errorf("e-paper panel not initialized")
	}
	return d.panel.Display(buf)
}

func (d *EPaperDriver) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panel == nil {
		return fmt.Errorf("e-paper panel not initialized")
	}
	return d.panel.Clear()
}

func (d *EPaperDriver) Sleep(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panel == nil {
		return nil
	}
	return d.panel.Sleep()
}

func (d *EPaperDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panel == nil {
		return nil
	}
	err := d.panel.Close()
	d.panel = nil
	return err
}
