package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Fallback drives a hardware display and switches for good to a secondary
// driver when the hardware cannot be initialized.
type Fallback struct {
	logger    *zap.Logger
	primary   domain.Driver
	secondary domain.Driver

	mu     sync.Mutex
	active domain.Driver
}

// NewFallback wraps primary with secondary as the replacement
func NewFallback(logger *zap.Logger, primary, secondary domain.Driver) *Fallback {
	return &Fallback{
		logger:    logger,
		primary:   primary,
		secondary: secondary,
		active:    primary,
	}
}

// Init initializes the primary driver, or the secondary if that fails
func (f *Fallback) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.primary.Init(ctx)
	if err == nil {
		f.active = f.primary
		return nil
	}

	f.logger.Warn("Display init failed, switching to virtual display", zap.Error(err))
	if cerr := f.primary.Close(); cerr != nil {
		f.logger.Debug("Failed to release display", zap.Error(cerr))
	}

	if serr := f.secondary.Init(ctx); serr != nil {
		return multierr.Combine(fmt.Errorf("primary display: %w", err), serr)
	}
	f.active = f.secondary
	return nil
}

// Degraded reports whether the secondary driver is in use
func (f *Fallback) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active == f.secondary
}

func (f *Fallback) current() domain.Driver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Fallback) Present(ctx context.Context, frame domain.Frame) error {
	return f.current().Present(ctx, frame)
}

func (f *Fallback) Clear(ctx context.Context) error {
	return f.current().Clear(ctx)
}

func (f *Fallback) Sleep(ctx context.Context) error {
	return f.current().Sleep(ctx)
}

func (f *Fallback) Close() error {
	return f.current().Close()
}
