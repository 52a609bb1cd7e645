package domain

import "context"

// Source defines the interface for polling the media player state
// Implementations should bound every call with a short timeout
//
//go:generate mockgen -destination=mocks/source_mock.go -package=mocks github.com/genricoloni/nowpaper/internal/domain Source
type Source interface {
	// Fetch returns the current snapshot, or nil when nothing is playing
	// Errors are treated by the caller as "no active session"
	Fetch(ctx context.Context) (*TrackSnapshot, error)
}

// Renderer defines the interface for turning a snapshot into a frame
type Renderer interface {
	// Render draws the playing view for a snapshot, or the idle view for nil
	Render(snap *TrackSnapshot) Frame
}

// Driver defines the interface for an output device
//
//go:generate mockgen -destination=mocks/driver_mock.go -package=mocks github.com/genricoloni/nowpaper/internal/domain Driver
type Driver interface {
	// Init prepares the device; an error here is fatal at startup
	Init(ctx context.Context) error

	// Present shows a frame; errors are retryable
	Present(ctx context.Context, frame Frame) error

	// Clear blanks the display
	Clear(ctx context.Context) error

	// Sleep puts the device into its low power state
	Sleep(ctx context.Context) error

	// Close releases the underlying device
	Close() error
}
