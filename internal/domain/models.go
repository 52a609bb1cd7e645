package domain

import (
	"errors"
	"image"
)

// PlayerStatus represents the current state of the media player
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// ParsePlayerStatus maps an MPRIS PlaybackStatus string to a PlayerStatus.
// Unknown values are reported as stopped.
func ParsePlayerStatus(s string) PlayerStatus {
	switch s {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	default:
		return StatusStopped
	}
}

// TrackSnapshot is one poll's observation of the player.
// A nil *TrackSnapshot means there is no active session.
type TrackSnapshot struct {
	// Title of the currently playing track
	Title string
	// Artist name, multiple artists joined with ", "
	Artist string
	// Album name
	Album string
	// Status is the current playback status
	Status PlayerStatus
	// PositionMicros is the playback position in microseconds
	PositionMicros uint64
	// LengthMicros is the track length in microseconds, 0 when unknown
	LengthMicros uint64
	// ArtURL is kept for forward compatibility, nothing renders it
	ArtURL string
}

// ColorMode is the pixel representation of a display target
type ColorMode int

const (
	// ColorRGB renders into an RGBA buffer
	ColorRGB ColorMode = iota
	// ColorGrayscale renders into a single channel buffer
	ColorGrayscale
)

func (m ColorMode) String() string {
	if m == ColorGrayscale {
		return "grayscale"
	}
	return "rgb"
}

// DeviceClass selects the output driver variant
type DeviceClass string

const (
	DeviceVirtual     DeviceClass = "virtual"
	DeviceEPaper      DeviceClass = "epaper"
	DeviceFramebuffer DeviceClass = "framebuffer"
)

// ColorMode returns the color depth used for the device class.
// E-paper panels are single channel, everything else is RGB.
func (c DeviceClass) ColorMode() ColorMode {
	if c == DeviceEPaper {
		return ColorGrayscale
	}
	return ColorRGB
}

// DisplayGeometry holds the fixed canvas dimensions
type DisplayGeometry struct {
	Width     int
	Height    int
	ColorMode ColorMode
}

// Bounds returns the canvas rectangle anchored at the origin
func (g DisplayGeometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Frame is a rendered pixel buffer handed to a driver exactly once
type Frame struct {
	Image    image.Image
	Geometry DisplayGeometry
}

var (
	// ErrGeometryMismatch is returned by drivers when a frame does not match the configured size
	ErrGeometryMismatch = errors.New("frame does not match display geometry")
	// ErrNoPlayer is returned by sources when no media player is reachable
	ErrNoPlayer = errors.New("no media player found")
)
