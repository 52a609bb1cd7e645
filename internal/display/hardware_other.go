//go:build !linux
// +build !linux

package display

import "fmt"

func probeDevice(path string) error {
	return fmt.Errorf("%w: only supported on linux", ErrNoHardware)
}

func openFramebuffer(path string) (pixelSink, func(), error) {
	return nil, nil, ErrNoHardware
}

func openSPIPanel(path string, size int) (Panel, error) {
	return nil, ErrNoHardware
}
