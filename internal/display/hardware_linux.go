//go:build linux
// +build linux

package display

import (
	"fmt"

	fb "github.com/gonutz/framebuffer"
	"golang.org/x/sys/unix"
)

// spidevChunk is the default spidev transfer limit (bufsiz)
const spidevChunk = 4096

// probeDevice checks that a device node exists and is writable
func probeDevice(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no device configured", ErrNoHardware)
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoHardware, path, err)
	}
	return nil
}

func openFramebuffer(path string) (pixelSink, func(), error) {
	dev, err := fb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return dev, func() { dev.Close() }, nil
}

// spiPanel streams packed frames to a spidev character device
type spiPanel struct {
	path string
	size int
	fd   int
}

func openSPIPanel(path string, size int) (Panel, error) {
	p := &spiPanel{path: path, size: size, fd: -1}
	if err := p.reopen(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *spiPanel) reopen() error {
	if p.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(p.path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.path, err)
	}
	p.fd = fd
	return nil
}

func (p *spiPanel) Init() error {
	return p.reopen()
}

func (p *spiPanel) Display(buf []byte) error {
	if len(buf) != p.size {
		return fmt.Errorf("panel expects %d bytes, got %d", p.size, len(buf))
	}
	if err := p.reopen(); err != nil {
		return err
	}
	for len(buf) > 0 {
		n, err := unix.Write(p.fd, buf[:min(len(buf), spidevChunk)])
		if err != nil {
			return fmt.Errorf("write %s: %w", p.path, err)
		}
		buf = buf[n:]
	}
	return nil
}

func (p *spiPanel) Clear() error {
	white := make([]byte, p.size)
	for i := range white {
		white[i] = 0xFF
	}
	return p.Display(white)
}

// Sleep releases the device node; the next Display reopens it
func (p *spiPanel) Sleep() error {
	return p.Close()
}

func (p *spiPanel) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
