//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"golang.design/x/clipboard"
)

// designBackend uses the cgo clipboard bindings.
type designBackend struct{}

func newBackend() (backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	return designBackend{}, nil
}

func (designBackend) fmt(f format) clipboard.Format {
	if f == formatPNG {
		return clipboard.FmtImage
	}
	return clipboard.FmtText
}

func (b designBackend) read(f format) ([]byte, error) {
	return clipboard.Read(b.fmt(f)), nil
}

func (b designBackend) write(f format, data []byte) error {
	clipboard.Write(b.fmt(f), data)
	return nil
}
