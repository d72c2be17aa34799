package barcode

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrNoBackend is returned by the "none" backend.
	ErrNoBackend = errors.New("barcode: no decoder backend configured")
	// ErrNotFound means the backend found no symbol.
	ErrNotFound = errors.New("barcode: no symbol found")
)

// noBackend decodes nothing. It lets detection run without a decoder.
type noBackend struct{}

func (noBackend) Decode(_ context.Context, _ image.Image, _ Options) ([]Result, error) {
	return nil, ErrNoBackend
}
