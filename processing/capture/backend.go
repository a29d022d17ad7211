package capture

import (
	"errors"

	"camsnap/internal/models"
)

var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrReadFailure       = errors.New("frame read failed")
)

// Backend is a camera access implementation. Backends are not required to
// be safe for concurrent use; Device serialises calls.
type Backend interface {
	Open(index int) error
	Read() (*models.Frame, error)
	Close() error
}
