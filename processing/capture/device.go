package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"camsnap/internal/models"
)

// Device owns one camera handle for the lifetime of the application.
type Device struct {
	mu sync.Mutex

	backend Backend
	index   int
	open    bool

	logger *slog.Logger
}

func NewDevice(backend Backend, index int, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}

	return &Device{
		backend: backend,
		index:   index,
		logger:  logger,
	}
}

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}

	if err := d.backend.Open(d.index); err != nil {
		d.logger.Error("open camera", "index", d.index, "error", err)
		return fmt.Errorf("%w: camera %d: %v", ErrDeviceUnavailable, d.index, err)
	}

	d.open = true
	d.logger.Info("camera opened", "index", d.index)

	return nil
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Device) Read() (*models.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, fmt.Errorf("%w: device not open", ErrReadFailure)
	}

	frame, err := d.backend.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	if frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrReadFailure)
	}

	return frame, nil
}

// Close releases the handle. Safe to call on a device that never opened.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}

	d.open = false
	d.logger.Info("camera released", "index", d.index)

	return d.backend.Close()
}
