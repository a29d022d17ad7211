package capture

import (
	"fmt"
	"log/slog"

	config "camsnap/internal/config"
)

func NewBackend(c config.CaptureConfig, logger *slog.Logger) (Backend, error) {
	switch c.Backend {
	case config.BackendGoCV, "":
		return NewGoCVBackend(c.Width, c.Height), nil
	case config.BackendFFmpeg:
		return NewFFmpegWebcam(c.DeviceName, c.FPS, c.Width, c.Height, logger), nil
	default:
		return nil, fmt.Errorf("unknown capture backend: %s", c.Backend)
	}
}

// NewDeviceFromConfig builds the backend named in the config and wraps it.
func NewDeviceFromConfig(cfg *config.Config, logger *slog.Logger) (*Device, error) {
	c := cfg.GetCapture()

	backend, err := NewBackend(c, logger)
	if err != nil {
		return nil, err
	}

	return NewDevice(backend, c.DeviceIndex, logger), nil
}
