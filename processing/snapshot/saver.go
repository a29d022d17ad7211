package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"camsnap/internal/models"

	"github.com/disintegration/imaging"
)

var (
	ErrWebcamUnavailable = errors.New("webcam not available")
	ErrNameRequired      = errors.New("please enter a name")
	ErrLocationRequired  = errors.New("please select a save location")
	ErrCaptureFailed     = errors.New("failed to capture image")
)

const DefaultJPEGQuality = 95

// Camera is the part of the capture device the saver needs.
type Camera interface {
	IsOpen() bool
	Read() (*models.Frame, error)
}

// Publisher is notified with the encoded file after every successful save.
type Publisher interface {
	Publish(snap models.Snapshot)
}

type Saver struct {
	camera    Camera
	publisher Publisher
	quality   int
	logger    *slog.Logger

	mu     sync.RWMutex
	target models.SaveTarget
}

func NewSaver(camera Camera, quality int, logger *slog.Logger) *Saver {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Saver{
		camera:  camera,
		quality: quality,
		logger:  logger,
	}
}

func (s *Saver) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Saver) SetDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target.Directory = dir
}

func (s *Saver) Directory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target.Directory
}

// Target pairs the chosen directory with name in one consistent read.
func (s *Saver) Target(name string) models.SaveTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SaveTarget{Directory: s.target.Directory, Name: name}
}

// Save grabs a fresh frame and writes it to {directory}/{name}.jpg,
// replacing any existing file of that name.
func (s *Saver) Save(name string) (string, error) {
	target := s.Target(name)

	if err := s.validate(target); err != nil {
		s.logger.Warn("capture rejected", "error", err)
		return "", err
	}

	frame, err := s.camera.Read()
	if err != nil {
		s.logger.Error("capture read", "error", err)
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	img := frame.ToRGBA()
	if img == nil {
		return "", fmt.Errorf("%w: empty frame", ErrCaptureFailed)
	}

	path := target.Path()
	if err := imaging.Save(img, path, imaging.JPEGQuality(s.quality)); err != nil {
		s.logger.Error("write image", "path", path, "error", err)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info("image saved", "path", path, "width", frame.Width, "height", frame.Height)

	s.publish(target, path)

	return path, nil
}

func (s *Saver) validate(t models.SaveTarget) error {
	if s.camera == nil || !s.camera.IsOpen() {
		return ErrWebcamUnavailable
	}
	if !t.HasName() {
		return ErrNameRequired
	}
	if !t.HasDirectory() {
		return ErrLocationRequired
	}
	return nil
}

func (s *Saver) publish(t models.SaveTarget, path string) {
	if s.publisher == nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("relay read back", "path", path, "error", err)
		return
	}

	s.publisher.Publish(models.Snapshot{Name: t.Name + models.ImageExt, Data: data})
}
