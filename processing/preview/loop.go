package preview

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"camsnap/internal/models"
)

const DefaultInterval = 10 * time.Millisecond

type FrameReader interface {
	Read() (*models.Frame, error)
}

// Sink receives every successfully read frame, already in RGBA order.
type Sink interface {
	Present(img *image.RGBA)
}

type Stats struct {
	Presented uint64
	Skipped   uint64
	FPS       uint
}

// Loop pulls frames from the camera on its own ticker and pushes them to a
// Sink. A failed read skips the tick; the loop ends only with its context.
type Loop struct {
	src      FrameReader
	sink     Sink
	interval time.Duration
	logger   *slog.Logger

	presented atomic.Uint64
	skipped   atomic.Uint64
	running   atomic.Bool

	mu            sync.RWMutex
	fps           uint
	frameCount    uint
	lastFpsUpdate time.Time
}

func NewLoop(src FrameReader, sink Sink, interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		src:      src,
		sink:     sink,
		interval: interval,
		logger:   logger,
	}
}

func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

func (l *Loop) Run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.mu.Lock()
	l.lastFpsUpdate = time.Now()
	l.mu.Unlock()

	l.logger.Debug("preview loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("preview loop stopped",
				"presented", l.presented.Load(),
				"skipped", l.skipped.Load())
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() bool {
	frame, err := l.src.Read()
	if err != nil {
		l.skipped.Add(1)
		l.logger.Debug("preview read skipped", "error", err)
		return false
	}

	img := frame.ToRGBA()
	if img == nil {
		l.skipped.Add(1)
		return false
	}

	l.sink.Present(img)
	l.presented.Add(1)

	l.mu.Lock()
	l.frameCount++
	if time.Since(l.lastFpsUpdate) >= time.Second {
		l.fps = l.frameCount
		l.frameCount = 0
		l.lastFpsUpdate = time.Now()
	}
	l.mu.Unlock()

	return true
}

func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

func (l *Loop) FPS() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fps
}

func (l *Loop) Stats() Stats {
	return Stats{
		Presented: l.presented.Load(),
		Skipped:   l.skipped.Load(),
		FPS:       l.FPS(),
	}
}
