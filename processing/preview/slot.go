package preview

import (
	"image"
	"sync/atomic"
)

type FrameSnapshot struct {
	Image    *image.RGBA
	Sequence uint64
}

// Slot holds the most recent preview frame. Writers never block readers.
type Slot struct {
	latest   atomic.Pointer[FrameSnapshot]
	sequence atomic.Uint64
}

func (s *Slot) Present(img *image.RGBA) {
	seq := s.sequence.Add(1)
	s.latest.Store(&FrameSnapshot{Image: img, Sequence: seq})
}

// Latest returns the zero snapshot until the first frame arrives.
func (s *Slot) Latest() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}
