package renderer

import "time"

// Statistics describes the timing of the most recent frame
type Statistics struct {
	// PureFrameTime is the time spent rendering, in seconds
	PureFrameTime float32
	// CappedFrameTime also includes the buffer swap, so it contains any
	// vsync wait
	CappedFrameTime float32
	// FramesPerSecond is the number of frames finished during the last
	// complete one second window
	FramesPerSecond int
	// DrawnSurfaces and LightsDrawn count work done in the last frame
	DrawnSurfaces int
	LightsDrawn   int

	frameCounter  int
	frameStart    time.Time
	lastFPSCommit time.Time
	initialized   bool
}

func (s *Statistics) beginFrame(now time.Time) {
	if !s.initialized {
		s.lastFPSCommit = now
		s.initialized = true
	}
	s.frameStart = now
	s.DrawnSurfaces = 0
	s.LightsDrawn = 0
}

// endFrame runs after all rendering and before the swap
func (s *Statistics) endFrame(now time.Time) {
	s.PureFrameTime = float32(now.Sub(s.frameStart).Seconds())
	s.frameCounter++

	if now.Sub(s.lastFPSCommit) >= time.Second {
		s.lastFPSCommit = now
		s.FramesPerSecond = s.frameCounter
		s.frameCounter = 0
	}
}

// finalize runs after the swap
func (s *Statistics) finalize(now time.Time) {
	s.CappedFrameTime = float32(now.Sub(s.frameStart).Seconds())
}
