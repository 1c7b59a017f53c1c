package audio

// FrameSplitter re-slices arbitrarily sized hardware callback chunks into
// exact detector frames, carrying the trailing partial remainder across
// pushes. Not safe for concurrent use; callers feed it from one goroutine
// in arrival order.
type FrameSplitter struct {
	frameSize int
	carry     []float32
}

func NewFrameSplitter(frameSize int) *FrameSplitter {
	return &FrameSplitter{frameSize: frameSize}
}

// Push appends chunk to the carried remainder and returns every whole frame
// now available, in order. Returned frames are fresh copies.
func (s *FrameSplitter) Push(chunk []float32) [][]float32 {
	s.carry = append(s.carry, chunk...)
	var frames [][]float32
	for len(s.carry) >= s.frameSize {
		frame := make([]float32, s.frameSize)
		copy(frame, s.carry[:s.frameSize])
		frames = append(frames, frame)
		s.carry = s.carry[s.frameSize:]
	}
	if len(frames) > 0 {
		// Re-anchor the remainder so the backing array of consumed
		// frames can be collected.
		rest := make([]float32, len(s.carry))
		copy(rest, s.carry)
		s.carry = rest
	}
	return frames
}

// Pending returns the number of carried-over samples awaiting a full frame.
func (s *FrameSplitter) Pending() int { return len(s.carry) }

// Reset drops any carried remainder.
func (s *FrameSplitter) Reset() { s.carry = nil }
