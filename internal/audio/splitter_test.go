package audio

import "testing"

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestSplitterCarriesRemainder(t *testing.T) {
	s := NewFrameSplitter(320)

	frames := s.Push(ramp(0, 100))
	if len(frames) != 0 {
		t.Fatalf("got %d frames from a short chunk, want 0", len(frames))
	}
	if s.Pending() != 100 {
		t.Fatalf("Pending() = %d, want 100", s.Pending())
	}

	frames = s.Push(ramp(100, 300))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if s.Pending() != 80 {
		t.Fatalf("Pending() = %d, want 80", s.Pending())
	}
	// The frame is the first 320 samples in arrival order.
	for i, v := range frames[0] {
		if v != float32(i) {
			t.Fatalf("frame[%d] = %v, want %d", i, v, i)
		}
	}
}

func TestSplitterMultipleFramesPerPush(t *testing.T) {
	s := NewFrameSplitter(320)
	frames := s.Push(ramp(0, 1000))
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if s.Pending() != 40 {
		t.Fatalf("Pending() = %d, want 40", s.Pending())
	}
	// Frames cover the input contiguously and in order.
	for fi, frame := range frames {
		for i, v := range frame {
			want := float32(fi*320 + i)
			if v != want {
				t.Fatalf("frame %d sample %d = %v, want %v", fi, i, v, want)
			}
		}
	}
	// Remainder continues where the frames left off.
	rest := s.Push(ramp(1000, 280))
	if len(rest) != 1 {
		t.Fatalf("got %d frames on follow-up push, want 1", len(rest))
	}
	if rest[0][0] != 960 {
		t.Fatalf("follow-up frame starts at %v, want 960", rest[0][0])
	}
}

func TestSplitterReset(t *testing.T) {
	s := NewFrameSplitter(320)
	s.Push(ramp(0, 300))
	s.Reset()
	if s.Pending() != 0 {
		t.Fatalf("Pending() after reset = %d, want 0", s.Pending())
	}
	frames := s.Push(ramp(0, 320))
	if len(frames) != 1 || frames[0][0] != 0 {
		t.Fatal("reset did not drop the carried remainder")
	}
}
