package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// TempWAVPath returns a unique WAV file path under dir (or the working
// directory when dir is empty).
func TempWAVPath(dir string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = cwd
	}
	return filepath.Join(dir, fmt.Sprintf("CaptureTemp_%s.wav", id))
}

// WriteWAV writes float32 samples as 16-bit PCM. Samples outside [-1, 1]
// are clipped.
func WriteWAV(path string, samples []float32, sampleRate, channels int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(clampSample(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		file.Close()
		os.Remove(path)
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("finalize wav: %w", err)
	}
	return file.Close()
}

func clampSample(s float32) int16 {
	v := s * 32767
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
