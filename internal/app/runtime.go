package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lsj5031/Hoppy-Whisper/internal/audio"
	"github.com/lsj5031/Hoppy-Whisper/internal/clipboard"
	"github.com/lsj5031/Hoppy-Whisper/internal/config"
	"github.com/lsj5031/Hoppy-Whisper/internal/hotkey"
	"github.com/lsj5031/Hoppy-Whisper/internal/notify"
	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

// recorder is the capture surface the runtime drives.
type recorder interface {
	Start() error
	Stop() []float32
	SetFrameListener(func([]float32))
}

// transcriber turns a WAV file into text.
type transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, []byte, error)
}

// Runtime glues the hotkey engine, the recorder, the detector and the
// transcription client together. It owns no OS resources itself; it reacts
// to start/stop/replay signals and hands audio downstream.
type Runtime struct {
	cfg     config.Config
	log     *logger.Logger
	rec     recorder
	tr      transcriber
	tempDir string

	// paste is swappable so tests run without a display.
	paste func(string) error

	mu          sync.Mutex
	vad         *audio.VAD
	splitter    *audio.FrameSplitter
	vadDegraded bool
	autoStopped bool
	lastText    string

	wg sync.WaitGroup
}

// NewRuntime wires a runtime over the given recorder and transcriber.
func NewRuntime(cfg config.Config, rec recorder, tr transcriber, log *logger.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		log:     log,
		rec:     rec,
		tr:      tr,
		tempDir: config.TempDir(&cfg),
		paste:   clipboard.PasteText,
	}
}

// Callbacks returns the signal handlers to hand to the hotkey engine.
func (r *Runtime) Callbacks() hotkey.Callbacks {
	return hotkey.Callbacks{
		OnRecordStart:   r.onRecordStart,
		OnRecordStop:    r.onRecordStop,
		OnRequestReplay: r.onRequestReplay,
		OnError:         r.onError,
	}
}

// VADDegraded reports whether voice-activity detection failed during the
// current or a previous session and auto-stop is disabled. Raw capture keeps
// working in that state.
func (r *Runtime) VADDegraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vadDegraded
}

// Close waits for in-flight transcription workers.
func (r *Runtime) Close() {
	r.wg.Wait()
}

func (r *Runtime) onRecordStart() {
	r.mu.Lock()
	r.autoStopped = false
	r.vad = nil
	r.splitter = nil
	if r.cfg.VADAutoStop && !r.cfg.ToggleMode {
		// In toggle mode the user controls the stop; silence-triggered
		// stops would also leave the engine toggled on against an
		// already-stopped recorder.
		if r.cfg.Channels != 1 {
			r.log.Warn("auto-stop requires mono capture, disabled",
				logger.Int("channels", r.cfg.Channels))
		} else {
			vad, err := audio.NewVAD(r.cfg.SamplingRate, r.cfg.FrameDurationMS,
				r.cfg.VADAggressiveness, r.cfg.TrailingSilenceMS)
			if err != nil {
				r.vadDegraded = true
				r.log.Error("voice detector unavailable, auto-stop disabled", logger.Error(err))
			} else {
				r.vad = vad
				r.splitter = audio.NewFrameSplitter(vad.FrameSize())
			}
		}
	}
	attachVAD := r.vad != nil
	r.mu.Unlock()

	if attachVAD {
		r.rec.SetFrameListener(r.onFrames)
	} else {
		r.rec.SetFrameListener(nil)
	}

	if err := r.rec.Start(); err != nil {
		var de *audio.DeviceError
		if errors.As(err, &de) {
			r.notify("No microphone available")
		} else {
			r.notify("Recording failed to start")
		}
		r.log.Error("recording start failed", logger.Error(err))
		return
	}
	r.log.Info("recording started")
	r.notify("Recording started")
}

// onFrames runs on the audio hardware thread via the recorder's frame
// listener. It must stay cheap: slice frames, classify, and at most spawn
// one goroutine. Stopping the stream from here would tear down the very
// callback we are running on.
func (r *Runtime) onFrames(chunk []float32) {
	r.mu.Lock()
	if r.vad == nil || r.autoStopped {
		r.mu.Unlock()
		return
	}
	stop := false
	for _, frame := range r.splitter.Push(chunk) {
		_, shouldStop, err := r.vad.ProcessFrame(frame)
		if err != nil {
			r.vad = nil
			r.vadDegraded = true
			r.mu.Unlock()
			r.log.Error("voice detection failed, auto-stop disabled for this session",
				logger.Error(err))
			return
		}
		if shouldStop {
			stop = true
			break
		}
	}
	if stop {
		r.autoStopped = true
	}
	r.mu.Unlock()

	if stop {
		r.log.Info("trailing silence detected, stopping")
		go r.finishRecording()
	}
}

func (r *Runtime) onRecordStop() {
	r.finishRecording()
}

func (r *Runtime) finishRecording() {
	r.rec.SetFrameListener(nil)
	samples := r.rec.Stop()

	// Anything shorter than 100ms is a key fumble, not an utterance.
	minSamples := r.cfg.SamplingRate * r.cfg.Channels / 10
	if len(samples) < minSamples {
		if len(samples) > 0 {
			r.log.Debug("discarding short recording", logger.Int("samples", len(samples)))
		}
		return
	}
	r.log.Info("recording finished",
		logger.Int("samples", len(samples)),
		logger.Duration("length", time.Duration(len(samples)/r.cfg.Channels)*time.Second/time.Duration(r.cfg.SamplingRate)))
	r.notify("Recording finished")

	wavPath := audio.TempWAVPath(r.tempDir)
	if err := audio.WriteWAV(wavPath, samples, r.cfg.SamplingRate, r.cfg.Channels); err != nil {
		r.log.Error("write wav failed", logger.Error(err))
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.transcribeAndPaste(wavPath)
	}()
}

func (r *Runtime) transcribeAndPaste(wavPath string) {
	text, raw, err := r.tr.Transcribe(context.Background(), wavPath)
	if err != nil {
		r.log.Error("transcription failed", logger.Error(err))
		r.notify("Transcription failed")
		r.handleCache(wavPath, false, raw)
		return
	}
	if text == "" {
		r.log.Warn("transcription returned empty text")
		r.notify("Empty transcription")
		r.handleCache(wavPath, true, raw)
		return
	}

	r.mu.Lock()
	r.lastText = text
	r.mu.Unlock()

	if err := r.paste(text); err != nil {
		r.log.Error("paste failed", logger.Error(err))
		r.notify("Paste failed")
	} else {
		r.log.Info("text pasted", logger.Int("chars", len(text)))
	}
	r.handleCache(wavPath, true, raw)
}

func (r *Runtime) onRequestReplay() {
	r.mu.Lock()
	text := r.lastText
	r.mu.Unlock()

	if text == "" {
		r.log.Debug("replay requested but no previous transcription")
		return
	}
	if err := r.paste(text); err != nil {
		r.log.Error("replay paste failed", logger.Error(err))
		r.notify("Paste failed")
		return
	}
	r.log.Info("previous text pasted again", logger.Int("chars", len(text)))
}

func (r *Runtime) onError(err error) {
	r.log.Error("hotkey handler error", logger.Error(err))
	r.notify(fmt.Sprintf("Error: %v", err))
}

func (r *Runtime) notify(message string) {
	if r.cfg.Notification {
		notify.Notify("Hoppy Whisper", message)
	}
}

// handleCache archives or removes the temporary WAV depending on KeepCache,
// and saves the raw response next to it when available.
func (r *Runtime) handleCache(wavPath string, uploadOk bool, resBody []byte) {
	if r.cfg.KeepCache && r.cfg.CacheDir != "" {
		base := fmt.Sprintf("audio-%s", time.Now().Format("2006-01-02-15.04.05"))
		newWav := filepath.Join(r.cfg.CacheDir, base+filepath.Ext(wavPath))
		if err := os.Rename(wavPath, newWav); err != nil {
			r.log.Warn("cache rename failed", logger.Error(err))
			_ = os.Remove(wavPath)
		}
		if uploadOk && len(resBody) > 0 {
			jsonPath := filepath.Join(r.cfg.CacheDir, base+".json")
			if err := os.WriteFile(jsonPath, resBody, 0644); err != nil {
				r.log.Warn("cache response write failed", logger.Error(err))
			}
		}
		return
	}
	_ = os.Remove(wavPath)
}

// CleanupTempFiles removes stale capture temp files left behind by a
// previous run.
func CleanupTempFiles(dir string, log *logger.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("temp cleanup skipped", logger.Error(err))
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "CaptureTemp_") && strings.HasSuffix(name, ".wav") {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				log.Warn("temp cleanup failed", logger.String("path", path), logger.Error(err))
			}
		}
	}
}
