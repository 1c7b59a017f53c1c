package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lsj5031/Hoppy-Whisper/internal/app"
	"github.com/lsj5031/Hoppy-Whisper/internal/audio"
	"github.com/lsj5031/Hoppy-Whisper/internal/config"
	"github.com/lsj5031/Hoppy-Whisper/internal/hotkey"
	"github.com/lsj5031/Hoppy-Whisper/internal/transcribe"
	"github.com/lsj5031/Hoppy-Whisper/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "path to config JSON")
	saveConfig := fs.Bool("save-config", false, "write a default config.json and exit")
	fv := config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if *saveConfig {
		if err := config.SaveDefault("config.json"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("default config created at config.json")
		return
	}

	path := *configPath
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %q: %v\n", path, err)
		os.Exit(1)
	}
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := config.InitCacheDir(&cfg); err != nil {
		log.Warn("cache dir unusable, falling back to working directory", logger.Error(err))
	}
	app.CleanupTempFiles(config.TempDir(&cfg), log)

	recorder := audio.NewRecorder(audio.Settings{
		SampleRate: cfg.SamplingRate,
		Channels:   cfg.Channels,
	}, log.Named("audio"))
	client := transcribe.New(cfg, nil, log.Named("transcribe"))
	runtime := app.NewRuntime(cfg, recorder, client, log.Named("app"))

	engine, err := hotkey.NewEngine(hotkey.Options{
		Chord:       cfg.Hotkey,
		PasteWindow: time.Duration(cfg.PasteWindowSeconds * float64(time.Second)),
		ToggleMode:  cfg.ToggleMode,
	}, runtime.Callbacks(), hotkey.NewSystemListener(), hotkey.NewSystemRegistrar(), log.Named("hotkey"))
	if err != nil {
		log.Error("hotkey setup failed", logger.Error(err))
		os.Exit(1)
	}
	if err := engine.Start(); err != nil {
		log.Error("hotkey engine failed to start", logger.Error(err))
		os.Exit(1)
	}

	log.Info("ready",
		logger.String("hotkey", engine.Chord()),
		logger.Bool("toggle_mode", cfg.ToggleMode),
		logger.Int("sampling_rate", cfg.SamplingRate))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	engine.Stop()
	recorder.Stop()
	runtime.Close()
}
