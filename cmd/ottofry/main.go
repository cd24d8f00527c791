// OttoFry is a voice-enabled air fryer cooking timer.
//
// Usage:
//
//	ottofry [-config ottofry.yaml] [-verbose] [-quiet] [-no-speech]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/ottofry/internal/alert"
	"github.com/hammamikhairi/ottofry/internal/config"
	"github.com/hammamikhairi/ottofry/internal/conversation"
	"github.com/hammamikhairi/ottofry/internal/display"
	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/engine"
	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/recipe"
	"github.com/hammamikhairi/ottofry/internal/speech"
	"github.com/hammamikhairi/ottofry/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ottofry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (\"stderr\" logs to console; default from config)")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if Azure keys are set")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	catalogFile := flag.String("catalog", "", "YAML food list replacing the built-in one")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.LookupEnv, logger.New(logger.LevelOff, nil))
	if err != nil {
		return err
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *catalogFile != "" {
		cfg.Catalog.File = *catalogFile
	}
	if *noSpeech {
		cfg.Voice.Backend = config.VoiceNone
	}

	logLevel, _ := logger.ParseLevel(cfg.Log.Level)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the terminal UI stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.Log.File != "" && cfg.Log.File != "stderr" {
		if dir := filepath.Dir(cfg.Log.File); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.Log.File, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	// Third-party libraries logging through the standard logger (badger
	// falls back to it) land in the same place.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──
	store, err := storage.Open(cfg.Preferences.Backend, cfg.Preferences.Path, log.With("prefs"))
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}
	defer store.Close()
	prefs := storage.NewPreferences(store)

	// ── Catalog ──
	catalog := recipe.NewMemorySource(log.With("catalog"))
	var watcher *recipe.Watcher
	if cfg.Catalog.File != "" {
		if err := catalog.LoadFile(cfg.Catalog.File); err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		if cfg.Catalog.Watch {
			watcher = recipe.NewWatcher(catalog, cfg.Catalog.File, log.With("catalog"))
		}
	}

	// ── Output ──
	ui := display.NewUI()

	var voice domain.VoiceSink
	var mouth *speech.Mouth
	if cfg.VoiceReady() {
		mouth, err = newMouth(cfg, log.With("speech"))
		if err != nil {
			log.Error("speech disabled: %v", err)
		}
	} else if cfg.Voice.Backend == config.VoiceAzure {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
	}
	if mouth != nil {
		voice = mouth
	} else {
		voice = speech.NewNoOp(log.With("speech"))
	}

	notifier := conversation.NewCLINotifier(log.With("notify"), ui.Printf)
	alerts := alert.NewDispatcher(ctx, notifier, voice, log.With("alert"), alert.WithVoicePreference(prefs))

	// ── Engine ──
	engOpts := []engine.Option{
		engine.WithTickInterval(cfg.Engine.TickInterval),
		engine.WithAlertWindow(cfg.Engine.AlertWindow),
		engine.WithRecentRecorder(prefs),
	}
	if cfg.Engine.SelectionPolicy == config.SelectionReject {
		engOpts = append(engOpts, engine.WithSelectionGuard())
	}
	eng := engine.New(catalog, alerts, log.With("engine"), engOpts...)
	defer eng.Close()

	snaps, unsubscribe := eng.Subscribe(4)
	defer unsubscribe()
	ui.Follow(snaps)

	app := &cliApp{
		engine:   eng,
		catalog:  catalog,
		alerts:   alerts,
		prefs:    prefs,
		parser:   conversation.NewKeywordParser(log.With("parser")),
		ui:       ui,
		log:      log.With("app"),
		setUnits: ui.SetCelsius,
	}
	if mouth != nil {
		app.prefetch = mouth.Prefetch
	}
	if watcher != nil {
		app.reloaded = watcher.Reloaded()
	}

	// ── Lifecycle ──
	g, gctx := errgroup.WithContext(ctx)
	if mouth != nil {
		g.Go(func() error { return mouth.Run(gctx) })
		mouth.Warm(gctx, alert.StaticLines()...)
	}
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, newRouter(eng), log.With("http")) })
	}
	g.Go(func() error {
		if !ui.WaitReady() {
			return nil
		}
		app.run(gctx, ui.InputChan())
		ui.Quit()
		return nil
	})
	// Stop the UI when a background service fails or a signal arrives.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			ui.Quit()
		case <-ui.QuitChan():
		}
		return nil
	})

	fmt.Println(display.RenderBanner())

	// Bubble Tea owns the terminal and blocks until quit.
	uiErr := ui.Run()
	stop()

	if err := eng.Close(); err != nil {
		log.Warn("closing engine: %v", err)
	}
	waitErr := waitTimeout(g, 3*time.Second)
	log.Info("shutdown complete")
	return errors.Join(uiErr, waitErr)
}

func newMouth(cfg config.Config, log *logger.Logger) (*speech.Mouth, error) {
	var opts []speech.AzureOption
	if cfg.Voice.Name != "" {
		opts = append(opts, speech.WithVoice(cfg.Voice.Name))
	}
	tts, err := speech.NewAzureClient(cfg.Voice.AzureKey, cfg.Voice.AzureRegion, log, opts...)
	if err != nil {
		return nil, err
	}
	out, err := speech.NewOtoOut(log)
	if err != nil {
		return nil, err
	}
	log.Info("TTS enabled (voice=%s, region=%s)", tts.Voice(), cfg.Voice.AzureRegion)
	return speech.NewMouth(tts, out, log,
		speech.WithCacheDir(cfg.Voice.CacheDir),
		speech.WithDiskWrite(cfg.Voice.CacheWrite),
		speech.WithClipLimit(cfg.Voice.CacheEntries),
		speech.WithClipMaxAge(cfg.Voice.CacheMaxAge),
		speech.WithChunkSize(cfg.Voice.ChunkSize),
	), nil
}

// waitTimeout waits for g, giving up after d so a stuck service can't
// hang the exit.
func waitTimeout(g *errgroup.Group, d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		return fmt.Errorf("shutdown timed out after %s", d)
	}
}
