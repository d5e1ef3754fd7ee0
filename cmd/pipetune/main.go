package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pipetune/pipetune/internal/api"
	"github.com/pipetune/pipetune/internal/config"
	"github.com/pipetune/pipetune/internal/engine"
	"github.com/pipetune/pipetune/internal/player"
	"github.com/pipetune/pipetune/internal/prefs"
	"github.com/pipetune/pipetune/internal/resolver"
	"github.com/pipetune/pipetune/internal/service"
	"github.com/pipetune/pipetune/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	debugFlag   = flag.Bool("debug", false, "Enable debug logging")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s v%s - %s\n\n", config.AppName, config.AppVersion, config.AppDescription)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()

		configPath, err := config.GetConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Fprintf(os.Stderr, "\nConfig file: %s\n", configPath)
			} else {
				fmt.Fprintf(os.Stderr, "\nConfig file will be created on first use.\n")
			}
		}
	}
}

func logDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, "pipetune"), nil
}

func setupLogging() {
	if *debugFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)

		dir, err := logDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not get cache dir: %v\n", err)
			dir = os.TempDir()
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log dir: %v\n", err)
		}
		logPath := filepath.Join(dir, "debug.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
			logFile = os.Stderr
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, TimeFormat: "15:04:05"})
		fmt.Printf("Debug log: %s\n", logPath)
		log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)
		return
	}

	// Avoid TUI corruption by only logging errors to /dev/null
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	logFile, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644)
	if err == nil {
		log.Logger = log.Output(logFile)
	}
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		fmt.Println(config.AppDescription)
		os.Exit(0)
	}

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
	}

	prefsPath, err := prefs.DefaultPath(config.ConfigDir)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to locate preference table, preferences will not persist")
		prefsPath = filepath.Join(os.TempDir(), prefs.FileName)
	}
	store := prefs.NewStore(prefsPath)

	searchesPath, err := config.GetSearchesPath()
	if err != nil {
		searchesPath = filepath.Join(os.TempDir(), config.SearchesFileName)
	}
	searches := config.NewSearchHistory(searchesPath)

	client := api.NewClient(cfg.APIBase)
	var catalog *api.CatalogClient
	if cfg.CatalogBase != "" {
		catalog = api.NewCatalogClient(cfg.CatalogBase)
	}

	res := resolver.New(client, catalog, store)
	chain := resolver.NewChain(cfg.PipedInstances, cfg.InvidiousInstances)
	coordinator := player.NewCoordinator(cfg.Playback.Volume)
	audioEngine := engine.NewEngine()

	svc := service.NewPlaybackService(client, res, chain, coordinator, audioEngine, searches)
	audioEngine.OnTrackEnd(svc.HandleTrackEnd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	appUI := ui.NewUI(svc, coordinator, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		if *debugFlag {
			log.Info().Msg("Received shutdown signal, cleaning up...")
		}
		appUI.Shutdown()
	}()

	uiDone := make(chan error, 1)

	// Run UI in a goroutine so we can handle signals properly
	go func() {
		uiDone <- appUI.Run()
	}()

	if err := <-uiDone; err != nil {
		if *debugFlag {
			log.Error().Err(err).Msg("Error running UI")
		}
		audioEngine.Stop()
		os.Exit(1)
	}

	audioEngine.Stop()
	if *debugFlag {
		log.Info().Msg("PipeTune stopped")
	}
}
