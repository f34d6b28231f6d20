package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/wthud/internal/app"
	"codeberg.org/mutker/wthud/internal/config"
	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	logger.Init(level, logger.IsService())
	if err != nil {
		logger.Warn().Err(err).Msg("Unknown log level, using info")
	}

	warnings, err := cfg.Validate()
	if err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Str("config", cfg.Path()).Msg("Invalid configuration")
		}
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	for _, w := range warnings {
		logger.Warn().Str("config", cfg.Path()).Msg(w)
	}

	logger.Debug().Str("config", cfg.Path()).Str("overlay", cfg.Overlay).Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)
	if app.IsChild() {
		app.StopOnEOF(os.Stdin, func() {
			logger.Info().Msg("Launcher asked to stop.")
			cancel()
		})
	}

	if err := app.Run(ctx, cfg, os.Args[1:]); err != nil {
		logger.Error().Err(err).Msg("Overlay exited with error")
		cancel()
		os.Exit(1)
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
