package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/omochice/whisper-chat/internal/cipher"
	"github.com/omochice/whisper-chat/internal/config"
	"github.com/omochice/whisper-chat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr string
	var secret string
	var configPath string
	var logLevel string

	flagSet := pflag.NewFlagSet("whisper-relay", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", ":8080", "address to listen on")
	flagSet.StringVar(&secret, "secret", "", "shared 16-byte secret (default: the secret from --config)")
	flagSet.StringVarP(&configPath, "config", "c", "", "client config file to read the secret from")
	flagSet.StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if secret == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("no --secret given: %w", err)
		}
		secret = cfg.Secret
	}
	codec, err := cipher.New([]byte(secret))
	if err != nil {
		return err
	}

	srv := server.New(addr, codec, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		srv.Stop()
	}

	logger.Info("relay stopped")
	return nil
}
