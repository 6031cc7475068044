package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/omochice/whisper-chat/internal/cipher"
	"github.com/omochice/whisper-chat/internal/config"
	"github.com/omochice/whisper-chat/internal/hangul"
	"github.com/omochice/whisper-chat/internal/identity"
	"github.com/omochice/whisper-chat/internal/session"
	"github.com/omochice/whisper-chat/internal/transport/ws"
	"github.com/omochice/whisper-chat/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var logOutput string
	var logLevel string
	var metricsAddr string

	flagSet := pflag.NewFlagSet("whisper", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to the config file (default: $"+config.EnvVar+" or "+config.DefaultPath+")")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file instead of the status line")
	flagSet.StringVar(&logLevel, "log-level", "warn", "minimum log level: debug, info, warn, error")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "serve session metrics on this address")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	var level slog.LevelVar
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	codec, err := cipher.New([]byte(cfg.Secret))
	if err != nil {
		return err
	}
	id := identity.New(cfg.UserID)

	var logger *slog.Logger
	var tuiHandler *ui.LogHandler
	if logOutput != "" {
		file, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log output: %w", err)
		}
		defer file.Close()
		logger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: &level}))
	} else {
		tuiHandler = ui.NewLogHandler(&level)
		logger = slog.New(tuiHandler)
	}

	var metrics session.Metrics
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = session.NewPromMetrics(registry)
		metricsServer := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	var program *tea.Program
	manager := session.New(session.Options{
		URL:      cfg.Backend,
		Identity: id,
		Codec:    codec,
		Dialer:   &ws.Dialer{},
		Logger:   logger,
		Backoff:  time.Duration(cfg.ReconnectDelay),
		Metrics:  metrics,
		OnMessage: func(plaintext string) {
			program.Send(ui.LineMsg{Plaintext: plaintext})
		},
		OnState: func(state session.State) {
			program.Send(ui.StateMsg{State: state})
		},
	})

	model := ui.New(ui.Options{
		Sender:   manager,
		Identity: id,
		Shaper:   newShaper(cfg),
		Location: cfg.Location(),
		Logger:   logger,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())
	if tuiHandler != nil {
		tuiHandler.SetProgram(program)
	}

	manager.Start()
	defer manager.Stop()

	_, err = program.Run()
	return err
}

func newShaper(cfg *config.Config) hangul.Shaper {
	switch cfg.Shaper {
	case config.ShaperNode:
		return hangul.NewNodeShaper(cfg.ComposeScript)
	case config.ShaperNone:
		return hangul.Passthrough{}
	default:
		return hangul.Assembler{}
	}
}
