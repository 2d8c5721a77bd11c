package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/studyscout/internal/config"
	"github.com/csheth/studyscout/internal/logging"
	"github.com/csheth/studyscout/internal/tui"
	"github.com/csheth/studyscout/internal/webui"
)

// Flags override the config file; unset flags leave file values alone, so
// none of them carry kong defaults.
var cli struct {
	Config      string `help:"Path to a YAML config file." type:"path"`
	Server      string `help:"Backend base URL, e.g. http://localhost:8080."`
	Token       string `help:"Bearer token for the backend." env:"STUDYSCOUT_TOKEN"`
	LogFile     string `help:"Write debug logs to this file (stdout belongs to the TUI)." type:"path"`
	LogLevel    string `help:"Log level: debug, info, warn, error."`
	NoAltScreen bool   `help:"Disable the alternate screen buffer."`
}

func main() {
	_ = kong.Parse(&cli,
		kong.Name("studyscout"),
		kong.Description("Review your study chats in the terminal."),
	)
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "studyscout:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cli.Server != "" {
		cfg.Server.URL = cli.Server
	}
	if cli.Token != "" {
		cfg.Server.Token = cli.Token
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.NoAltScreen {
		cfg.UI.NoAltScreen = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend, err := webui.New(webui.Config{
		BaseURL: cfg.Server.URL,
		Token:   cfg.Server.Token,
		Logger:  logger.Named("webui"),
	})
	if err != nil {
		return err
	}

	opts := []tea.ProgramOption{}
	if !cfg.UI.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Backend:          backend,
			Logger:           logger.Named("tui"),
			RequestTimeout:   time.Duration(cfg.Server.TimeoutSec) * time.Second,
			SummarizeTimeout: time.Duration(cfg.Server.SummarizeTimeoutSec) * time.Second,
		}),
		opts...,
	)

	logger.Info("starting studyscout",
		zap.String("server", cfg.Server.URL),
		zap.Bool("alt_screen", !cfg.UI.NoAltScreen),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
