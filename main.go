package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("soundbar", pflag.ExitOnError)
	registerFlags(flags)
	_ = flags.Parse(os.Args[1:])

	v, err := newViper(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, warnings := readConfig(v)
	printConfigWarnings(os.Stderr, warnings)

	if show, _ := flags.GetBool("print-config"); show {
		if err := printConfig(os.Stdout, v); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, logFile, err := setupLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger.Info("starting", "config", v.ConfigFileUsed())

	sc := &SafeConfig{}
	sc.Set(cfg)
	changes := make(chan struct{}, 1)
	if v.ConfigFileUsed() != "" {
		watchConfig(v, sc, changes, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var discovery Discovery
	bus, busErr := NewMprisBus(logger)
	if busErr != nil {
		logger.Error("session bus unavailable", "error", busErr)
	} else {
		discovery = bus
		defer bus.Close()
	}

	mixer, mixerErr := NewMixer(logger)
	if mixerErr != nil {
		logger.Error("mixer unavailable", "error", mixerErr)
	}

	m := newModel(ctx, sc, changes, logger, discovery, busErr, mixer, mixerErr)
	m.supportsKitty = supportsKittyGraphics(os.Getenv)
	known, err := loadKnownPlayers(defaultKnownPlayersFile())
	if err != nil {
		logger.Warn("known players unavailable", "error", err)
	}
	m.known = known

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if discovery != nil {
		go func() {
			if err := discovery.Watch(ctx, p.Send); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("bus watch stopped", "error", err)
			}
		}()
	}
	if mixer != nil {
		go func() {
			err := mixer.Subscribe(ctx, func() { p.Send(mixerChangedMsg{}) })
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mixer subscription stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
