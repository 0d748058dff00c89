package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trafficd/internal/api"
	"trafficd/internal/config"
	"trafficd/internal/core"
	"trafficd/internal/eventlog"
	"trafficd/internal/hal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signal control API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	mgr := config.NewManager(cfgPath)
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get()

	chip, err := hal.Open(cfg.GPIOChip)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %d: %w", cfg.GPIOChip, err)
	}
	// NewStore claims every configured pin and forces the intersection red.
	// Any failure here is fatal: the server must not accept requests with an
	// unclaimed pin.
	store, err := core.NewStore(core.NewDriver(chip), cfg.Signals)
	if err != nil {
		_ = chip.Close()
		return fmt.Errorf("initialisation error: %w", err)
	}
	events := eventlog.New(cfg.LogFile)
	events.Log("startup: %d signals, all red", len(cfg.Signals))

	srv := api.NewServer(cfg, store, events)

	// Capture exit signals so the lights are forced red and the chip is
	// released even when the process is interrupted.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case sig := <-quit:
		log.Printf("received %s, shutting down\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v\n", err)
		}
		cancel()
	}

	// Best-effort cleanup: all red, then release the hardware handle.
	if err := store.ResetAllRed(); err != nil {
		log.Printf("cleanup: failed to force all red: %v\n", err)
	}
	if err := chip.Close(); err != nil {
		log.Printf("cleanup: failed to close GPIO chip: %v\n", err)
	}
	events.Log("shutdown complete")
	return serveErr
}
