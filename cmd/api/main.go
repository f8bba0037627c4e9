// Command api runs the gridcapacity API server with its default
// configuration. It is the container entrypoint; the gridcapacity CLI
// serves the same API through "gridcapacity serve" with a config file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridcapacity/internal/api"
	"gridcapacity/internal/config"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	env := envs.Load()
	log, err := logging.New(env.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadServer(os.Getenv("GRID_CAPACITY_SERVER_CONFIG"), env)
	if err != nil {
		return err
	}
	server, err := api.New(cfg, env, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
