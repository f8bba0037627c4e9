package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gridcapacity/internal/api"
	"gridcapacity/internal/config"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/logging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Serve exposes the solver session protocol and capacity analysis runs
over HTTP. Remote clients set GRID_CAPACITY_SOLVER_URL to this server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envs.Load()
			log, err := logging.New(verboseFlag(cmd) || env.Verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadServer(cfgPath, env)
			if err != nil {
				return err
			}
			server, err := api.New(cfg, env, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
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
		},
	}
	cmd.Flags().String("config", "", "Server config file (YAML)")
	return cmd
}
