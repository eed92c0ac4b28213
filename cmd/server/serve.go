package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agenthands/symbiosis/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if port != "" {
				a.cfg.Server.Port = port
			}
			return runServe(ctx, a)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides config and $PORT)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	hub := server.NewHub(a.logger)

	companion, cleanup, err := a.companion(ctx, hub)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.NewServer(companion, hub, a.logger)
	return srv.Run(ctx, ":"+a.cfg.Server.Port)
}
