package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yassen717/Chatly/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Chatly HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(debug)
		if err != nil {
			return err
		}
		defer app.shutdown()

		port := servePort
		if port == 0 {
			port = app.cfg.Server.Port
		}

		server := api.NewServer(app.store, app.orchestrator, app.auth, app.logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(port)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case sig := <-sigCh:
			app.logger.Info("shutting down", "signal", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
}
