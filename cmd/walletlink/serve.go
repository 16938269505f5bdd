package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexZinkM/walletlink/internal/api"
	"github.com/AlexZinkM/walletlink/internal/handler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the relay and callback pages and process wallet callbacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		bridge := handler.NewBridgeHandler(
			a.link,
			a.store,
			a.cfg.PhantomBaseURL,
			a.cfg.RedirectLink,
			int(a.cfg.PendingFlowTTL.Seconds()),
			a.log.Named("bridge"),
		)
		srv := &http.Server{
			Addr:              ":" + a.cfg.Port,
			Handler:           api.SetupRouter(bridge),
			ReadHeaderTimeout: 10 * time.Second,
		}

		onExit := make(chan error, 2)
		go func() {
			a.log.Info("http server start", zap.String("addr", srv.Addr), zap.String("platform", a.cfg.Platform))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				onExit <- err
			}
		}()
		go func() {
			if err := a.link.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				onExit <- err
			}
		}()

		var runErr error
		select {
		case <-ctx.Done():
			a.log.Info("exit by signal")
		case runErr = <-onExit:
			a.log.Error("exit by error", zap.Error(runErr))
			cancel()
		}

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http server shutdown", zap.Error(err))
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
