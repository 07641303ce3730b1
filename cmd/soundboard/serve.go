package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	httpapp "github.com/krywicki/discord-sounboard-bot/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		h := httpapp.NewHandler(e.catalog, e.log)
		h.RegisterRoutes(r)

		srv := &http.Server{
			Addr:              ":" + e.cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			e.log.Info("Server listening", "addr", srv.Addr, "db", e.cfg.DBPath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		e.log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.log.Error("Server forced to shutdown", "error", err)
			return err
		}

		e.log.Info("Server exiting")
		return nil
	},
}

