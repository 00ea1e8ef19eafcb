package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/V-AS/CoinForLooP/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{Bridge: a.dispatcher}
	if a.auditLog != nil {
		deps.InferenceLog = a.auditLog
		deps.DB = a.db
	}

	e := server.New(a.cfg, a.logger, deps)
	httpServer := server.NewHTTPServer(a.cfg.Server, e)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started",
			slog.String("addr", httpServer.Addr),
			slog.String("provider", a.cfg.AI.Provider),
			slog.String("model", a.cfg.AI.Model),
			slog.Bool("audit", a.cfg.Audit.Enabled),
		)
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("http server failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		return err
	}

	return nil
}
