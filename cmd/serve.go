package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace HTTP API",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		ctx := cmd.Context()

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = svc.App.Config.HTTP.Addr
		}
		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := svc.App.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           svc.HTTP.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logging.Warn(ctx, "http server shutdown failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logging.Info(ctx, "http server started", slog.String("addr", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "serve http")
		}
		logging.Info(ctx, "http server stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to http.addr from config)")
	serveCmd.Flags().Bool("migrate", false, "Run schema migration before serving")
}
