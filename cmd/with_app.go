package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"homematch/internal/bootstrap"
	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/transport/httpapi"
	"homematch/internal/usecase/board"
	"homematch/internal/usecase/estimate"
	"homematch/internal/usecase/lifecycle"
	"homematch/internal/usecase/matching"
	"homematch/internal/usecase/ratinggate"
)

// services is everything a command may need from the fx graph.
type services struct {
	App       *bootstrap.App
	Lifecycle *lifecycle.Service
	Ratings   *ratinggate.Service
	Estimate  *estimate.Service
	Matching  *matching.Service
	Pricing   *pricing.Engine
	Board     *board.Reader
	HTTP      *httpapi.Handler
}

func withApp(run func(cmd *cobra.Command, svc *services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		svc := &services{}
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(
				&svc.App,
				&svc.Lifecycle,
				&svc.Ratings,
				&svc.Estimate,
				&svc.Matching,
				&svc.Pricing,
				&svc.Board,
				&svc.HTTP,
			),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		cmd.SetContext(ctx)
		if err := run(cmd, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
