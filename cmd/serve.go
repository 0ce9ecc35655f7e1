package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"files-kraken/core/loader"
	"files-kraken/core/logger"
	"files-kraken/core/middleware/auth"
	"files-kraken/core/middleware/rayid"
	"files-kraken/core/snapshot"
	"files-kraken/feature/catalog"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveWatch bool

// serveCmd starts the catalog API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only catalog API",
	Long: `Starts the HTTP server exposing the reconciled records and Prometheus metrics.
With --watch the monitor loop runs in the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()
		zap.ReplaceGlobals(a.logger)

		if err := a.cfg.Server.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager(a.logger)
		feature := catalog.NewFeature(a.store, a.registry, a.cfg.Server, a.metrics, a.logger)
		mgr.Register(feature)

		// RayID first so every log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(a.logger, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey, Skip: []string{"/metrics"}}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		if serveWatch {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			monitor, err := a.monitor(ctx, func(ctx context.Context, changes snapshot.Changes) error {
				if _, err := engine.Process(ctx, changes); err != nil {
					return err
				}
				feature.Service().Invalidate("")
				return nil
			})
			if err != nil {
				return err
			}
			go func() {
				if err := monitor.Run(ctx); err != nil {
					a.logger.Error("Monitor stopped", zap.Error(err))
				}
			}()
		}

		errc := make(chan error, 1)
		go func() {
			a.logger.Info("Starting server", zap.String("address", a.cfg.Server.Address()))
			errc <- app.Listen(a.cfg.Server.Address())
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		a.logger.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Run the monitor loop alongside the server")
	RootCmd.AddCommand(serveCmd)
}
