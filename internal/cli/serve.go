package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/services/order"
	"restaurant-orders/internal/services/report"
	"restaurant-orders/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the order HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load("order-service")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if port > 0 {
				cfg.HTTP.Port = port
			}
			if cfg.App.Env == "production" || cfg.App.Env == "prod" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			requestID := logger.GenerateRequestID()
			log.Info("service_starting", "Order service starting", requestID, map[string]interface{}{
				"port":    cfg.HTTP.Port,
				"driver":  cfg.Database.Driver,
				"sink":    cfg.Events.Sink,
				"version": version,
			})

			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				log.Error("db_connection_failed", "Failed to open database", requestID, err, nil)
				return err
			}
			defer closeStore()

			events, closeEvents, err := openPublisher(cfg, log)
			if err != nil {
				log.Error("event_sink_failed", "Failed to connect event sink", requestID, err, nil)
				return err
			}
			defer closeEvents()

			orders := order.NewService(store, events, log, cfg.Orders.MaxRetries)
			reports := report.NewService(store, log)

			engine := web.NewEngine(log, store)
			order.NewHandler(orders, log, cfg.HTTP.RequestTimeout).RegisterRoutes(engine)
			report.NewHandler(reports, log).RegisterRoutes(engine)

			server := web.NewServer(cfg.HTTP, engine)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("service_started", "Order service listening", requestID, map[string]interface{}{
					"addr": server.Addr,
				})
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("graceful_shutdown", "Shutting down order service", requestID, nil)

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				log.Error("server_failed", "Order service stopped with error", requestID, err, nil)
				return err
			}
			log.Info("service_stopped", "Order service stopped", requestID, nil)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides http.port)")
	return cmd
}
