package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/microtrax/microtrax/internal/buildinfo"
	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/datastore"
	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/httpserver"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/observability"
	"github.com/microtrax/microtrax/internal/settings"
	"github.com/microtrax/microtrax/internal/telemetry"
	"github.com/microtrax/microtrax/internal/transactions"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command, which runs the HTTP API.
func Command(cfg *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Open the datastore, configure the notification providers from the saved settings and serve the v2 API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, build)
		},
	}

	cmd.Flags().StringVar(&cfg.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address and port of the API")
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Serve Prometheus metrics")

	return cmd
}

func run(ctx context.Context, cfg *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("main")

	if err := telemetry.InitSentry(cfg, build.GetVersion()); err != nil {
		// telemetry is optional
		log.Warn("sentry initialization failed", logger.Error(err))
	}
	defer telemetry.Flush()

	store, err := datastore.New(cfg)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close datastore", logger.Error(err))
		}
	}()

	var (
		metrics     *observability.Metrics
		managerOpts []notification.ManagerOption
	)
	if cfg.Metrics.Enabled {
		metrics, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		managerOpts = append(managerOpts, notification.WithMetrics(metrics.Notification))
	}

	client := httpclient.New(&httpclient.Config{UserAgent: build.UserAgent()})
	defer client.Close()
	if metrics != nil {
		client.SetRequestObserver(metrics.HTTP.ObserveOutbound)
	}

	manager := notification.NewManager(managerOpts...)
	settings.RegisterProviders(manager, client)

	settingsSvc := settings.NewService(store, manager, cfg)
	if _, err := settingsSvc.Load(ctx); err != nil {
		// providers stay disabled until the settings are fixed through the API
		log.Error("notification providers not configured, continuing without notifications", logger.Error(err))
	}

	srv := httpserver.New(cfg, httpserver.Deps{
		Settings:     settingsSvc,
		Transactions: transactions.NewService(store, manager, settingsSvc),
		Manager:      manager,
		Metrics:      metrics,
	})
	srv.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-srv.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Error(err))
	}

	return serveErr
}
