// Command relkeeperd runs the release-mirroring agent: it loads a
// release-config file, registers each repository, and keeps matched
// release assets mirrored to disk via periodic polling and a webhook
// intake.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/relkeeper/relkeeper/internal/coordinator"
	"github.com/relkeeper/relkeeper/internal/download"
	"github.com/relkeeper/relkeeper/internal/ghapi"
	"github.com/relkeeper/relkeeper/internal/monitor"
	"github.com/relkeeper/relkeeper/internal/obslog"
	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
	"github.com/relkeeper/relkeeper/internal/sourceconfig"
	"github.com/relkeeper/relkeeper/internal/webhook"
)

const serviceName = "relkeeperd"

func main() {
	root := &cobra.Command{
		Use:   serviceName + " <config-file>",
		Short: "Mirror GitHub release assets to a local package pool",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	bindFlags(root)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("%s: load config: %w", serviceName, err)
	}

	logger := obslog.NewLogger(obslog.Config{
		Level:    cfg.LogLevel,
		Format:   "json",
		Output:   outputFor(cfg.LogFile),
		Filename: cfg.LogFile,
	})
	logger.Info("starting", "service", serviceName)

	metrics := obsmetrics.NewServiceMetrics()

	provider := ghapi.NewProvider()
	reg := registry.NewSourceRegistry(provider, cfg.GitHubToken, logger)

	downloader := download.New(cfg.DownloadDir, cfg.DistroSubDirs, cfg.PrivateSubDir, logger, metrics)

	// mon is always constructed, even when EnableMonitor is false: Run gates
	// only the periodic Start() on that flag, leaving CheckAll reachable for
	// an orthogonal InitialCollect sweep.
	mon := monitor.New(reg, downloader, cfg.MonitorInterval, logger, metrics)

	var intake *webhook.Intake
	if cfg.WebhookEnable {
		intake = webhook.New(webhook.Config{
			Addr:   fmt.Sprintf(":%d", cfg.WebhookPort),
			Secret: cfg.WebhookSecret,
			Policy: webhook.Policy{
				MaxAttempts: cfg.WebhookRetries,
				Delay:       cfg.WebhookDelay,
			},
			RateLimitPerMinute: cfg.WebhookRateLimit,
			RateLimitBurst:     cfg.WebhookRateBurst,
			Logger:             logger,
			Metrics:            metrics,
		}, reg, downloader)
	}

	coord := coordinator.New(coordinator.Config{
		ConfigSource:   cfg.ConfigFile,
		EnableMonitor:  cfg.MonitorEnable,
		EnableWebhook:  cfg.WebhookEnable,
		InitialCollect: cfg.InitialCollect,
	}, sourceconfig.NewResolvingLoader(), reg, mon, intake, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coord.Run(ctx); err != nil {
		return fmt.Errorf("%s: startup: %w", serviceName, err)
	}

	healthSrv := &http.Server{Addr: ":9090", Handler: healthMux()}

	// g joins the health server's listen loop with the signal-wait loop: a
	// SIGINT/SIGTERM cancels ctx, which both unblocks the wait and tells the
	// health server to shut down, and g.Wait collects whichever of the two
	// exits first.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := coord.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return healthSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("exited with error", "error", err)
	}

	logger.Info("exited cleanly")
	return nil
}

func healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func outputFor(logFile string) string {
	if logFile == "" {
		return "stdout"
	}
	return "file"
}

