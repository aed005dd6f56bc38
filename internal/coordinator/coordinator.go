// Package coordinator wires the registry, monitor, and webhook intake
// together into the single-process lifecycle the CLI entry point drives.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/relkeeper/relkeeper/internal/monitor"
	"github.com/relkeeper/relkeeper/internal/registry"
	"github.com/relkeeper/relkeeper/internal/sourceconfig"
	"github.com/relkeeper/relkeeper/internal/webhook"
)

// Config controls which background components Run starts.
type Config struct {
	ConfigSource   string
	EnableMonitor  bool
	EnableWebhook  bool
	InitialCollect bool
}

// Coordinator owns the registry plus the optional monitor and webhook
// intake, and sequences their startup and shutdown.
type Coordinator struct {
	loader   sourceconfig.JsonLoader
	registry *registry.SourceRegistry
	monitor  *monitor.Monitor
	intake   *webhook.Intake
	logger   *slog.Logger

	cfg Config

	mu       sync.Mutex
	shutDown bool
}

// New constructs a Coordinator. monitorComponent and intakeComponent may be
// nil when the corresponding feature is disabled in cfg.
func New(cfg Config, loader sourceconfig.JsonLoader, reg *registry.SourceRegistry, monitorComponent *monitor.Monitor, intakeComponent *webhook.Intake, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		loader:   loader,
		registry: reg,
		monitor:  monitorComponent,
		intake:   intakeComponent,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run loads the configured release sources, registers them, and starts the
// enabled background components. It returns once startup completes; the
// caller is expected to block on its own signal handling and call Shutdown.
func (c *Coordinator) Run(ctx context.Context) error {
	configs, err := sourceconfig.LoadAndDecode(ctx, c.loader, c.cfg.ConfigSource)
	if err != nil {
		return fmt.Errorf("coordinator: load release config: %w", err)
	}

	for _, cfg := range configs {
		c.registry.Register(cfg)
	}
	c.logger.Info("registered sources", "count", len(configs))

	if c.cfg.EnableMonitor && c.monitor != nil {
		c.monitor.Start()
		c.logger.Info("monitor started")
	}

	if c.cfg.EnableWebhook && c.intake != nil {
		c.intake.Start()
		c.logger.Info("webhook intake started")
	}

	if c.cfg.InitialCollect && c.monitor != nil {
		c.logger.Info("running initial collection sweep")
		c.monitor.CheckAll(ctx)
	}

	return nil
}

// Shutdown stops the webhook intake, then the monitor, in that order. It is
// idempotent and safe to call from a signal handler.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shutDown {
		c.mu.Unlock()
		return nil
	}
	c.shutDown = true
	c.mu.Unlock()

	var err error
	if c.cfg.EnableWebhook && c.intake != nil {
		if shutErr := c.intake.Shutdown(ctx); shutErr != nil {
			err = shutErr
		}
		c.logger.Info("webhook intake stopped")
	}

	if c.cfg.EnableMonitor && c.monitor != nil {
		c.monitor.Shutdown()
		c.logger.Info("monitor stopped")
	}

	return err
}
