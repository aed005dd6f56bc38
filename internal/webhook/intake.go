// Package webhook implements the authenticated, race-aware HTTP intake for
// GitHub release events: a single POST /webhook endpoint that verifies an
// HMAC signature, filters uninteresting events, and hands off matched
// deliveries to a bounded worker pool running a per-repository retry loop.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relkeeper/relkeeper/internal/httpmw"
	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
)

// Config configures an Intake.
type Config struct {
	Addr           string
	Secret         string
	Policy         Policy
	PoolSize       int
	MaxRequestSize int64
	RequestTimeout time.Duration

	// RateLimitPerMinute, when positive, caps accepted deliveries per
	// sending IP per minute.
	RateLimitPerMinute int
	RateLimitBurst     int

	Logger  *slog.Logger
	Metrics *obsmetrics.ServiceMetrics
}

// resolvedSecret returns Secret with any "$NAME" environment reference
// resolved, read at construction time per the spec.
func (c Config) resolvedSecret() string {
	return registry.ResolveEnvRef(c.Secret)
}

// Intake is the webhook HTTP server and its background dispatch machinery.
type Intake struct {
	cfg        Config
	secret     string
	registry   *registry.SourceRegistry
	dispatcher *dispatcher
	logger     *slog.Logger
	metrics    *obsmetrics.ServiceMetrics
	server     *http.Server
}

// New constructs an Intake serving reg against downloader via the given
// Config. The server is not started until Start is called.
func New(cfg Config, reg *registry.SourceRegistry, downloader registry.AssetDownloader) *Intake {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultPolicy()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 3
	}

	in := &Intake{
		cfg:        cfg,
		secret:     cfg.resolvedSecret(),
		registry:   reg,
		dispatcher: newDispatcher(reg, downloader, cfg.Policy, poolSize, logger, cfg.Metrics),
		logger:     logger,
		metrics:    cfg.Metrics,
	}

	router := mux.NewRouter()
	router.HandleFunc("/webhook", in.handleWebhook).Methods(http.MethodPost)

	stack := httpmw.BuildWebhookMiddlewareStack(&httpmw.Config{
		Logger:             logger,
		Metrics:            cfg.Metrics,
		MaxRequestSize:     cfg.MaxRequestSize,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	in.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: stack(router),
	}

	in.dispatcher.start(poolSize)
	return in
}

// Start launches the HTTP server on its own goroutine. Errors other than a
// clean shutdown are logged, not returned: the caller observes liveness
// through the health surface, not this call.
func (in *Intake) Start() {
	go func() {
		if err := in.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			in.logger.Error("webhook server exited", "error", err)
		}
	}()
}

// Shutdown closes the listener, cancels every pending per-repo retry task,
// and waits for the worker pool to drain.
func (in *Intake) Shutdown(ctx context.Context) error {
	err := in.server.Shutdown(ctx)
	in.dispatcher.shutdown()
	return err
}

func (in *Intake) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	if verr := verifySignature(signatureHeader(r), body, in.secret); verr != nil {
		in.logger.Warn("webhook rejected", "reason", verr)
		http.Error(w, verr.Error(), http.StatusForbidden)
		return
	}

	if r.Header.Get("X-GitHub-Event") != "release" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ev, err := decodeReleaseEvent(body)
	if err != nil {
		in.logger.Warn("webhook payload not valid JSON", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !isAcceptedAction(ev.Action) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	fullName := ev.Repository.FullName
	if !in.registry.IsRegistered(fullName) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	in.dispatcher.dispatch(fullName)
	w.WriteHeader(http.StatusOK)
}
