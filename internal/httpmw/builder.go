// Package httpmw provides HTTP middleware for the webhook intake endpoint.
package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relkeeper/relkeeper/internal/obsmetrics"
)

// Config holds configuration for building the webhook middleware stack.
type Config struct {
	Logger         *slog.Logger
	Metrics        *obsmetrics.ServiceMetrics
	MaxRequestSize int64
	RequestTimeout time.Duration

	// RateLimitPerMinute, when positive, caps webhook deliveries accepted
	// per sending IP per minute (RateLimitBurst headroom for bursts).
	RateLimitPerMinute int
	RateLimitBurst     int
}

// BuildWebhookMiddlewareStack builds the middleware stack applied to the
// webhook endpoint, outermost to innermost:
//
//  1. Security headers
//  2. Panic recovery
//  3. Request ID
//  4. Logging
//  5. Metrics
//  6. Rate limit
//  7. Request size limit
//  8. Timeout (innermost)
func BuildWebhookMiddlewareStack(config *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := next

		if config.RequestTimeout > 0 {
			handler = http.TimeoutHandler(handler, config.RequestTimeout, "request timeout")
		}

		if config.MaxRequestSize > 0 {
			handler = applySizeLimit(handler, config.MaxRequestSize)
		}

		if config.RateLimitPerMinute > 0 {
			handler = applyRateLimit(handler, NewRateLimiter(config.RateLimitPerMinute, config.RateLimitBurst))
		}

		if config.Metrics != nil {
			handler = applyMetrics(handler, config.Metrics)
		}

		if config.Logger != nil {
			handler = applyLogging(handler, config.Logger)
		}

		handler = applyRequestID(handler)
		handler = applyRecovery(handler, config.Logger)
		handler = applySecurityHeaders(handler)

		return handler
	}
}

// applySizeLimit rejects requests whose body exceeds limit bytes.
func applySizeLimit(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// applyMetrics records a webhook request outcome based on the response status.
func applyMetrics(next http.Handler, metrics *obsmetrics.ServiceMetrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		metrics.WebhookRequests.WithLabelValues(outcomeForStatus(rw.status)).Inc()
	})
}

func outcomeForStatus(status int) string {
	switch {
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNoContent:
		return "ignored"
	case status >= 200 && status < 300:
		return "accepted"
	default:
		return "error"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// applyLogging logs each incoming request with a structured summary.
func applyLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

type requestIDKey struct{}

// applyRequestID stamps a per-request trace id into the request context,
// reusing any X-Request-Id the client already supplied.
func applyRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := contextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// applyRecovery recovers from panics in downstream handlers.
func applyRecovery(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
