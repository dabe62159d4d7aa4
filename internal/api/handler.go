package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/textfill/textfill/internal/auth"
	"github.com/textfill/textfill/internal/config"
	"github.com/textfill/textfill/internal/export"
	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/host"
	"github.com/textfill/textfill/internal/observability"
	"github.com/textfill/textfill/internal/plugin"
)

type ReadinessCheck func(ctx context.Context) error

// PluginSession handles panel messages against a host document.
type PluginSession interface {
	Handle(ctx context.Context, msg plugin.Inbound) []plugin.Outbound
	Outbox() *plugin.Outbox
}

// DocumentView exposes the served document for inspection and selection.
type DocumentView interface {
	Nodes() []host.Node
	SelectedIDs() []string
	Notifications() []string
	Select(ctx context.Context, ids []string) error
}

type SampleExporter interface {
	MaxRows() int
	Build(category generator.Category, count int) (export.EncodeResult, error)
	Export(ctx context.Context, category generator.Category, count int, key string) (export.Result, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Session           PluginSession
	Generator         *generator.Generator
	Document          DocumentView
	Exporter          SampleExporter
}

type route struct {
	pattern string
	role    auth.Role
	handle  func(Dependencies, http.ResponseWriter, *http.Request)
}

// Message routes check roles per message type, so they register with an
// empty role and authorize inside the handler.
var protectedRoutes = []route{
	{pattern: "POST /v1/messages", handle: handlePostMessage},
	{pattern: "GET /v1/messages", role: auth.RoleViewer, handle: handleDrainMessages},
	{pattern: "GET /v1/generate", role: auth.RoleViewer, handle: handleGenerate},
	{pattern: "GET /v1/vocabulary", role: auth.RoleViewer, handle: handleVocabulary},
	{pattern: "GET /v1/document", role: auth.RoleViewer, handle: handleGetDocument},
	{pattern: "PUT /v1/document/selection", role: auth.RoleEditor, handle: handlePutSelection},
	{pattern: "POST /v1/samples/export", role: auth.RoleEditor, handle: handleExportSamples},
	{pattern: "GET /v1/samples.parquet", role: auth.RoleViewer, handle: handleDownloadSamples},
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	for _, rt := range protectedRoutes {
		handle := rt.handle
		var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle(deps, w, r)
		})
		if rt.role != "" {
			h = auth.RequireRole(rt.role, h)
		}
		protected.Handle(rt.pattern, h)
	}

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	for _, rt := range protectedRoutes {
		mux.Handle(rt.pattern, protectedHandler)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, observability.RecoverMiddleware(deps.Logger))
	return chain(mux, middlewares...)
}

// CheckCatalogDSN fails when the postgres vocabulary source has no DSN.
func CheckCatalogDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Vocabulary.Source == config.VocabularyPostgres && cfg.Catalog.DSN == "" {
			return errors.New("catalog dsn is not configured")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireRole(r *http.Request, role auth.Role) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("role %s is required", role)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
