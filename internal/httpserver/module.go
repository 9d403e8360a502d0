package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/ronappleton/flowdesk/internal/workflow"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	cfg       config.Config
	logger    *zap.Logger
	templates *catalog.Catalog
	workflows *workflow.Service
	handler   http.Handler
	srv       *http.Server
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewServer),
		fx.Invoke(RegisterHooks),
	)
}

func NewServer(cfg config.Config, logger *zap.Logger, templates *catalog.Catalog, workflows *workflow.Service, verifier *auth.Verifier) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger.Named("http"),
		templates: templates,
		workflows: workflows,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/templates", s.handleListTemplates)
	mux.HandleFunc("GET /v1/templates/tiers", s.handleTiers)
	mux.HandleFunc("GET /v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /v1/templates/{id}/copy", s.handleCopyTemplate)
	mux.HandleFunc("PUT /v1/workflows", s.handleUpsertWorkflow)
	mux.HandleFunc("GET /v1/workflows", s.handleListWorkflows)
	mux.HandleFunc("GET /v1/workflows/{id}", s.handleGetWorkflow)
	mux.HandleFunc("PATCH /v1/workflows/{id}", s.handlePatchWorkflow)
	mux.HandleFunc("GET /v1/workflows/{id}/versions", s.handleWorkflowVersions)
	mux.HandleFunc("POST /v1/workflows/{id}/rollback", s.handleWorkflowRollback)

	s.handler = otelhttp.NewHandler(auth.Middleware(verifier)(mux), "flowdesk.http")
	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func RegisterHooks(lc fx.Lifecycle, server *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			server.logger.Info("http server starting", zap.String("addr", server.srv.Addr))
			go func() {
				if err := server.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					server.logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			server.logger.Info("http server stopping")
			return server.srv.Shutdown(shutdownCtx)
		},
	})
}
