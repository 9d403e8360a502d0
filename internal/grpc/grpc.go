package grpc

import (
	"net"
	"strconv"

	"github.com/ronappleton/flowdesk/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// WorkflowService is the name reported by the health service.
const WorkflowService = "flowdesk.workflow"

func NewHealth() *health.Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(WorkflowService, healthpb.HealthCheckResponse_SERVING)
	return h
}

func NewServer(log *zap.Logger, h *health.Server) *grpc.Server {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(srv, h)
	log.Info("grpc health enabled", zap.String("service", WorkflowService))
	return srv
}

func NewListener(cfg config.Config) (net.Listener, error) {
	addr := net.JoinHostPort(cfg.GRPC.Host, strconv.Itoa(cfg.GRPC.Port))
	return net.Listen("tcp", addr)
}
