package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	EventWorkflowCreated = "workflow.created"
	EventWorkflowUpdated = "workflow.updated"
)

// Publisher receives workflow lifecycle events after the write has landed.
// Implementations must not block the caller on delivery.
type Publisher interface {
	WorkflowEvent(ctx context.Context, event string, w Workflow)
}

// Notifier posts workflow events to the audit log and the event bus. Each post
// runs on its own goroutine. Delivery is best effort: failures are logged and
// never reach the caller. Wait drains posts still in flight.
type Notifier struct {
	auditLog *endpoint
	eventBus *endpoint
	client   *http.Client
	logger   *zap.Logger
	inflight sync.WaitGroup
}

type endpoint struct {
	baseURL string
	timeout time.Duration
}

func NewNotifier(auditURL, eventBusURL, timeout string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		auditLog: parseEndpoint(auditURL, timeout),
		eventBus: parseEndpoint(eventBusURL, timeout),
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:   logger,
	}
}

func (n *Notifier) WorkflowEvent(ctx context.Context, event string, w Workflow) {
	if n == nil {
		return
	}
	payload := map[string]any{
		"event":           event,
		"workflow_id":     w.ID,
		"business_id":     w.BusinessID,
		"status":          w.Status,
		"steps":           len(w.Pipeline),
		"health_score":    w.GovernanceHealth.Score,
		"source_template": w.SourceTemplateID,
		"requires_review": w.RequiresHumanReview,
		"ts":              time.Now().UTC().Format(time.RFC3339),
	}
	if n.auditLog != nil {
		n.post(ctx, n.auditLog, "/v1/events", payload)
	}
	if n.eventBus != nil {
		n.post(ctx, n.eventBus, "/v1/events", map[string]any{
			"topic":   event,
			"payload": payload,
		})
	}
}

// Wait blocks until in-flight posts finish or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	if n == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) post(ctx context.Context, ep *endpoint, path string, payload map[string]any) {
	ctx = context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		n.postJSON(ctx, ep, path, payload)
	}()
}

func (n *Notifier) postJSON(ctx context.Context, ep *endpoint, path string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ep.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		n.logger.Warn("workflow event request build failed", zap.String("url", ep.baseURL), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("workflow event delivery failed", zap.String("url", ep.baseURL), zap.Error(err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("workflow event rejected", zap.String("url", ep.baseURL), zap.Int("status", resp.StatusCode))
	}
}

func parseEndpoint(url, timeout string) *endpoint {
	if url == "" {
		return nil
	}
	dur, err := time.ParseDuration(timeout)
	if err != nil || dur <= 0 {
		dur = 5 * time.Second
	}
	return &endpoint{baseURL: url, timeout: dur}
}
