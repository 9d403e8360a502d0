package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierPostsToAuditAndEventBus(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]map[string]any{}
	)
	capture := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/events" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			bodies[name] = body
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		}
	}
	audit := httptest.NewServer(capture("audit"))
	defer audit.Close()
	bus := httptest.NewServer(capture("bus"))
	defer bus.Close()

	n := NewNotifier(audit.URL, bus.URL, "2s", nil)
	n.WorkflowEvent(context.Background(), EventWorkflowCreated, Workflow{
		ID:               "wf_1",
		BusinessID:       "biz1",
		Status:           StatusDraft,
		GovernanceHealth: GovernanceHealth{Score: 85},
	})
	require.NoError(t, n.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, bodies, "audit")
	require.Contains(t, bodies, "bus")
	assert.Equal(t, "workflow.created", bodies["audit"]["event"])
	assert.Equal(t, "wf_1", bodies["audit"]["workflow_id"])
	assert.Equal(t, float64(85), bodies["audit"]["health_score"])
	assert.Equal(t, "workflow.created", bodies["bus"]["topic"])
	payload, ok := bodies["bus"]["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "biz1", payload["business_id"])
}

func TestNotifierSurvivesUnreachableEndpoints(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	downURL := down.URL
	down.Close()

	n := NewNotifier(downURL, "", "50ms", nil)
	assert.Nil(t, n.eventBus)

	done := make(chan struct{})
	go func() {
		n.WorkflowEvent(context.Background(), EventWorkflowUpdated, Workflow{ID: "wf_1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifier blocked on an unreachable endpoint")
	}
	require.NoError(t, n.Wait(context.Background()))

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.WorkflowEvent(context.Background(), EventWorkflowUpdated, Workflow{})
	})
	assert.NoError(t, nilNotifier.Wait(context.Background()))
}

func TestNotifierIgnoresCallerCancellation(t *testing.T) {
	got := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		got <- struct{}{}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := NewNotifier(srv.URL, "", "", nil)
	n.WorkflowEvent(ctx, EventWorkflowCreated, Workflow{ID: "wf_1"})
	require.NoError(t, n.Wait(context.Background()))

	select {
	case <-got:
	default:
		t.Fatal("event was not delivered")
	}
}

func TestNotifierDoesNotBlockOnSlowEndpoints(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer slow.Close()
	defer close(release)

	n := NewNotifier(slow.URL, slow.URL, "10s", nil)
	start := time.Now()
	n.WorkflowEvent(context.Background(), EventWorkflowCreated, Workflow{ID: "wf_1"})
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Wait(ctx), context.DeadlineExceeded)
}
