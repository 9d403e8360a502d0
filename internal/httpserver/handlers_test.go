package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/ronappleton/flowdesk/internal/pipeline"
	"github.com/ronappleton/flowdesk/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	srv      *httptest.Server
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	templates := catalog.New(4, nil)
	workflows := workflow.NewService(workflow.NewMemoryStore(), workflow.Options{
		Templates:           templates,
		EnforceStepSequence: cfg.Workflows.EnforceStepSequence,
	})
	server := NewServer(cfg, zap.NewNop(), templates, workflows, verifier)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, businessIDs ...string) string {
	t.Helper()
	tok, err := e.verifier.Issue("user-1", businessIDs, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("content-type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestTemplateRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/v1/templates", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(4*4+2), body["count"])

	status, body = env.do(t, http.MethodGet, "/v1/templates?tier=enterprise", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(4), body["count"])

	status, _ = env.do(t, http.MethodGet, "/v1/templates?tier=galactic", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/v1/templates/tiers", "", "")
	require.Equal(t, http.StatusOK, status)
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 4)
	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "solopreneur", first["tier"])
	assert.Equal(t, float64(5), first["count"])

	status, body = env.do(t, http.MethodGet, "/v1/templates/builtin:solopreneur:brand-booster", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "builtin:solopreneur:brand-booster", body["_id"])
	steps, ok := body["pipeline"].([]any)
	require.True(t, ok)
	assert.Len(t, steps, 4)
	approval, ok := body["approval"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, approval["required"])
	assert.Equal(t, float64(1), approval["threshold"])

	status, _ = env.do(t, http.MethodGet, "/v1/templates/nonexistent", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpsertAndFetchWorkflow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "biz1")

	status, body := env.do(t, http.MethodPut, "/v1/workflows", token, `{"businessId":"biz1","name":"Test","pipeline":[]}`)
	require.Equal(t, http.StatusCreated, status, body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz1", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "draft", body["status"])
	health, ok := body["governanceHealth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(85), health["score"])

	replace := fmt.Sprintf(`{"id":%q,"businessId":"biz1","name":"Renamed","pipeline":[
		{"type":"collect","step":1,"name":"Collect: Leads","config":{"source":"form"}},
		{"type":"delay","step":2,"name":"Wait","config":{"delayMinutes":60}}
	],"trigger":{"type":"webhook","eventKey":"evt_1"}}`, id)
	status, _ = env.do(t, http.MethodPut, "/v1/workflows", token, replace)
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/v1/workflows?businessId=biz1", token, "")
	require.Equal(t, http.StatusOK, status)
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Renamed", item["name"])

	status, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"/versions?businessId=biz1", token, "")
	require.Equal(t, http.StatusOK, status)
	versions, ok := body["items"].([]any)
	require.True(t, ok)
	assert.Len(t, versions, 2)

	status, _ = env.do(t, http.MethodPost, "/v1/workflows/"+id+"/rollback", token, `{"businessId":"biz1","version":1}`)
	require.Equal(t, http.StatusOK, status)
	_, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz1", token, "")
	assert.Equal(t, "Test", body["name"])
}

func TestUpsertRejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "biz1")

	tests := []struct {
		name   string
		token  string
		body   string
		status int
		field  string
	}{
		{
			name:   "anonymous",
			body:   `{"businessId":"biz1","name":"Test","pipeline":[]}`,
			status: http.StatusUnauthorized,
		},
		{
			name:   "other tenant",
			token:  token,
			body:   `{"businessId":"biz2","name":"Test","pipeline":[]}`,
			status: http.StatusForbidden,
		},
		{
			name:   "malformed json",
			token:  token,
			body:   `{"businessId":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing name",
			token:  token,
			body:   `{"businessId":"biz1","pipeline":[]}`,
			status: http.StatusBadRequest,
			field:  "name",
		},
		{
			name:   "missing pipeline",
			token:  token,
			body:   `{"businessId":"biz1","name":"Test"}`,
			status: http.StatusBadRequest,
			field:  "pipeline",
		},
		{
			name:   "null pipeline",
			token:  token,
			body:   `{"businessId":"biz1","name":"Test","pipeline":null}`,
			status: http.StatusBadRequest,
			field:  "pipeline",
		},
		{
			name:   "unknown step type",
			token:  token,
			body:   `{"businessId":"biz1","name":"Test","pipeline":[{"type":"teleport","step":1,"name":"x","config":{}}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "delay without minutes",
			token:  token,
			body:   `{"businessId":"biz1","name":"Test","pipeline":[{"type":"delay","step":1,"name":"Wait","config":{}}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "schedule without cron",
			token:  token,
			body:   `{"businessId":"biz1","name":"Test","pipeline":[],"trigger":{"type":"schedule"}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown workflow id",
			token:  token,
			body:   `{"id":"wf_missing","businessId":"biz1","name":"Test","pipeline":[]}`,
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPut, "/v1/workflows", tt.token, tt.body)
			assert.Equal(t, tt.status, status, body)
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				fields, ok := body["fields"].([]any)
				require.True(t, ok, body)
				require.NotEmpty(t, fields)
				first, ok := fields[0].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.field, first["field"])
			}
		})
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	status, _ := env.do(t, http.MethodGet, "/v1/workflows?businessId=biz1", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCopyTemplateAndPatch(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "biz1")

	status, body := env.do(t, http.MethodPost, "/v1/templates/builtin:solopreneur:brand-booster/copy", token, `{"businessId":"biz1","name":"Our brand"}`)
	require.Equal(t, http.StatusCreated, status, body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, body = env.do(t, http.MethodPatch, "/v1/workflows/"+id, token, `{"businessId":"biz1","isActive":false}`)
	require.Equal(t, http.StatusOK, status, body)

	_, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz1", token, "")
	assert.Equal(t, "Our brand", body["name"])
	steps, ok := body["pipeline"].([]any)
	require.True(t, ok)
	assert.Len(t, steps, 4)
	assert.Equal(t, false, body["isActive"])
	assert.Equal(t, true, body["requiresHumanReview"])
	assert.Equal(t, "builtin:solopreneur:brand-booster", body["sourceTemplateId"])

	status, _ = env.do(t, http.MethodPatch, "/v1/workflows/"+id, token, `{"businessId":"biz1","pipeline":null}`)
	require.Equal(t, http.StatusOK, status)
	_, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz1", token, "")
	steps, ok = body["pipeline"].([]any)
	require.True(t, ok)
	assert.Len(t, steps, 4)

	status, _ = env.do(t, http.MethodPatch, "/v1/workflows/"+id, token, `{"businessId":"biz1","pipeline":[]}`)
	require.Equal(t, http.StatusOK, status)
	_, body = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz1", token, "")
	steps, ok = body["pipeline"].([]any)
	require.True(t, ok)
	assert.Empty(t, steps)

	status, _ = env.do(t, http.MethodPost, "/v1/templates/nonexistent/copy", token, `{"businessId":"biz1"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/v1/workflows/"+id+"?businessId=biz2", env.token(t, "biz2"), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{workflow.ErrNotAuthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", errForbidden), http.StatusForbidden},
		{workflow.ErrTemplateNotFound, http.StatusNotFound},
		{&workflow.ValidationError{}, http.StatusBadRequest},
		{&pipeline.ValidationError{}, http.StatusBadRequest},
		{pipeline.ErrInvalidTrigger, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), fmt.Sprint(tt.err))
	}
}
