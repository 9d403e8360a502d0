//go:build integration

package workflow

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ronappleton/flowdesk/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPGStore(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := NewPGStore(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPGStoreRoundTrip(t *testing.T) {
	s := openPGStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	w := Workflow{
		ID:         newID("wf"),
		BusinessID: newID("biz"),
		Name:       "Integration",
		Pipeline: []pipeline.Step{
			{Step: 1, Name: "Collect", Config: pipeline.CollectConfig{Source: "form"}},
			{Step: 2, Name: "Wait", Config: pipeline.DelayConfig{DelayMinutes: 60}},
		},
		Trigger:          pipeline.WebhookTrigger("evt_1"),
		Approval:         pipeline.RequireApprovals(2),
		IsActive:         true,
		ApproverRoles:    []string{},
		Status:           StatusDraft,
		GovernanceHealth: GovernanceHealth{Score: 85, Issues: []string{}, UpdatedAt: now},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, s.InsertWorkflow(ctx, w))

	got, err := s.GetWorkflow(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.fields(), got.fields())

	w.Name = "Renamed"
	require.NoError(t, s.ReplaceWorkflow(ctx, w))
	list, err := s.ListWorkflows(ctx, w.BusinessID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)

	for i := 1; i <= 2; i++ {
		v, err := s.SaveVersion(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, i, v.Version)
	}
	versions, err := s.ListVersions(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	assert.ErrorIs(t, s.ReplaceWorkflow(ctx, Workflow{ID: newID("wf")}), ErrNotFound)
	_, err = s.GetWorkflow(ctx, newID("wf"))
	assert.ErrorIs(t, err, ErrNotFound)
}
