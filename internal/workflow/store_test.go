package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/ronappleton/flowdesk/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIsolatesRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w := Workflow{
		ID:            "wf_1",
		BusinessID:    "biz1",
		Pipeline:      []pipeline.Step{{Step: 1, Name: "Collect", Config: pipeline.CollectConfig{Source: "form"}}},
		ApproverRoles: []string{"owner"},
	}
	require.NoError(t, s.InsertWorkflow(ctx, w))
	w.ApproverRoles[0] = "mutated"
	w.Pipeline[0].Name = "mutated"

	got, err := s.GetWorkflow(ctx, "wf_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, got.ApproverRoles)
	assert.Equal(t, "Collect", got.Pipeline[0].Name)

	assert.Error(t, s.InsertWorkflow(ctx, got))
}

func TestMemoryStoreReplaceMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.ReplaceWorkflow(context.Background(), Workflow{ID: "wf_missing"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetWorkflow(context.Background(), "wf_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreVersionsCountUp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	w := Workflow{ID: "wf_1", BusinessID: "biz1", CreatedAt: time.Now()}

	for i := 1; i <= 3; i++ {
		v, err := s.SaveVersion(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, i, v.Version)
	}
	versions, err := s.ListVersions(ctx, "wf_1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 3, versions[2].Version)

	none, err := s.ListVersions(ctx, "wf_other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
