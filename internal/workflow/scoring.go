package workflow

import (
	"context"
	"time"
)

// HealthScorer computes the governance health stored with each write.
type HealthScorer interface {
	Score(ctx context.Context, w Workflow) GovernanceHealth
}

type ScorerFunc func(ctx context.Context, w Workflow) GovernanceHealth

func (f ScorerFunc) Score(ctx context.Context, w Workflow) GovernanceHealth {
	return f(ctx, w)
}

// FixedScorer gives every workflow the same score and no issues. It stands in
// until pipeline analysis is wired in.
type FixedScorer struct {
	Value int
	Now   func() time.Time
}

const DefaultHealthScore = 85

func (s FixedScorer) Score(context.Context, Workflow) GovernanceHealth {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return GovernanceHealth{Score: s.Value, Issues: []string{}, UpdatedAt: now().UTC()}
}
