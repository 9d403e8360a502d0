package workflow

import "time"

// WorkflowVersion is an immutable snapshot taken after every effective write.
type WorkflowVersion struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Version    int       `json:"version"`
	Payload    Workflow  `json:"payload"`
	CreatedAt  time.Time `json:"createdAt"`
}
