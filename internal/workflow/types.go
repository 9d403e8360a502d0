package workflow

import (
	"time"

	"github.com/ronappleton/flowdesk/internal/pipeline"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Workflow is a tenant-owned pipeline definition. BusinessID never changes
// after insert.
type Workflow struct {
	ID                  string            `json:"id"`
	BusinessID          string            `json:"businessId"`
	Name                string            `json:"name"`
	Description         string            `json:"description,omitempty"`
	Pipeline            []pipeline.Step   `json:"pipeline"`
	Trigger             pipeline.Trigger  `json:"trigger"`
	Approval            pipeline.Approval `json:"approval"`
	IsActive            bool              `json:"isActive"`
	RequiresHumanReview bool              `json:"requiresHumanReview"`
	ApproverRoles       []string          `json:"approverRoles"`
	Status              Status            `json:"status"`
	GovernanceHealth    GovernanceHealth  `json:"governanceHealth"`
	SourceTemplateID    string            `json:"sourceTemplateId,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

type GovernanceHealth struct {
	Score     int       `json:"score"`
	Issues    []string  `json:"issues"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// fields is the set rewritten by a replace. Two writes with equal fields are
// the same write.
type fields struct {
	Name                string
	Description         string
	Pipeline            []pipeline.Step
	Trigger             pipeline.Trigger
	Approval            pipeline.Approval
	IsActive            bool
	RequiresHumanReview bool
	ApproverRoles       []string
	SourceTemplateID    string
}

func (w Workflow) fields() fields {
	return fields{
		Name:                w.Name,
		Description:         w.Description,
		Pipeline:            w.Pipeline,
		Trigger:             w.Trigger,
		Approval:            w.Approval,
		IsActive:            w.IsActive,
		RequiresHumanReview: w.RequiresHumanReview,
		ApproverRoles:       w.ApproverRoles,
		SourceTemplateID:    w.SourceTemplateID,
	}
}

func (w *Workflow) apply(f fields) {
	w.Name = f.Name
	w.Description = f.Description
	w.Pipeline = pipeline.Clone(f.Pipeline)
	w.Trigger = f.Trigger
	w.Approval = f.Approval
	w.IsActive = f.IsActive
	w.RequiresHumanReview = f.RequiresHumanReview
	w.ApproverRoles = cloneStrings(f.ApproverRoles)
	w.SourceTemplateID = f.SourceTemplateID
}

// clone returns a deep copy so stored records never alias caller memory.
func (w Workflow) clone() Workflow {
	w.Pipeline = pipeline.Clone(w.Pipeline)
	w.ApproverRoles = cloneStrings(w.ApproverRoles)
	w.GovernanceHealth.Issues = cloneStrings(w.GovernanceHealth.Issues)
	return w
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}
