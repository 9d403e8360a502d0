package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/pipeline"
	"github.com/ronappleton/flowdesk/internal/workflow"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tier := catalog.Tier(q.Get("tier"))
	if tier != "" && !tier.Valid() {
		s.writeError(w, r, fmt.Errorf("%w: unknown tier %q", errBadRequest, tier))
		return
	}
	items := s.templates.Filter(catalog.Query{Tier: tier, Tag: q.Get("tag"), Text: q.Get("q")})
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	counts := s.templates.Counts()
	items := make([]map[string]any, 0, len(catalog.Tiers))
	for _, tier := range catalog.Tiers {
		items = append(items, map[string]any{"tier": tier, "count": counts[tier]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.templates.Lookup(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, workflow.ErrTemplateNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleCopyTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BusinessID string `json:"businessId"`
		Name       string `json:"name"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorize(r, body.BusinessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.workflows.CopyTemplate(r.Context(), workflow.CopyInput{
		BusinessID: body.BusinessID,
		TemplateID: r.PathValue("id"),
		Name:       body.Name,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type upsertRequest struct {
	ID                  string             `json:"id"`
	BusinessID          string             `json:"businessId"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	Pipeline            json.RawMessage    `json:"pipeline"`
	Trigger             *pipeline.Trigger  `json:"trigger"`
	Approval            *pipeline.Approval `json:"approval"`
	IsActive            *bool              `json:"isActive"`
	RequiresHumanReview *bool              `json:"requiresHumanReview"`
	ApproverRoles       []string           `json:"approverRoles"`
	SourceTemplateID    string             `json:"sourceTemplateId"`
}

func (s *Server) handleUpsertWorkflow(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorize(r, req.BusinessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	steps, err := s.parsePipeline(req.Pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.workflows.Upsert(r.Context(), workflow.UpsertInput{
		ID:                  req.ID,
		BusinessID:          req.BusinessID,
		Name:                req.Name,
		Description:         req.Description,
		Pipeline:            steps,
		Trigger:             req.Trigger,
		Approval:            req.Approval,
		IsActive:            req.IsActive,
		RequiresHumanReview: req.RequiresHumanReview,
		ApproverRoles:       req.ApproverRoles,
		SourceTemplateID:    req.SourceTemplateID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"id": id})
}

type patchRequest struct {
	BusinessID          string             `json:"businessId"`
	Name                *string            `json:"name"`
	Description         *string            `json:"description"`
	Pipeline            json.RawMessage    `json:"pipeline"`
	Trigger             *pipeline.Trigger  `json:"trigger"`
	Approval            *pipeline.Approval `json:"approval"`
	IsActive            *bool              `json:"isActive"`
	RequiresHumanReview *bool              `json:"requiresHumanReview"`
	ApproverRoles       []string           `json:"approverRoles"`
}

func (s *Server) handlePatchWorkflow(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorize(r, req.BusinessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch := workflow.Patch{
		Name:                req.Name,
		Description:         req.Description,
		Trigger:             req.Trigger,
		Approval:            req.Approval,
		IsActive:            req.IsActive,
		RequiresHumanReview: req.RequiresHumanReview,
		ApproverRoles:       req.ApproverRoles,
	}
	steps, err := s.parsePipeline(req.Pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if steps != nil {
		patch.Pipeline = steps
	}
	id := r.PathValue("id")
	if err := s.workflows.Patch(r.Context(), req.BusinessID, id, patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("businessId")
	if err := authorize(r, businessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.workflows.List(r.Context(), businessID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("businessId")
	if err := authorize(r, businessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	wf, err := s.workflows.Get(r.Context(), businessID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleWorkflowVersions(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("businessId")
	if err := authorize(r, businessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	versions, err := s.workflows.Versions(r.Context(), businessID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": versions})
}

func (s *Server) handleWorkflowRollback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BusinessID string `json:"businessId"`
		Version    int    `json:"version"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := authorize(r, body.BusinessID); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := s.workflows.Rollback(r.Context(), body.BusinessID, id, body.Version); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// parsePipeline runs the raw steps through the schema. A missing or null
// pipeline stays nil so the service reports it as required.
func (s *Server) parsePipeline(raw json.RawMessage) ([]pipeline.Step, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	return pipeline.ParseJSON(raw, pipeline.ValidateOptions{RequireSequence: s.cfg.Workflows.EnforceStepSequence})
}

// authorize checks tenant membership for signed-in callers. Anonymous calls
// fall through so the service can refuse them.
func authorize(r *http.Request, businessID string) error {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	if strings.TrimSpace(businessID) == "" {
		return fmt.Errorf("%w: businessId is required", errBadRequest)
	}
	if !id.Member(businessID) {
		return fmt.Errorf("%w: not a member of %s", errForbidden, businessID)
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
