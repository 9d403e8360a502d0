package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ronappleton/flowdesk/internal/auth"
	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/ronappleton/flowdesk/internal/workflow"

// UpsertInput is the full field set of a workflow write. An empty ID creates a
// new workflow; otherwise the stored one is replaced in full.
type UpsertInput struct {
	ID                  string             `json:"id,omitempty"`
	BusinessID          string             `json:"businessId" validate:"required"`
	Name                string             `json:"name" validate:"required,max=200"`
	Description         string             `json:"description,omitempty" validate:"max=2000"`
	Pipeline            []pipeline.Step    `json:"pipeline" validate:"required"`
	Trigger             *pipeline.Trigger  `json:"trigger,omitempty"`
	Approval            *pipeline.Approval `json:"approval,omitempty"`
	IsActive            *bool              `json:"isActive,omitempty"`
	RequiresHumanReview *bool              `json:"requiresHumanReview,omitempty"`
	ApproverRoles       []string           `json:"approverRoles,omitempty" validate:"dive,required"`
	SourceTemplateID    string             `json:"sourceTemplateId,omitempty"`
}

// Patch changes only the fields that are set. Nil slices leave the stored
// value alone; an empty slice clears it.
type Patch struct {
	Name                *string            `json:"name,omitempty"`
	Description         *string            `json:"description,omitempty"`
	Pipeline            []pipeline.Step    `json:"pipeline,omitempty"`
	Trigger             *pipeline.Trigger  `json:"trigger,omitempty"`
	Approval            *pipeline.Approval `json:"approval,omitempty"`
	IsActive            *bool              `json:"isActive,omitempty"`
	RequiresHumanReview *bool              `json:"requiresHumanReview,omitempty"`
	ApproverRoles       []string           `json:"approverRoles,omitempty"`
}

type CopyInput struct {
	BusinessID string `json:"businessId"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name,omitempty"`
}

type TemplateSource interface {
	Lookup(id string) (catalog.Template, bool)
}

type Options struct {
	Templates           TemplateSource
	Scorer              HealthScorer
	Events              Publisher
	Logger              *zap.Logger
	EnforceStepSequence bool
	Now                 func() time.Time
}

type Service struct {
	store           Store
	templates       TemplateSource
	scorer          HealthScorer
	events          Publisher
	logger          *zap.Logger
	validate        *validator.Validate
	enforceSequence bool
	now             func() time.Time

	tracer trace.Tracer
	writes metric.Int64Counter
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:           store,
		templates:       opts.Templates,
		scorer:          opts.Scorer,
		events:          opts.Events,
		logger:          opts.Logger,
		validate:        newValidator(),
		enforceSequence: opts.EnforceStepSequence,
		now:             opts.Now,
		tracer:          otel.Tracer(instrumentationName),
	}
	if s.scorer == nil {
		s.scorer = FixedScorer{Value: DefaultHealthScore}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	writes, err := otel.Meter(instrumentationName).Int64Counter("flowdesk.workflow.upserts",
		metric.WithDescription("Workflow writes by operation"))
	if err == nil {
		s.writes = writes
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Upsert creates a workflow when in.ID is empty and replaces the stored one
// otherwise. It returns the workflow's ID.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Upsert", trace.WithAttributes(
		attribute.String("business_id", in.BusinessID),
		attribute.Bool("replace", in.ID != ""),
	))
	defer func() { endSpan(span, err) }()

	if _, ok := auth.FromContext(ctx); !ok {
		return "", ErrNotAuthenticated
	}
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	f, err := s.normalize(in)
	if err != nil {
		return "", err
	}
	if in.ID == "" {
		return s.create(ctx, in.BusinessID, f)
	}
	return s.replace(ctx, in.ID, in.BusinessID, f)
}

func (s *Service) create(ctx context.Context, businessID string, f fields) (string, error) {
	now := s.now().UTC()
	w := Workflow{
		ID:         newID("wf"),
		BusinessID: businessID,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	w.apply(f)
	w.GovernanceHealth = s.score(ctx, w)
	if err := s.store.InsertWorkflow(ctx, w); err != nil {
		return "", err
	}
	s.afterWrite(ctx, "create", EventWorkflowCreated, w)
	return w.ID, nil
}

func (s *Service) replace(ctx context.Context, id, businessID string, f fields) (string, error) {
	existing, err := s.owned(ctx, businessID, id)
	if err != nil {
		return "", err
	}
	if reflect.DeepEqual(existing.fields(), f) {
		s.logger.Debug("workflow replace is a no-op", zap.String("workflow_id", id))
		return id, nil
	}
	updated := existing
	updated.apply(f)
	updated.UpdatedAt = s.now().UTC()
	updated.GovernanceHealth = s.score(ctx, updated)
	if err := s.store.ReplaceWorkflow(ctx, updated); err != nil {
		return "", err
	}
	s.afterWrite(ctx, "replace", EventWorkflowUpdated, updated)
	return id, nil
}

// Patch merges p into the stored workflow. Unlike a replace, fields that p
// leaves unset keep their stored values.
func (s *Service) Patch(ctx context.Context, businessID, id string, p Patch) (err error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Patch", trace.WithAttributes(
		attribute.String("business_id", businessID),
		attribute.String("workflow_id", id),
	))
	defer func() { endSpan(span, err) }()

	if _, ok := auth.FromContext(ctx); !ok {
		return ErrNotAuthenticated
	}
	existing, err := s.owned(ctx, businessID, id)
	if err != nil {
		return err
	}

	f := existing.fields()
	if p.Name != nil {
		f.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Pipeline != nil {
		f.Pipeline = pipeline.Clone(p.Pipeline)
	}
	if p.Trigger != nil {
		f.Trigger = *p.Trigger
	}
	if p.Approval != nil {
		f.Approval = *p.Approval
	}
	if p.IsActive != nil {
		f.IsActive = *p.IsActive
	}
	if p.RequiresHumanReview != nil {
		f.RequiresHumanReview = *p.RequiresHumanReview
	}
	if p.ApproverRoles != nil {
		f.ApproverRoles = cloneStrings(p.ApproverRoles)
	}

	in := UpsertInput{
		ID:                  id,
		BusinessID:          businessID,
		Name:                f.Name,
		Description:         f.Description,
		Pipeline:            f.Pipeline,
		Trigger:             &f.Trigger,
		Approval:            &f.Approval,
		IsActive:            &f.IsActive,
		RequiresHumanReview: &f.RequiresHumanReview,
		ApproverRoles:       f.ApproverRoles,
		SourceTemplateID:    f.SourceTemplateID,
	}
	f, err = s.normalize(in)
	if err != nil {
		return err
	}
	_, err = s.replace(ctx, id, businessID, f)
	return err
}

// CopyTemplate creates a draft workflow for businessID from a catalog
// template. Review roles and the approval gate carry over.
func (s *Service) CopyTemplate(ctx context.Context, in CopyInput) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "workflow.CopyTemplate", trace.WithAttributes(
		attribute.String("business_id", in.BusinessID),
		attribute.String("template_id", in.TemplateID),
	))
	defer func() { endSpan(span, err) }()

	if _, ok := auth.FromContext(ctx); !ok {
		return "", ErrNotAuthenticated
	}
	if s.templates == nil {
		return "", ErrTemplateNotFound
	}
	tpl, ok := s.templates.Lookup(in.TemplateID)
	if !ok {
		return "", ErrTemplateNotFound
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = tpl.Name
	}
	trigger := tpl.Trigger
	approval := tpl.Approval
	requiresReview := approval.Required
	return s.Upsert(ctx, UpsertInput{
		BusinessID:          in.BusinessID,
		Name:                name,
		Description:         tpl.Description,
		Pipeline:            pipeline.Clone(tpl.Pipeline),
		Trigger:             &trigger,
		Approval:            &approval,
		RequiresHumanReview: &requiresReview,
		ApproverRoles:       pipeline.ApproverRoles(tpl.Pipeline),
		SourceTemplateID:    tpl.ID,
	})
}

func (s *Service) Get(ctx context.Context, businessID, id string) (Workflow, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return Workflow{}, ErrNotAuthenticated
	}
	return s.owned(ctx, businessID, id)
}

func (s *Service) List(ctx context.Context, businessID string) ([]Workflow, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return nil, ErrNotAuthenticated
	}
	return s.store.ListWorkflows(ctx, businessID)
}

func (s *Service) Versions(ctx context.Context, businessID, id string) ([]WorkflowVersion, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return nil, ErrNotAuthenticated
	}
	if _, err := s.owned(ctx, businessID, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id)
}

// owned loads a workflow and hides it from every business but its owner.
func (s *Service) owned(ctx context.Context, businessID, id string) (Workflow, error) {
	w, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return Workflow{}, err
	}
	if w.BusinessID != businessID {
		return Workflow{}, ErrNotFound
	}
	return w, nil
}

func (s *Service) normalize(in UpsertInput) (fields, error) {
	in.Name = strings.TrimSpace(in.Name)
	var errs []FieldError
	if err := s.validate.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return fields{}, err
		}
		for _, fe := range ves {
			errs = append(errs, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
	}

	trigger := pipeline.ManualTrigger()
	if in.Trigger != nil {
		trigger = *in.Trigger
		if err := trigger.Validate(); err != nil {
			errs = append(errs, FieldError{Field: "trigger", Message: err.Error()})
		}
	}
	approval := pipeline.NoApproval()
	if in.Approval != nil {
		approval = *in.Approval
		if err := approval.Validate(); err != nil {
			errs = append(errs, FieldError{Field: "approval", Message: err.Error()})
		}
	}
	if err := pipeline.Validate(in.Pipeline, pipeline.ValidateOptions{RequireSequence: s.enforceSequence}); err != nil {
		var pe *pipeline.ValidationError
		if !errors.As(err, &pe) {
			return fields{}, err
		}
		for _, issue := range pe.Issues {
			errs = append(errs, FieldError{Field: "pipeline" + issue.Path, Message: issue.Message})
		}
	}
	if len(errs) > 0 {
		return fields{}, &ValidationError{Errors: errs}
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	requiresReview := false
	if in.RequiresHumanReview != nil {
		requiresReview = *in.RequiresHumanReview
	}
	return fields{
		Name:                in.Name,
		Description:         in.Description,
		Pipeline:            pipeline.Clone(in.Pipeline),
		Trigger:             trigger,
		Approval:            approval,
		IsActive:            isActive,
		RequiresHumanReview: requiresReview,
		ApproverRoles:       cloneStrings(in.ApproverRoles),
		SourceTemplateID:    in.SourceTemplateID,
	}, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func (s *Service) score(ctx context.Context, w Workflow) GovernanceHealth {
	h := s.scorer.Score(ctx, w)
	if h.Issues == nil {
		h.Issues = []string{}
	}
	return h
}

func (s *Service) afterWrite(ctx context.Context, op, event string, w Workflow) {
	if _, err := s.store.SaveVersion(ctx, w); err != nil {
		s.logger.Warn("workflow version not saved", zap.String("workflow_id", w.ID), zap.Error(err))
	}
	if s.writes != nil {
		s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
	s.logger.Info("workflow saved",
		zap.String("op", op),
		zap.String("workflow_id", w.ID),
		zap.String("business_id", w.BusinessID),
		zap.Int("steps", len(w.Pipeline)),
	)
	if s.events != nil {
		s.events.WorkflowEvent(ctx, event, w)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Rollback restores the fields recorded in version and saves the result as a
// new version. History is never rewritten.
func (s *Service) Rollback(ctx context.Context, businessID, id string, version int) (err error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Rollback", trace.WithAttributes(
		attribute.String("workflow_id", id),
		attribute.Int("version", version),
	))
	defer func() { endSpan(span, err) }()

	versions, err := s.Versions(ctx, businessID, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.Version == version {
			_, err = s.replace(ctx, id, businessID, v.Payload.fields())
			return err
		}
	}
	return ErrVersionNotFound
}
