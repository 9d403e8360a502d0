// Package pipeline describes the units of work, triggers and approval gates
// that make up an automatable workflow.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type StepType string

const (
	StepCollect  StepType = "collect"
	StepEnrich   StepType = "enrich"
	StepGenerate StepType = "generate"
	StepReview   StepType = "review"
	StepPublish  StepType = "publish"
	StepNotify   StepType = "notify"
	StepDelay    StepType = "delay"
)

// StepTypes lists every step type in a fixed order. Template generation
// indexes into it, so the order is part of the catalog's contract.
var StepTypes = []StepType{
	StepCollect,
	StepEnrich,
	StepGenerate,
	StepReview,
	StepPublish,
	StepNotify,
	StepDelay,
}

// StepConfig is the per-type configuration of a step. Only the types in this
// package implement it.
type StepConfig interface {
	StepType() StepType
	sealed()
}

type CollectConfig struct {
	Source string `json:"source,omitempty"`
}

type EnrichConfig struct {
	Provider string `json:"provider,omitempty"`
}

type GenerateConfig struct {
	Variant   string `json:"variant,omitempty"`
	Intensity string `json:"intensity,omitempty"`
}

type ReviewConfig struct {
	ApproverRole string `json:"approverRole,omitempty"`
}

type PublishConfig struct {
	Channel string `json:"channel,omitempty"`
}

type NotifyConfig struct {
	Channel   string `json:"channel,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

type DelayConfig struct {
	DelayMinutes int `json:"delayMinutes"`
}

func (CollectConfig) StepType() StepType  { return StepCollect }
func (EnrichConfig) StepType() StepType   { return StepEnrich }
func (GenerateConfig) StepType() StepType { return StepGenerate }
func (ReviewConfig) StepType() StepType   { return StepReview }
func (PublishConfig) StepType() StepType  { return StepPublish }
func (NotifyConfig) StepType() StepType   { return StepNotify }
func (DelayConfig) StepType() StepType    { return StepDelay }

func (CollectConfig) sealed()  {}
func (EnrichConfig) sealed()   {}
func (GenerateConfig) sealed() {}
func (ReviewConfig) sealed()   {}
func (PublishConfig) sealed()  {}
func (NotifyConfig) sealed()   {}
func (DelayConfig) sealed()    {}

// Step is one unit of work in a pipeline. Step is the 1-based position.
type Step struct {
	Step   int
	Name   string
	Config StepConfig
}

func (s Step) Type() StepType {
	if s.Config == nil {
		return ""
	}
	return s.Config.StepType()
}

type stepJSON struct {
	Type   StepType        `json:"type"`
	Step   int             `json:"step"`
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	if s.Config == nil {
		return nil, fmt.Errorf("step %d has no config", s.Step)
	}
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stepJSON{Type: s.Type(), Step: s.Step, Name: s.Name, Config: cfg})
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var raw stepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := decodeConfig(raw.Type, raw.Config)
	if err != nil {
		return err
	}
	*s = Step{Step: raw.Step, Name: raw.Name, Config: cfg}
	return nil
}

func decodeConfig(t StepType, data json.RawMessage) (StepConfig, error) {
	var (
		cfg StepConfig
		err error
	)
	switch t {
	case StepCollect:
		cfg, err = strictDecode[CollectConfig](data)
	case StepEnrich:
		cfg, err = strictDecode[EnrichConfig](data)
	case StepGenerate:
		cfg, err = strictDecode[GenerateConfig](data)
	case StepReview:
		cfg, err = strictDecode[ReviewConfig](data)
	case StepPublish:
		cfg, err = strictDecode[PublishConfig](data)
	case StepNotify:
		cfg, err = strictDecode[NotifyConfig](data)
	case StepDelay:
		cfg, err = strictDecode[DelayConfig](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", t, err)
	}
	return cfg, nil
}

func strictDecode[T StepConfig](data json.RawMessage) (T, error) {
	var out T
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Clone returns a copy of steps that shares no backing array with the input.
// Configs are value types so copying the slice is enough. The result is never
// nil.
func Clone(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// ApproverRoles returns the distinct approver roles named by review steps, in
// pipeline order.
func ApproverRoles(steps []Step) []string {
	roles := []string{}
	seen := map[string]struct{}{}
	for _, s := range steps {
		rc, ok := s.Config.(ReviewConfig)
		if !ok || rc.ApproverRole == "" {
			continue
		}
		if _, dup := seen[rc.ApproverRole]; dup {
			continue
		}
		seen[rc.ApproverRole] = struct{}{}
		roles = append(roles, rc.ApproverRole)
	}
	return roles
}
