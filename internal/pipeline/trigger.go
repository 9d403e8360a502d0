package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerSchedule TriggerType = "schedule"
	TriggerWebhook  TriggerType = "webhook"
)

// Trigger describes how a workflow starts. Cron is set only for schedule
// triggers and EventKey only for webhook triggers; use the constructors.
type Trigger struct {
	Type     TriggerType `json:"type"`
	Cron     string      `json:"cron,omitempty"`
	EventKey string      `json:"eventKey,omitempty"`
}

func ManualTrigger() Trigger {
	return Trigger{Type: TriggerManual}
}

func ScheduleTrigger(cron string) Trigger {
	return Trigger{Type: TriggerSchedule, Cron: cron}
}

func WebhookTrigger(eventKey string) Trigger {
	return Trigger{Type: TriggerWebhook, EventKey: eventKey}
}

func (t Trigger) Validate() error {
	switch t.Type {
	case TriggerManual:
		if t.Cron != "" || t.EventKey != "" {
			return fmt.Errorf("%w: manual trigger carries no cron or eventKey", ErrInvalidTrigger)
		}
	case TriggerSchedule:
		if strings.TrimSpace(t.Cron) == "" {
			return fmt.Errorf("%w: schedule trigger requires cron", ErrInvalidTrigger)
		}
		if t.EventKey != "" {
			return fmt.Errorf("%w: schedule trigger carries no eventKey", ErrInvalidTrigger)
		}
	case TriggerWebhook:
		if strings.TrimSpace(t.EventKey) == "" {
			return fmt.Errorf("%w: webhook trigger requires eventKey", ErrInvalidTrigger)
		}
		if t.Cron != "" {
			return fmt.Errorf("%w: webhook trigger carries no cron", ErrInvalidTrigger)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrigger, t.Type)
	}
	return nil
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	type plain Trigger
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := Trigger(p).Validate(); err != nil {
		return err
	}
	*t = Trigger(p)
	return nil
}

// Approval gates a workflow on human sign-off. Threshold is 0 unless Required.
type Approval struct {
	Required  bool `json:"required"`
	Threshold int  `json:"threshold"`
}

func NoApproval() Approval {
	return Approval{}
}

func RequireApprovals(n int) Approval {
	if n < 1 {
		n = 1
	}
	return Approval{Required: true, Threshold: n}
}

func (a Approval) Validate() error {
	if !a.Required && a.Threshold != 0 {
		return fmt.Errorf("%w: threshold must be 0 when approval is not required", ErrInvalidApproval)
	}
	if a.Required && a.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1", ErrInvalidApproval)
	}
	return nil
}
