package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ronappleton/flowdesk/internal/pipeline"
)

// DefaultPerTier is the number of generated templates per tier, not counting
// flagships.
const DefaultPerTier = 120

// Everything below is indexed by modulo arithmetic on the template index, so
// reordering or resizing any list changes every generated template.
var (
	Categories = []string{
		"Lead Capture",
		"Newsletter",
		"Social Content",
		"Customer Onboarding",
		"Invoice Follow-up",
		"Review Requests",
		"Appointment Reminders",
		"Product Launch",
		"Churn Rescue",
		"Support Triage",
		"Partner Outreach",
		"Compliance Digest",
	}

	Crons = []string{"0 9 * * 1", "0 8 * * *"}

	Variants    = []string{"concise", "detailed", "playful", "formal", "persuasive"}
	Intensities = []string{"low", "medium", "high"}

	sources       = []string{"web_form", "csv_upload", "crm", "inbox"}
	providers     = []string{"company_lookup", "contact_lookup", "sentiment"}
	approverRoles = []string{"owner", "manager", "editor"}
	publishTo     = []string{"email", "linkedin", "blog", "sms"}
	notifyVia     = []string{"email", "slack", "sms"}
	recipients    = []string{"owner", "team", "customer"}
	delayMinutes  = []int{15, 60, 240, 1440}

	TierTags = map[Tier][]string{
		TierSolopreneur: {"solo", "quick-win", "low-touch", "creator"},
		TierStartup:     {"growth", "scrappy", "automation", "launch"},
		TierSME:         {"operations", "team", "process", "reporting"},
		TierEnterprise:  {"compliance", "governance", "scale", "audit"},
	}

	pipelineLength = map[Tier]int{
		TierSolopreneur: 3,
		TierStartup:     4,
		TierSME:         5,
		TierEnterprise:  6,
	}

	tierLabels = map[Tier]string{
		TierSolopreneur: "Solo",
		TierStartup:     "Startup",
		TierSME:         "SME",
		TierEnterprise:  "Enterprise",
	}
)

// Generate returns the full catalog: every tier in Tiers order, flagships
// first within their tier, then perTier generated templates indexed from 1.
// It is pure; equal inputs always give equal output.
func Generate(perTier int) []Template {
	if perTier < 0 {
		perTier = 0
	}
	out := make([]Template, 0, len(Tiers)*perTier+len(flagships))
	for _, tier := range Tiers {
		if f, ok := flagships[tier]; ok {
			out = append(out, f())
		}
		for i := 1; i <= perTier; i++ {
			out = append(out, generateOne(tier, i))
		}
	}
	return out
}

func generateOne(tier Tier, i int) Template {
	category := Categories[i%len(Categories)]
	steps := generatePipeline(tier, i, category)
	return Template{
		ID:          templateID(tier, strconv.Itoa(i)),
		Name:        fmt.Sprintf("%s %s #%d", tierLabels[tier], category, i),
		Description: fmt.Sprintf("%s automation for %s teams in %d steps.", category, tier, len(steps)),
		Tier:        tier,
		Tags:        generateTags(tier, i, category),
		Trigger:     generateTrigger(i),
		Approval:    generateApproval(tier, i),
		Pipeline:    steps,
	}
}

func generateTrigger(i int) pipeline.Trigger {
	switch {
	case i%6 == 0:
		return pipeline.WebhookTrigger("evt_" + strconv.FormatInt(int64(i), 36))
	case i%3 == 0:
		return pipeline.ScheduleTrigger(Crons[i%2])
	default:
		return pipeline.ManualTrigger()
	}
}

func generateApproval(tier Tier, i int) pipeline.Approval {
	if (tier != TierSME && tier != TierEnterprise) || i%4 != 0 {
		return pipeline.NoApproval()
	}
	if tier == TierEnterprise {
		return pipeline.RequireApprovals(2)
	}
	return pipeline.RequireApprovals(1)
}

func generatePipeline(tier Tier, i int, category string) []pipeline.Step {
	n := pipelineLength[tier]
	steps := make([]pipeline.Step, 0, n)
	for s := 0; s < n; s++ {
		k := i + s
		kind := pipeline.StepTypes[k%len(pipeline.StepTypes)]
		steps = append(steps, pipeline.Step{
			Step:   s + 1,
			Name:   stepName(kind, category),
			Config: stepConfig(kind, i, s),
		})
	}
	return steps
}

func stepConfig(kind pipeline.StepType, i, s int) pipeline.StepConfig {
	k := i + s
	switch kind {
	case pipeline.StepCollect:
		return pipeline.CollectConfig{Source: sources[k%len(sources)]}
	case pipeline.StepEnrich:
		return pipeline.EnrichConfig{Provider: providers[k%len(providers)]}
	case pipeline.StepGenerate:
		return pipeline.GenerateConfig{
			Variant:   Variants[(i+2*s)%len(Variants)],
			Intensity: Intensities[k%len(Intensities)],
		}
	case pipeline.StepReview:
		return pipeline.ReviewConfig{ApproverRole: approverRoles[k%len(approverRoles)]}
	case pipeline.StepPublish:
		return pipeline.PublishConfig{Channel: publishTo[k%len(publishTo)]}
	case pipeline.StepNotify:
		return pipeline.NotifyConfig{Channel: notifyVia[k%len(notifyVia)], Recipient: recipients[k%len(recipients)]}
	default:
		return pipeline.DelayConfig{DelayMinutes: delayMinutes[k%len(delayMinutes)]}
	}
}

var stepVerbs = map[pipeline.StepType]string{
	pipeline.StepCollect:  "Collect",
	pipeline.StepEnrich:   "Enrich",
	pipeline.StepGenerate: "Generate",
	pipeline.StepReview:   "Review",
	pipeline.StepPublish:  "Publish",
	pipeline.StepNotify:   "Notify",
	pipeline.StepDelay:    "Wait",
}

func stepName(kind pipeline.StepType, category string) string {
	return stepVerbs[kind] + ": " + category
}

func generateTags(tier Tier, i int, category string) []string {
	tt := TierTags[tier]
	return dedupe([]string{
		Slugify(category),
		tt[i%len(tt)],
		tt[(2*i)%len(tt)],
	})
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var sb strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return sb.String()
}
