package catalog

import "github.com/ronappleton/flowdesk/internal/pipeline"

// Hand-authored templates placed at the head of their tier.
var flagships = map[Tier]func() Template{
	TierSolopreneur: brandBooster,
	TierStartup:     launchRadar,
}

func brandBooster() Template {
	return Template{
		ID:          templateID(TierSolopreneur, "brand-booster"),
		Name:        "Brand Booster",
		Description: "Turn a short brand brief into a reviewed LinkedIn post without leaving your inbox.",
		Tier:        TierSolopreneur,
		Tags:        []string{"brand", "content", "solo", "flagship"},
		Trigger:     pipeline.ManualTrigger(),
		Approval:    pipeline.RequireApprovals(1),
		Pipeline: []pipeline.Step{
			{Step: 1, Name: "Collect brand brief", Config: pipeline.CollectConfig{Source: "web_form"}},
			{Step: 2, Name: "Draft post", Config: pipeline.GenerateConfig{Variant: "playful", Intensity: "high"}},
			{Step: 3, Name: "Owner review", Config: pipeline.ReviewConfig{ApproverRole: "owner"}},
			{Step: 4, Name: "Publish to LinkedIn", Config: pipeline.PublishConfig{Channel: "linkedin"}},
		},
	}
}

func launchRadar() Template {
	return Template{
		ID:          templateID(TierStartup, "launch-radar"),
		Name:        "Launch Radar",
		Description: "Weekly scan of signups and press mentions, summarised for the founding team.",
		Tier:        TierStartup,
		Tags:        []string{"launch", "growth", "digest", "flagship"},
		Trigger:     pipeline.ScheduleTrigger(Crons[0]),
		Approval:    pipeline.NoApproval(),
		Pipeline: []pipeline.Step{
			{Step: 1, Name: "Collect signups", Config: pipeline.CollectConfig{Source: "crm"}},
			{Step: 2, Name: "Enrich companies", Config: pipeline.EnrichConfig{Provider: "company_lookup"}},
			{Step: 3, Name: "Write digest", Config: pipeline.GenerateConfig{Variant: "concise", Intensity: "medium"}},
			{Step: 4, Name: "Send to founders", Config: pipeline.NotifyConfig{Channel: "slack", Recipient: "team"}},
			{Step: 5, Name: "Quiet period", Config: pipeline.DelayConfig{DelayMinutes: 1440}},
		},
	}
}
