// Package catalog builds and serves the builtin workflow templates offered to
// each customer tier.
package catalog

import (
	"github.com/ronappleton/flowdesk/internal/pipeline"
)

type Tier string

const (
	TierSolopreneur Tier = "solopreneur"
	TierStartup     Tier = "startup"
	TierSME         Tier = "sme"
	TierEnterprise  Tier = "enterprise"
)

// Tiers is the catalog order.
var Tiers = []Tier{TierSolopreneur, TierStartup, TierSME, TierEnterprise}

func (t Tier) Valid() bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

type Template struct {
	ID          string            `json:"_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tier        Tier              `json:"tier"`
	Tags        []string          `json:"tags"`
	Trigger     pipeline.Trigger  `json:"trigger"`
	Approval    pipeline.Approval `json:"approval"`
	Pipeline    []pipeline.Step   `json:"pipeline"`
}

// clone copies the slices so callers never share memory with the cache.
func (t Template) clone() Template {
	t.Tags = append(make([]string, 0, len(t.Tags)), t.Tags...)
	t.Pipeline = pipeline.Clone(t.Pipeline)
	return t
}

func templateID(tier Tier, key string) string {
	return "builtin:" + string(tier) + ":" + key
}
