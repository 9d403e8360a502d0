package catalog

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Catalog owns the generated templates. The first read builds them; after
// that the same slice is served until Rebuild is called.
type Catalog struct {
	perTier int
	logger  *zap.Logger

	mu        sync.Mutex
	built     bool
	templates []Template
	byID      map[string]int
}

func New(perTier int, logger *zap.Logger) *Catalog {
	if perTier <= 0 {
		perTier = DefaultPerTier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{perTier: perTier, logger: logger}
}

func (c *Catalog) snapshot() ([]Template, map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.built {
		c.buildLocked()
	}
	return c.templates, c.byID
}

func (c *Catalog) buildLocked() {
	start := time.Now()
	templates := Generate(c.perTier)
	byID := make(map[string]int, len(templates))
	for i, t := range templates {
		byID[t.ID] = i
	}
	c.templates = templates
	c.byID = byID
	c.built = true
	c.logger.Info("template catalog built",
		zap.Int("templates", len(templates)),
		zap.Int("per_tier", c.perTier),
		zap.Duration("took", time.Since(start)),
	)
}

// Rebuild regenerates the catalog. Readers holding an older slice keep it.
func (c *Catalog) Rebuild() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()
}

// Templates returns a copy of every template in catalog order.
func (c *Catalog) Templates() []Template {
	templates, _ := c.snapshot()
	out := make([]Template, len(templates))
	for i, t := range templates {
		out[i] = t.clone()
	}
	return out
}

// Lookup returns a copy of the template with the given id.
func (c *Catalog) Lookup(id string) (Template, bool) {
	templates, byID := c.snapshot()
	i, ok := byID[id]
	if !ok {
		return Template{}, false
	}
	return templates[i].clone(), true
}

type Query struct {
	Tier Tier
	Tag  string
	Text string
}

// Filter returns the templates matching every non-empty field of q, in
// catalog order. Text matches name, description or any tag, ignoring case.
func (c *Catalog) Filter(q Query) []Template {
	templates, _ := c.snapshot()
	text := strings.ToLower(strings.TrimSpace(q.Text))
	tag := strings.ToLower(strings.TrimSpace(q.Tag))
	out := []Template{}
	for _, t := range templates {
		if q.Tier != "" && t.Tier != q.Tier {
			continue
		}
		if tag != "" && !hasTag(t, tag) {
			continue
		}
		if text != "" && !matchesText(t, text) {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}

// Counts returns the number of templates per tier.
func (c *Catalog) Counts() map[Tier]int {
	templates, _ := c.snapshot()
	out := make(map[Tier]int, len(Tiers))
	for _, t := range templates {
		out[t.Tier]++
	}
	return out
}

func hasTag(t Template, tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

func matchesText(t Template, text string) bool {
	if strings.Contains(strings.ToLower(t.Name), text) || strings.Contains(strings.ToLower(t.Description), text) {
		return true
	}
	for _, v := range t.Tags {
		if strings.Contains(v, text) {
			return true
		}
	}
	return false
}
