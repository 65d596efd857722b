package search

import (
	"strings"

	"github.com/sells-group/placematch/internal/policy"
)

// Categorizer maps provider type tags to the internal category vocabulary.
type Categorizer struct {
	rules    []policy.CategoryRule
	fallback string
	index    map[string]int
}

// NewCategorizer builds a Categorizer from a priority-ordered policy.
func NewCategorizer(p policy.CategoryPolicy) *Categorizer {
	c := &Categorizer{
		rules:    p.Rules,
		fallback: p.Default,
		index:    make(map[string]int),
	}
	for i, r := range p.Rules {
		for _, t := range r.Types {
			key := strings.ToLower(t)
			if _, ok := c.index[key]; !ok {
				c.index[key] = i
			}
		}
	}
	return c
}

// Categorize returns the category of the highest-priority rule matching any
// tag, or the default category.
func (c *Categorizer) Categorize(tags []string) string {
	best := -1
	for _, t := range tags {
		if i, ok := c.index[strings.ToLower(t)]; ok && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return c.fallback
	}
	return c.rules[best].Category
}
