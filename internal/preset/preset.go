// Package preset defines classification rule bundles. A preset maps
// normalized message text to a category and priority and maps priority to
// an SLA duration. Presets are immutable and versioned: the preset id that
// produced a classification is recorded on the work item.
package preset

import (
	"strings"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// CategoryUnknown is returned when no category rule matches.
const CategoryUnknown = "unknown"

// CategoryRule assigns a category when any of its keywords appears as a
// substring of the normalized text.
type CategoryRule struct {
	Category string   `yaml:"category"`
	AnyOf    []string `yaml:"any_of"`
}

// Preset is a named, versioned bundle of classification rules.
type Preset struct {
	ID string `yaml:"id"`

	// Rules are evaluated in order; the first match wins.
	Rules []CategoryRule `yaml:"rules"`

	// CriticalCategories always classify as critical, outranking keyword
	// urgency.
	CriticalCategories []string `yaml:"critical_categories"`

	// UrgencyKeywords escalate to high unless a critical category applies.
	UrgencyKeywords []string `yaml:"urgency_keywords"`

	// CategoryPriorities set a per-category priority consulted after the
	// urgency keywords. Categories absent from the map fall through to low.
	CategoryPriorities map[string]domain.Priority `yaml:"category_priorities"`

	// SLASeconds maps each priority to its response deadline. These are
	// policy constants, not computed values.
	SLASeconds map[domain.Priority]int `yaml:"sla_seconds"`
}

// ClassifyCategory returns the category of the first rule with any keyword
// match against the normalized text, or CategoryUnknown.
func (p *Preset) ClassifyCategory(normalized string) string {
	for _, rule := range p.Rules {
		for _, kw := range rule.AnyOf {
			if strings.Contains(normalized, kw) {
				return rule.Category
			}
		}
	}
	return CategoryUnknown
}

// ClassifyPriority resolves priority with a fixed precedence: critical
// category first, then urgency keywords, then the per-category priority,
// then low. The order is load-bearing: keyword urgency outranks category
// defaults but is itself outranked by the critical-category shortcut.
func (p *Preset) ClassifyPriority(normalized, category string) domain.Priority {
	for _, c := range p.CriticalCategories {
		if category == c {
			return domain.PriorityCritical
		}
	}
	for _, kw := range p.UrgencyKeywords {
		if strings.Contains(normalized, kw) {
			return domain.PriorityHigh
		}
	}
	if prio, ok := p.CategoryPriorities[category]; ok {
		return prio
	}
	return domain.PriorityLow
}

// SLAFor returns the SLA duration in seconds for a priority.
func (p *Preset) SLAFor(prio domain.Priority) int {
	return p.SLASeconds[prio]
}
