package fallback

import (
	"fmt"
	"strconv"
	"strings"
)

// QualityClass labels a tier's capability.
type QualityClass string

const (
	QualityPremium  QualityClass = "premium"
	QualityStandard QualityClass = "standard"
	QualityFree     QualityClass = "free"
)

// ModelTier describes one candidate model. Tiers are immutable once the
// hierarchy is built.
type ModelTier struct {
	Name             string
	Quality          QualityClass
	CostPerKiloToken float64
	Label            string
}

// Hierarchy is the ordered list of candidate tiers, index 0 most preferred.
type Hierarchy struct {
	tiers []ModelTier
}

// NewHierarchy builds a hierarchy. An empty tier list is a configuration
// error and aborts initialization.
func NewHierarchy(tiers []ModelTier) (*Hierarchy, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("model hierarchy must contain at least one tier")
	}
	for i, t := range tiers {
		if t.Name == "" {
			return nil, fmt.Errorf("tier %d has no model name", i)
		}
	}

	copied := make([]ModelTier, len(tiers))
	copy(copied, tiers)
	return &Hierarchy{tiers: copied}, nil
}

// Len returns the number of tiers.
func (h *Hierarchy) Len() int {
	return len(h.tiers)
}

// Tier returns the tier at index i, clamped to the valid range.
func (h *Hierarchy) Tier(i int) ModelTier {
	if i < 0 {
		i = 0
	}
	if i >= len(h.tiers) {
		i = len(h.tiers) - 1
	}
	return h.tiers[i]
}

// ParseHierarchy parses a hierarchy from its config form:
// "name:quality:costPerKiloToken:label" entries separated by commas.
func ParseHierarchy(spec string) (*Hierarchy, error) {
	entries := strings.Split(spec, ",")
	tiers := make([]ModelTier, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid tier entry %q: want name:quality:cost:label", entry)
		}

		cost, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cost in tier entry %q: %w", entry, err)
		}

		quality := QualityClass(parts[1])
		switch quality {
		case QualityPremium, QualityStandard, QualityFree:
		default:
			return nil, fmt.Errorf("invalid quality class %q in tier entry %q", parts[1], entry)
		}

		tiers = append(tiers, ModelTier{
			Name:             parts[0],
			Quality:          quality,
			CostPerKiloToken: cost,
			Label:            parts[3],
		})
	}

	return NewHierarchy(tiers)
}

// DefaultHierarchy is the built-in premium → standard → free ladder.
func DefaultHierarchy() *Hierarchy {
	h, _ := NewHierarchy([]ModelTier{
		{Name: "gpt-4o", Quality: QualityPremium, CostPerKiloToken: 0.00500, Label: "Premium research model"},
		{Name: "gpt-4o-mini", Quality: QualityStandard, CostPerKiloToken: 0.00060, Label: "Standard research model"},
		{Name: "gpt-3.5-turbo", Quality: QualityFree, CostPerKiloToken: 0.00050, Label: "Basic fallback model"},
	})
	return h
}
