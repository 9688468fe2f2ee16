package catalogue

import (
	"math"
	"strings"

	"github.com/scouting/core/coreerr"
)

// IsKnown reports whether id is a declared metric id (not an alias).
func (c *Catalogue) IsKnown(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Resolve maps a case-insensitive alias, display name, or metric id to its
// canonical metric id. It never falls back to fuzzy guessing: an
// unresolvable name returns ok=false, which callers must treat as an error.
func (c *Catalogue) Resolve(aliasOrName string) (id string, ok bool) {
	canonical, ok := c.aliases[strings.ToLower(strings.TrimSpace(aliasOrName))]
	return canonical, ok
}

// ValidationRequest is the subset of a StructuredQuery the Catalogue needs to
// validate. It is a plain struct rather than an interface so the query
// package can build one directly from a StructuredQuery without either
// package importing the other.
type ValidationRequest struct {
	MetricIDs   []string
	PresetID    string
	Position    string // empty if the query is not scoped to one position
	Weights     map[string]float64
	Limit       int
	MinMinutes  float64
}

// ValidateQuery checks every metric id, position/metric compatibility,
// weight finiteness and non-negativity, limit bounds, and minimum-minutes
// non-negativity. It returns every violation found rather than stopping at
// the first, so callers (in particular the Query Parser's layer 3) can
// report a complete list of offending tokens.
func (c *Catalogue) ValidateQuery(req ValidationRequest) []error {
	var errs []error

	if req.PresetID != "" {
		if c.Preset(req.PresetID) == nil {
			errs = append(errs, coreerr.NewUnknownMetricError(req.PresetID))
		}
	}

	for _, id := range req.MetricIDs {
		entry := c.entries[id]
		if entry == nil {
			errs = append(errs, coreerr.NewUnknownMetricError(id))
			continue
		}
		if req.Position != "" && !entry.AppliesToPosition(req.Position) {
			errs = append(errs, coreerr.NewIncompatibleMetricForPositionError(id, req.Position))
		}
	}

	for name, w := range req.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, coreerr.NewInvalidWeightError(name, w))
		}
	}

	if req.Limit < 1 || req.Limit > 500 {
		errs = append(errs, coreerr.NewInvalidLimitError(req.Limit))
	}

	if req.MinMinutes < 0 {
		errs = append(errs, coreerr.NewInvalidWeightError("min_minutes", req.MinMinutes))
	}

	return errs
}

// ResolveMetricSet resolves a preset id or explicit metric id/alias list to a
// canonical, ordered list of metric ids plus the preset's metric-id -> weight
// map (nil when an explicit metric list is resolved). Used by
// the Executor and Parser to turn "preset: striker_profile" or an explicit
// metric list into the vectors the Metric Engine actually consumes.
func (c *Catalogue) ResolveMetricSet(presetID string, explicitMetrics []string) (ids []string, weights map[string]float64, ok bool) {
	if presetID != "" {
		p := c.Preset(presetID)
		if p == nil {
			return nil, nil, false
		}
		return append([]string{}, p.Metrics...), p.Weights, true
	}

	ids = make([]string, 0, len(explicitMetrics))
	for _, m := range explicitMetrics {
		canonical, found := c.Resolve(m)
		if !found {
			return nil, nil, false
		}
		ids = append(ids, canonical)
	}
	return ids, nil, true
}
