// Package catalogue is the single source of truth for every metric the
// scouting analytics core is allowed to name, compute, or return. Nothing
// outside this package may define a metric formula; the catalogue file is
// the canonical source and is loaded once at startup.
package catalogue

import "strings"

// Direction indicates whether a higher or lower metric value is better.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Unit documents what scale a metric's value is expressed in. Percentages
// and fractions are never interchangeable; formulas declare which they
// produce.
type Unit string

const (
	UnitCount      Unit = "count"
	UnitPer90      Unit = "per90"
	UnitPercentage Unit = "percentage"
	UnitFraction   Unit = "fraction"
	UnitRatio      Unit = "ratio"
)

// Entry is one metric definition: id, formula, unit, scope, and metadata.
// The formula is expressed over PlayerSeasonStat column names; composite
// formulas like "non_penalty_goals / shots_on_target" are represented as
// Numerator/Denominator pairs rather than a parsed expression language,
// matching the catalogue file's declarative shape.
type Entry struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Category       string    `yaml:"category"`
	Numerator      string    `yaml:"numerator"`
	Denominator    string    `yaml:"denominator,omitempty"`
	Unit           Unit      `yaml:"unit"`
	Direction      Direction `yaml:"direction"`
	Positions      []string  `yaml:"positions"`
	MinMinutes     int       `yaml:"min_minutes,omitempty"`
	PerNinety      bool      `yaml:"per_90"`
	Aliases        []string  `yaml:"aliases,omitempty"`
}

// AppliesToPosition reports whether this metric is meaningful for the given
// position code. An entry with an empty Positions list applies to every
// position (e.g. a physical metric tracked for all outfielders and
// goalkeepers alike).
func (e *Entry) AppliesToPosition(position string) bool {
	if len(e.Positions) == 0 {
		return true
	}
	for _, p := range e.Positions {
		if strings.EqualFold(p, position) {
			return true
		}
	}
	return false
}

// Preset is a named, weighted bundle of metric ids representing a positional
// archetype, used as the default metric set when a query does not specify
// one explicitly.
type Preset struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Metrics   []string           `yaml:"metrics"`
	Weights   map[string]float64 `yaml:"weights"`
	Positions []string           `yaml:"positions,omitempty"`
}

// file is the on-disk shape of the catalogue file; Catalogue is the loaded,
// indexed, immutable runtime representation built from it.
type file struct {
	Metrics  []Entry  `yaml:"metrics"`
	Presets  []Preset `yaml:"presets"`
	Positions []string `yaml:"position_codes"`
}

// Catalogue is the immutable, loaded-once registry of every metric and
// preset the core may reference. It is safe to share across concurrent
// requests without locking: nothing after Load mutates it.
type Catalogue struct {
	entries     map[string]*Entry  // metric id -> entry
	aliases     map[string]string  // lowercased alias/name -> metric id
	presets     map[string]*Preset // preset id -> preset
	positions   map[string]bool    // recognised position codes
	entryOrder  []string           // stable order for listing
	presetOrder []string           // stable order for listing, mirrors entryOrder
}

// Entries returns every metric entry, in catalogue-file order.
func (c *Catalogue) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.entryOrder))
	for _, id := range c.entryOrder {
		out = append(out, c.entries[id])
	}
	return out
}

// Entry returns the metric entry for an id, or nil if unknown.
func (c *Catalogue) Entry(id string) *Entry {
	return c.entries[id]
}

// Preset returns the preset for an id, or nil if unknown.
func (c *Catalogue) Preset(id string) *Preset {
	return c.presets[id]
}

// Presets returns every defined preset, in catalogue-file order. Iterating
// presetOrder rather than the presets map keeps this deterministic across
// calls and processes, which callers such as the Query Parser's lenient
// fallback rely on for reproducible results.
func (c *Catalogue) Presets() []*Preset {
	out := make([]*Preset, 0, len(c.presetOrder))
	for _, id := range c.presetOrder {
		out = append(out, c.presets[id])
	}
	return out
}

// PositionRecognised reports whether a position code is declared in the
// catalogue file's position_codes list.
func (c *Catalogue) PositionRecognised(code string) bool {
	return c.positions[strings.ToUpper(code)]
}

// PresetForPosition returns the first preset, in catalogue-file order, whose
// Positions list includes the given position code, or nil if none matches.
// Used by the Query Parser's lenient-mode fallback and the Query Executor to
// default a reference player's metric set to their own position archetype
// rather than an arbitrary preset.
func (c *Catalogue) PresetForPosition(position string) *Preset {
	for _, id := range c.presetOrder {
		p := c.presets[id]
		for _, pos := range p.Positions {
			if strings.EqualFold(pos, position) {
				return p
			}
		}
	}
	return nil
}

// PositionCodes returns every position code declared in the catalogue file,
// in no particular order.
func (c *Catalogue) PositionCodes() []string {
	out := make([]string, 0, len(c.positions))
	for code := range c.positions {
		out = append(out, code)
	}
	return out
}
