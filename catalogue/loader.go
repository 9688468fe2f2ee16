package catalogue

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scouting/core/coreerr"
)

// SchemaChecker is the narrow slice of the Store Gateway the Catalogue's
// self-check needs: a way to ask what columns a live schema actually has.
// The Catalogue validates against PlayerSeasonStat's known columns rather
// than the Gateway's raw information_schema output, since every formula
// targets that one table; see Load's self-check.
type SchemaChecker interface {
	KnownColumns() []string
}

// staticColumns lets Load be called without a live store connection (e.g. in
// tests) while still exercising the same self-check logic.
type staticColumns []string

func (s staticColumns) KnownColumns() []string { return s }

// Load reads and parses the catalogue file at path, then runs the startup
// self-check described in the system design: every column referenced by
// every formula must exist, every preset must refer to defined metric ids,
// and every position scope must be a recognised code. Failure is fatal,
// returned as coreerr.CatalogueInvalidError.
func Load(path string, schema SchemaChecker) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.NewCatalogueInvalidError([]string{fmt.Sprintf("read %s: %v", path, err)})
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, coreerr.NewCatalogueInvalidError([]string{fmt.Sprintf("parse %s: %v", path, err)})
	}

	return build(&f, schema)
}

// LoadFromBytes parses catalogue YAML already in memory, useful for tests
// that want to exercise the self-check against a small fixture.
func LoadFromBytes(raw []byte, schema SchemaChecker) (*Catalogue, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, coreerr.NewCatalogueInvalidError([]string{fmt.Sprintf("parse: %v", err)})
	}
	return build(&f, schema)
}

func build(f *file, schema SchemaChecker) (*Catalogue, error) {
	var reasons []string

	known := make(map[string]bool)
	for _, c := range schema.KnownColumns() {
		known[c] = true
	}

	positions := make(map[string]bool)
	for _, p := range f.Positions {
		positions[strings.ToUpper(p)] = true
	}

	c := &Catalogue{
		entries: make(map[string]*Entry),
		aliases: make(map[string]string),
		presets: make(map[string]*Preset),
		positions: positions,
	}

	for i := range f.Metrics {
		e := &f.Metrics[i]
		if e.ID == "" {
			reasons = append(reasons, "metric entry missing id")
			continue
		}
		if _, dup := c.entries[e.ID]; dup {
			reasons = append(reasons, fmt.Sprintf("duplicate metric id %q", e.ID))
			continue
		}
		if e.Numerator == "" {
			reasons = append(reasons, fmt.Sprintf("metric %q: missing numerator", e.ID))
		} else if !known[e.Numerator] {
			reasons = append(reasons, fmt.Sprintf("metric %q: numerator column %q not in schema", e.ID, e.Numerator))
		}
		if e.Denominator != "" && !known[e.Denominator] {
			reasons = append(reasons, fmt.Sprintf("metric %q: denominator column %q not in schema", e.ID, e.Denominator))
		}
		if e.Direction != HigherIsBetter && e.Direction != LowerIsBetter {
			reasons = append(reasons, fmt.Sprintf("metric %q: invalid direction %q", e.ID, e.Direction))
		}
		for _, pos := range e.Positions {
			if !positions[strings.ToUpper(pos)] {
				reasons = append(reasons, fmt.Sprintf("metric %q: unrecognised position scope %q", e.ID, pos))
			}
		}

		c.entries[e.ID] = e
		c.entryOrder = append(c.entryOrder, e.ID)
		c.aliases[strings.ToLower(e.ID)] = e.ID
		c.aliases[strings.ToLower(e.Name)] = e.ID
		for _, alias := range e.Aliases {
			c.aliases[strings.ToLower(alias)] = e.ID
		}
	}

	for i := range f.Presets {
		p := &f.Presets[i]
		if p.ID == "" {
			reasons = append(reasons, "preset entry missing id")
			continue
		}
		for _, metricID := range p.Metrics {
			if _, ok := c.entries[metricID]; !ok {
				reasons = append(reasons, fmt.Sprintf("preset %q: references unknown metric %q", p.ID, metricID))
			}
		}
		for metricID, weight := range p.Weights {
			if _, ok := c.entries[metricID]; !ok {
				reasons = append(reasons, fmt.Sprintf("preset %q: weight for unknown metric %q", p.ID, metricID))
			}
			if weight < 0 {
				reasons = append(reasons, fmt.Sprintf("preset %q: negative weight for metric %q", p.ID, metricID))
			}
		}
		for _, pos := range p.Positions {
			if !positions[strings.ToUpper(pos)] {
				reasons = append(reasons, fmt.Sprintf("preset %q: unrecognised position scope %q", p.ID, pos))
			}
		}
		c.presets[p.ID] = p
		c.presetOrder = append(c.presetOrder, p.ID)
	}

	if len(reasons) > 0 {
		return nil, coreerr.NewCatalogueInvalidError(reasons)
	}
	return c, nil
}

// gatewaySchema adapts a live store schema descriptor (table -> columns) to
// SchemaChecker, scoped to the player_season_stats table the Catalogue cares
// about.
type gatewaySchema struct {
	columns []string
}

func (g gatewaySchema) KnownColumns() []string { return g.columns }

// NewSchemaChecker builds a SchemaChecker from a live schema descriptor's
// player_season_stats columns, falling back to the context only for future
// cancellation-aware extensions (unused today, kept for symmetry with the
// rest of the Gateway's context-taking methods).
func NewSchemaChecker(_ context.Context, tableColumns []string) SchemaChecker {
	return gatewaySchema{columns: tableColumns}
}
