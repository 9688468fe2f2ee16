package catalogue

import "testing"

const testYAML = `
position_codes:
  - GK
  - CB
  - ST

metrics:
  - id: goals_per90
    name: Goals per 90
    category: shooting
    numerator: goals
    unit: per90
    direction: higher
    per_90: true
    positions: [ST]
    min_minutes: 450
    aliases: [goal scoring rate]
  - id: save_pct
    name: Save percentage
    category: goalkeeper
    numerator: saves
    denominator: shots_on_target
    unit: percentage
    direction: higher
    positions: [GK]

presets:
  - id: striker_profile
    name: Striker Profile
    metrics: [goals_per90]
    weights:
      goals_per90: 1.0
`

func testSchema() SchemaChecker {
	return staticColumns{"goals", "saves", "shots_on_target", "minutes", "matches"}
}

func TestLoadFromBytesValid(t *testing.T) {
	c, err := LoadFromBytes([]byte(testYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsKnown("goals_per90") {
		t.Errorf("expected goals_per90 to be known")
	}
	if c.IsKnown("clutch_factor") {
		t.Errorf("did not expect clutch_factor to be known")
	}
}

func TestResolveAliasCaseInsensitive(t *testing.T) {
	c, err := LoadFromBytes([]byte(testYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		input   string
		wantID  string
		wantOK  bool
	}{
		{"Goal Scoring Rate", "goals_per90", true},
		{"GOALS_PER90", "goals_per90", true},
		{"clutch factor", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, ok := c.Resolve(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, id, tt.wantID)
			}
		})
	}
}

func TestLoadRejectsUnknownColumn(t *testing.T) {
	badYAML := `
position_codes: [ST]
metrics:
  - id: fake_metric
    name: Fake Metric
    category: shooting
    numerator: not_a_real_column
    unit: count
    direction: higher
    positions: [ST]
`
	_, err := LoadFromBytes([]byte(badYAML), testSchema())
	if err == nil {
		t.Fatal("expected error for unknown column reference")
	}
}

func TestLoadRejectsUnknownPresetMetric(t *testing.T) {
	badYAML := `
position_codes: [ST]
metrics:
  - id: goals_per90
    name: Goals per 90
    category: shooting
    numerator: goals
    unit: per90
    direction: higher
    positions: [ST]
presets:
  - id: bad_preset
    name: Bad Preset
    metrics: [nonexistent_metric]
`
	_, err := LoadFromBytes([]byte(badYAML), testSchema())
	if err == nil {
		t.Fatal("expected error for preset referencing unknown metric")
	}
}

func TestLoadRejectsUnrecognisedPositionScope(t *testing.T) {
	badYAML := `
position_codes: [ST]
metrics:
  - id: goals_per90
    name: Goals per 90
    category: shooting
    numerator: goals
    unit: per90
    direction: higher
    positions: [ZZ]
`
	_, err := LoadFromBytes([]byte(badYAML), testSchema())
	if err == nil {
		t.Fatal("expected error for unrecognised position scope")
	}
}

func TestValidateQueryCollectsAllViolations(t *testing.T) {
	c, err := LoadFromBytes([]byte(testYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errs := c.ValidateQuery(ValidationRequest{
		MetricIDs:  []string{"clutch_factor", "save_pct"},
		Position:   "ST",
		Weights:    map[string]float64{"role": -1},
		Limit:      0,
		MinMinutes: -5,
	})

	if len(errs) < 4 {
		t.Fatalf("expected at least 4 violations, got %d: %v", len(errs), errs)
	}
}

func TestValidateQueryAcceptsWellFormedRequest(t *testing.T) {
	c, err := LoadFromBytes([]byte(testYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errs := c.ValidateQuery(ValidationRequest{
		MetricIDs:  []string{"goals_per90"},
		Position:   "ST",
		Weights:    map[string]float64{"role": 0.6, "stats": 0.4},
		Limit:      10,
		MinMinutes: 450,
	})
	if len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestResolveMetricSetFromPreset(t *testing.T) {
	c, err := LoadFromBytes([]byte(testYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, weights, ok := c.ResolveMetricSet("striker_profile", nil)
	if !ok {
		t.Fatal("expected preset to resolve")
	}
	if len(ids) != 1 || ids[0] != "goals_per90" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if weights["goals_per90"] != 1.0 {
		t.Fatalf("unexpected weights: %v", weights)
	}
}

func TestPresetsOrderIsStableAcrossCalls(t *testing.T) {
	const multiPresetYAML = `
position_codes: [GK, CB, ST]
metrics:
  - id: goals_per90
    name: Goals per 90
    category: shooting
    numerator: goals
    unit: per90
    direction: higher
    per_90: true
    positions: [ST]
presets:
  - id: striker_profile
    name: Striker Profile
    metrics: [goals_per90]
  - id: all_rounder
    name: All Rounder
    metrics: [goals_per90]
  - id: finisher
    name: Finisher
    metrics: [goals_per90]
`
	c, err := LoadFromBytes([]byte(multiPresetYAML), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"striker_profile", "all_rounder", "finisher"}
	for i := 0; i < 20; i++ {
		got := make([]string, 0, len(want))
		for _, p := range c.Presets() {
			got = append(got, p.ID)
		}
		if len(got) != len(want) {
			t.Fatalf("call %d: got %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("call %d: got %v, want %v", i, got, want)
			}
		}
	}
}
