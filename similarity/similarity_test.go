package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/metricengine"
	"github.com/scouting/core/roleengine"
	"github.com/scouting/core/store"
)

const endToEndYAML = `
position_codes: [ST]
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
    positions: [ST]
    metrics: [goals_per90]
    weights:
      goals_per90: 1.0
`

type staticColumns []string

func (s staticColumns) KnownColumns() []string { return s }

// fakeStore is an in-memory store.PlayerSeasonSource used to drive
// Engine.SimilarTo end to end without a database.
type fakeStore struct {
	rows map[int64]store.PlayerSeasonRow
}

func (f *fakeStore) FetchPlayerSeason(_ context.Context, playerID int64, _ string) (*store.PlayerSeasonRow, error) {
	row := f.rows[playerID]
	return &row, nil
}

func (f *fakeStore) FetchCohort(_ context.Context, _ string, _ store.CohortFilters) ([]store.PlayerSeasonRow, error) {
	out := make([]store.PlayerSeasonRow, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func ptr(v float64) *float64 { return &v }

// endToEndCohort builds three ST rows: the reference (42), a role-identical
// candidate with divergent stats (7), and a role-divergent candidate with
// identical stats (8) — enough spread to exercise both components of the
// similarity score.
func endToEndCohort() map[int64]store.PlayerSeasonRow {
	mk := func(id int64, avgX, avgY, goals float64) store.PlayerSeasonRow {
		return store.PlayerSeasonRow{
			Player: store.Player{ID: id, PrimaryPosition: "ST"},
			Stat: store.PlayerSeasonStat{
				PlayerID: id,
				Minutes:  900,
				Goals:    goals,
				AvgX:     ptr(avgX),
				AvgY:     ptr(avgY),
			},
		}
	}
	return map[int64]store.PlayerSeasonRow{
		42: mk(42, 50, 50, 10),
		7:  mk(7, 50, 50, 2),
		8:  mk(8, 90, 10, 10),
	}
}

func endToEndEngine(t *testing.T) (*Engine, *fakeStore) {
	t.Helper()
	cat, err := catalogue.LoadFromBytes([]byte(endToEndYAML), staticColumns{"goals", "minutes", "matches"})
	if err != nil {
		t.Fatalf("unexpected catalogue error: %v", err)
	}
	repo := &fakeStore{rows: endToEndCohort()}
	metrics := metricengine.New(cat, repo, 0, 2)
	roles := roleengine.New(nil, 0)
	return New(cat, repo, roles, metrics, true), repo
}

func TestSimilarToSelfSimilarityIsOne(t *testing.T) {
	e, _ := endToEndEngine(t)
	ranking, err := e.SimilarTo(context.Background(), 42, "2024-25", store.CohortFilters{}, []string{"goals_per90"}, Weights{Role: 0.6, Stats: 0.4}, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range ranking.Results {
		if r.PlayerID == 42 {
			if math.Abs(r.Total-1.0) > 1e-9 {
				t.Errorf("expected reference self-similarity of 1.0, got %v", r.Total)
			}
			return
		}
	}
	t.Fatal("reference player missing from results")
}

// TestSimilarToMonotonicityInWeights confirms that for a candidate whose
// role component dominates its stats component, increasing the role weight
// (relative to stats) strictly increases its total score, against the real
// SimilarTo dispatch rather than ValidateScore's own arithmetic.
func TestSimilarToMonotonicityInWeights(t *testing.T) {
	e, _ := endToEndEngine(t)

	totalFor := func(playerID int64, w Weights) float64 {
		ranking, err := e.SimilarTo(context.Background(), 42, "2024-25", store.CohortFilters{}, []string{"goals_per90"}, w, 0, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, r := range ranking.Results {
			if r.PlayerID == playerID {
				return r.Total
			}
		}
		t.Fatalf("player %d missing from results", playerID)
		return 0
	}

	low := totalFor(7, Weights{Role: 0.2, Stats: 0.8})
	mid := totalFor(7, Weights{Role: 0.5, Stats: 0.5})
	high := totalFor(7, Weights{Role: 0.8, Stats: 0.2})

	if !(low < mid && mid < high) {
		t.Errorf("expected total to increase monotonically with role weight, got low=%v mid=%v high=%v", low, mid, high)
	}
}

func TestWeightsNormalisedSumsToOne(t *testing.T) {
	w := Weights{Role: 3, Stats: 1}.Normalised()
	if math.Abs(w.Role+w.Stats-1.0) > 1e-9 {
		t.Fatalf("expected weights to sum to 1, got %+v", w)
	}
	if math.Abs(w.Role-0.75) > 1e-9 {
		t.Errorf("expected role weight 0.75, got %v", w.Role)
	}
}

func TestWeightsNormalisedDefaultsWhenBothZero(t *testing.T) {
	w := Weights{}.Normalised()
	if w.Role != 0.6 || w.Stats != 0.4 {
		t.Errorf("expected default 0.6/0.4, got %+v", w)
	}
}

func TestCosineVectorIdentityIsOne(t *testing.T) {
	var v roleengine.Vector
	v[0] = 0.6
	v[4] = 0.8
	if got := cosineVector(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected cosine of identical vectors to be 1, got %v", got)
	}
}

func TestCosineVectorOrthogonalIsZero(t *testing.T) {
	var a, b roleengine.Vector
	a[0] = 1
	b[1] = 1
	if got := cosineVector(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("expected cosine of orthogonal vectors to be 0, got %v", got)
	}
}

func TestCosineSliceHandlesZeroNorm(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{1, 2, 3}
	if got := cosineSlice(a, b); got != 0 {
		t.Errorf("expected cosine against zero vector to be 0, got %v", got)
	}
}

func TestClamp01Bounds(t *testing.T) {
	if clamp01(-0.5) != 0 {
		t.Error("expected negative clamp to 0")
	}
	if clamp01(1.5) != 1 {
		t.Error("expected overflow clamp to 1")
	}
	if clamp01(0.42) != 0.42 {
		t.Error("expected mid-range value unchanged")
	}
}

func TestComponentClampsNegativeWhenConfigured(t *testing.T) {
	e := &Engine{clampNegative: true}
	if got := e.component(-0.3); got != 0 {
		t.Errorf("expected negative cosine clamped to 0, got %v", got)
	}
	e2 := &Engine{clampNegative: false}
	if got := e2.component(-0.3); got != -0.3 {
		t.Errorf("expected negative cosine preserved, got %v", got)
	}
}

func TestPositionCompatibleSharedGroup(t *testing.T) {
	if !positionCompatible("CB", "LB") {
		t.Error("expected two defenders to be compatible")
	}
	if !positionCompatible("WB", "DM") {
		t.Error("expected wing-back and defensive mid to share the DEF/MID overlap")
	}
	if positionCompatible("GK", "ST") {
		t.Error("expected goalkeeper and striker to be incompatible")
	}
}

func TestPositionCompatibleUnrecognisedCodeIsPermissive(t *testing.T) {
	if !positionCompatible("ZZ", "ST") {
		t.Error("expected unrecognised position code to be treated as compatible with everything")
	}
}

func TestValidateScoreAcceptsConsistentRanking(t *testing.T) {
	ranking := &Ranking{
		Reference: 42,
		Weights:   Weights{Role: 0.6, Stats: 0.4},
		Results: []Result{
			{PlayerID: 42, Total: 1.0, RoleComponent: 1.0, StatsComponent: 1.0},
			{PlayerID: 7, Total: 0.6*0.5 + 0.4*0.2, RoleComponent: 0.5, StatsComponent: 0.2},
		},
	}
	if errs := ValidateScore(ranking); len(errs) != 0 {
		t.Errorf("expected no violations, got %v", errs)
	}
}

func TestValidateScoreRejectsOutOfRangeTotal(t *testing.T) {
	ranking := &Ranking{
		Reference: 42,
		Weights:   Weights{Role: 0.6, Stats: 0.4},
		Results: []Result{
			{PlayerID: 7, Total: 1.5, RoleComponent: 1.0, StatsComponent: 1.0},
		},
	}
	if errs := ValidateScore(ranking); len(errs) == 0 {
		t.Error("expected a violation for a total outside [0,1]")
	}
}

func TestValidateScoreRejectsBadSelfSimilarity(t *testing.T) {
	ranking := &Ranking{
		Reference: 42,
		Weights:   Weights{Role: 0.6, Stats: 0.4},
		Results: []Result{
			{PlayerID: 42, Total: 0.9, RoleComponent: 0.9, StatsComponent: 0.9},
		},
	}
	if errs := ValidateScore(ranking); len(errs) == 0 {
		t.Error("expected a violation for a reference row that is not self-similar")
	}
}

func TestValidateScoreRejectsTotalInconsistentWithComponents(t *testing.T) {
	ranking := &Ranking{
		Reference: 42,
		Weights:   Weights{Role: 0.6, Stats: 0.4},
		Results: []Result{
			{PlayerID: 7, Total: 0.99, RoleComponent: 0.1, StatsComponent: 0.1},
		},
	}
	if errs := ValidateScore(ranking); len(errs) == 0 {
		t.Error("expected a violation for a total that disagrees with its weighted components")
	}
}

func TestAttributeTopNamesRespectsOrdering(t *testing.T) {
	var refRole, candRole roleengine.Vector
	refRole[0] = 1.0
	candRole[0] = 1.0
	refStats := []float64{0.1, 2.0, -1.5}
	candStats := []float64{0.1, 0.0, 1.5}
	ids := []string{"close_metric", "medium_metric", "far_metric"}

	attr := attribute(refRole, candRole, refStats, candStats, ids)
	if len(attr.ClosestMetrics) == 0 || attr.ClosestMetrics[0] != "close_metric" {
		t.Errorf("expected close_metric to be closest, got %v", attr.ClosestMetrics)
	}
	if len(attr.MostDifferentMetrics) == 0 || attr.MostDifferentMetrics[0] != "far_metric" {
		t.Errorf("expected far_metric to be most different, got %v", attr.MostDifferentMetrics)
	}
}
