// Package similarity ranks candidate players against a reference player by a
// dual-component score combining playing-role resemblance and standardised
// statistical-output resemblance.
package similarity

import (
	"context"
	"math"
	"sort"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/coreerr"
	"github.com/scouting/core/metricengine"
	"github.com/scouting/core/roleengine"
	"github.com/scouting/core/store"
)

// Weights holds the role/stats mixing weights for a similarity query. Both
// must be non-negative and sum to a positive number; Normalised returns the
// pair rescaled to sum to 1.
type Weights struct {
	Role  float64
	Stats float64
}

// Normalised rescales w so Role+Stats == 1, defaulting to (0.6, 0.4) when
// both are zero.
func (w Weights) Normalised() Weights {
	sum := w.Role + w.Stats
	if sum <= 0 {
		return Weights{Role: 0.6, Stats: 0.4}
	}
	return Weights{Role: w.Role / sum, Stats: w.Stats / sum}
}

// Attribution names the metrics and role blocks driving a candidate's score
// closest to, and furthest from, the reference.
type Attribution struct {
	ClosestMetrics          []string
	MostDifferentMetrics    []string
	ClosestRoleBlocks       []string
	MostDifferentRoleBlocks []string
}

// Result is one ranked candidate.
type Result struct {
	PlayerID       int64
	Total          float64
	RoleComponent  float64
	StatsComponent float64
	Attribution    Attribution
}

// Ranking is the outcome of a similar_to query.
type Ranking struct {
	Reference  int64
	Season     string
	CohortSize int
	MetricIDs  []string
	Weights    Weights
	Results    []Result
}

// Engine composes the Role Engine and Metric Engine into similarity rankings.
type Engine struct {
	cat           *catalogue.Catalogue
	repo          store.PlayerSeasonSource
	roles         *roleengine.Engine
	metrics       *metricengine.Engine
	clampNegative bool
}

// New constructs a similarity engine over a PlayerSeasonSource (normally a
// *store.Repository, or a fake in tests). clampNegative controls whether a
// negative cosine component is floored to 0 before mixing (the default, and
// the only mode spec-guaranteed to preserve monotonicity in weights).
func New(cat *catalogue.Catalogue, repo store.PlayerSeasonSource, roles *roleengine.Engine, metrics *metricengine.Engine, clampNegative bool) *Engine {
	return &Engine{cat: cat, repo: repo, roles: roles, metrics: metrics, clampNegative: clampNegative}
}

// positionCompatible reports whether a candidate's primary position belongs
// to the same soft position family as the reference's, using the same
// position-group weighting the Role Engine uses for vector assembly. A
// reference or candidate with no recognised position is treated as
// compatible with everything, since the Catalogue (not this gate) is the
// authority on position scoping for individual metrics.
func positionCompatible(reference, candidate string) bool {
	refGroups := roleengine.DominantGroups(reference)
	candGroups := roleengine.DominantGroups(candidate)
	if len(refGroups) == 0 || len(candGroups) == 0 {
		return true
	}
	for g := range refGroups {
		if candGroups[g] {
			return true
		}
	}
	return false
}

// SimilarTo computes the ranked similarity list for a reference player
// against a cohort built from filters, over the given metric set.
func (e *Engine) SimilarTo(ctx context.Context, referenceID int64, season string, filters store.CohortFilters, metricIDs []string, weights Weights, limit int, gatePositions bool) (*Ranking, error) {
	referenceRow, err := e.repo.FetchPlayerSeason(ctx, referenceID, season)
	if err != nil {
		return nil, err
	}

	cohort, err := e.metrics.Cohort(ctx, season, filters)
	if err != nil {
		return nil, err
	}
	cohort = ensureReferenceIncluded(cohort, *referenceRow)

	if len(cohort) < 2 {
		return nil, coreerr.NewCohortTooSmallError(len(cohort), 2)
	}

	refVector, refDiag := e.roles.RoleVectorFor(*referenceRow)
	if !refDiag.Sufficient {
		return nil, coreerr.NewReferenceRoleInsufficientError(referenceID, season)
	}

	refStats, err := e.metrics.StatsVector(referenceID, metricIDs, cohort)
	if err != nil {
		return nil, err
	}

	w := weights.Normalised()

	var results []Result
	for _, candidateRow := range cohort {
		if gatePositions && candidateRow.Player.ID != referenceID &&
			!positionCompatible(referenceRow.Player.PrimaryPosition, candidateRow.Player.PrimaryPosition) {
			continue
		}

		candVector, candDiag := e.roles.RoleVectorFor(candidateRow)
		if !candDiag.Sufficient {
			continue
		}
		candStats, err := e.metrics.StatsVector(candidateRow.Player.ID, metricIDs, cohort)
		if err != nil {
			continue
		}

		roleComp := e.component(cosineVector(refVector, candVector))
		statsComp := e.component(cosineSlice(refStats, candStats))
		total := clamp01(w.Role*roleComp + w.Stats*statsComp)

		results = append(results, Result{
			PlayerID:       candidateRow.Player.ID,
			Total:          total,
			RoleComponent:  roleComp,
			StatsComponent: statsComp,
			Attribution:    attribute(refVector, candVector, refStats, candStats, metricIDs),
		})
	}

	if len(results) == 0 {
		return nil, coreerr.NewNoCandidatesError("no cohort member had a sufficient role vector")
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Total != results[j].Total {
			return results[i].Total > results[j].Total
		}
		return results[i].PlayerID < results[j].PlayerID
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	return &Ranking{
		Reference:  referenceID,
		Season:     season,
		CohortSize: len(cohort),
		MetricIDs:  metricIDs,
		Weights:    w,
		Results:    results,
	}, nil
}

func (e *Engine) component(cos float64) float64 {
	if e.clampNegative && cos < 0 {
		return 0
	}
	return cos
}

func ensureReferenceIncluded(cohort []store.PlayerSeasonRow, reference store.PlayerSeasonRow) []store.PlayerSeasonRow {
	for _, r := range cohort {
		if r.Player.ID == reference.Player.ID {
			return cohort
		}
	}
	return append(cohort, reference)
}

func cosineVector(a, b roleengine.Vector) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cosineSlice(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// scored pairs a name (metric id or role block) with a magnitude, used to
// rank attribution candidates.
type scored struct {
	name  string
	delta float64
}

// attribute picks the top three stats dimensions where candidate tracks
// closest to reference and the top three where it differs most, plus the
// role blocks doing the same, by per-dimension and per-block distance.
func attribute(refRole, candRole roleengine.Vector, refStats, candStats []float64, metricIDs []string) Attribution {
	var statDeltas []scored
	for i, id := range metricIDs {
		if i >= len(refStats) || i >= len(candStats) {
			break
		}
		statDeltas = append(statDeltas, scored{name: id, delta: math.Abs(refStats[i] - candStats[i])})
	}
	sort.Slice(statDeltas, func(i, j int) bool { return statDeltas[i].delta < statDeltas[j].delta })

	blockNames := []string{"position", "spread", "zone_presence", "pass_direction"}
	blockRanges := [4][2]int{{0, 4}, {4, 8}, {8, 16}, {16, 20}}
	roleDeltas := make([]scored, 0, len(blockRanges))
	for bi, rng := range blockRanges {
		var sumSq float64
		for i := rng[0]; i < rng[1]; i++ {
			d := refRole[i] - candRole[i]
			sumSq += d * d
		}
		roleDeltas = append(roleDeltas, scored{name: blockNames[bi], delta: math.Sqrt(sumSq)})
	}
	sort.Slice(roleDeltas, func(i, j int) bool { return roleDeltas[i].delta < roleDeltas[j].delta })

	return Attribution{
		ClosestMetrics:          topNames(statDeltas, 3, false),
		MostDifferentMetrics:    topNames(statDeltas, 3, true),
		ClosestRoleBlocks:       topNames(roleDeltas, 3, false),
		MostDifferentRoleBlocks: topNames(roleDeltas, 3, true),
	}
}

// ValidateScore checks a Ranking against the similarity invariants: every
// result's total is within [0,1], every total agrees with its weighted
// role/stats components to within 1e-9, and the reference player's own row
// (self-similarity) scores 1.0 to within 1e-9. It returns every violation found
// rather than stopping at the first, mirroring catalogue.ValidateQuery.
func ValidateScore(ranking *Ranking) []error {
	var errs []error
	const tolerance = 1e-9

	for _, r := range ranking.Results {
		if r.Total < 0 || r.Total > 1 {
			errs = append(errs, coreerr.NewInvalidWeightError("total", r.Total))
			continue
		}

		expected := clamp01(ranking.Weights.Role*r.RoleComponent + ranking.Weights.Stats*r.StatsComponent)
		if math.Abs(r.Total-expected) > tolerance {
			errs = append(errs, coreerr.NewInvalidWeightError("total", r.Total))
		}

		if r.PlayerID == ranking.Reference && math.Abs(r.Total-1.0) > tolerance {
			errs = append(errs, coreerr.NewInvalidWeightError("self_similarity", r.Total))
		}
	}

	return errs
}

func topNames(items []scored, n int, fromEnd bool) []string {
	if len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	if fromEnd {
		for i := len(items) - 1; i >= len(items)-n; i-- {
			out = append(out, items[i].name)
		}
	} else {
		for i := 0; i < n; i++ {
			out = append(out, items[i].name)
		}
	}
	return out
}
