// Package metricengine computes metric values and metric vectors for
// players, with per-90 normalisation and cohort-relative percentile ranking.
// Every formula it evaluates comes from the Metric Catalogue; this package
// never defines one itself.
package metricengine

import (
	"context"
	"math"
	"sort"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/coreerr"
	"github.com/scouting/core/store"
)

// Value is the result of evaluating one metric for one player-season. Valid
// is false when the metric could not be computed (insufficient minutes,
// division by zero, or a null source column) — callers must check Valid
// before trusting Amount; an invalid Value is never NaN or infinite.
type Value struct {
	MetricID string
	Amount   float64
	Unit     catalogue.Unit
	Valid    bool
}

// StandardiseClip bounds how far a z-score standardised value can sit from
// the cohort mean before being clipped.
const StandardiseClip = 3.0

// Engine computes metric values, cohorts, percentiles, and standardised
// stats vectors against the Metric Catalogue and the Store Gateway.
type Engine struct {
	cat               *catalogue.Catalogue
	repo              store.PlayerSeasonSource
	minMinutesDefault float64
	minCohortSize     int
}

// New constructs a metric engine bound to a loaded Catalogue and a
// PlayerSeasonSource (normally a *store.Repository, or a fake in tests).
func New(cat *catalogue.Catalogue, repo store.PlayerSeasonSource, minMinutesDefault int, minCohortSize int) *Engine {
	return &Engine{
		cat:               cat,
		repo:              repo,
		minMinutesDefault: float64(minMinutesDefault),
		minCohortSize:     minCohortSize,
	}
}

// Values evaluates each of metricIDs against the player's season row,
// reporting "insufficient" rather than a misleading number whenever minutes
// fall short of the metric's threshold or a source column has no value.
func (e *Engine) Values(ctx context.Context, playerID int64, season string, metricIDs []string) (map[string]Value, error) {
	row, err := e.repo.FetchPlayerSeason(ctx, playerID, season)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Value, len(metricIDs))
	for _, id := range metricIDs {
		out[id] = e.evaluate(id, row.Stat)
	}
	return out, nil
}

// evaluate computes a single metric's value against a PlayerSeasonStat row.
func (e *Engine) evaluate(metricID string, stat store.PlayerSeasonStat) Value {
	entry := e.cat.Entry(metricID)
	if entry == nil {
		return Value{MetricID: metricID, Valid: false}
	}

	threshold := e.minMinutesDefault
	if entry.MinMinutes > 0 {
		threshold = float64(entry.MinMinutes)
	}
	if entry.MinMinutes > 0 && stat.Minutes < threshold {
		return Value{MetricID: metricID, Unit: entry.Unit, Valid: false}
	}

	num, ok := stat.Column(entry.Numerator)
	if !ok {
		return Value{MetricID: metricID, Unit: entry.Unit, Valid: false}
	}

	var amount float64
	if entry.Denominator != "" {
		den, ok := stat.Column(entry.Denominator)
		if !ok || den == 0 {
			return Value{MetricID: metricID, Unit: entry.Unit, Valid: false}
		}
		amount = num / den
		if entry.Unit == catalogue.UnitPercentage {
			amount *= 100
		}
	} else if entry.PerNinety {
		if stat.Minutes <= 0 {
			return Value{MetricID: metricID, Unit: entry.Unit, Valid: false}
		}
		amount = per90(num, stat.Minutes)
	} else {
		amount = num
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Value{MetricID: metricID, Unit: entry.Unit, Valid: false}
	}
	return Value{MetricID: metricID, Amount: amount, Unit: entry.Unit, Valid: true}
}

// per90 normalises a counting statistic to a per-90-minutes rate. Callers
// must have already checked minutes against the relevant threshold;
// per90 itself only guards against a literal zero denominator.
func per90(count, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return count / (minutes / 90.0)
}

// Cohort applies league, season, position, age, and minimum-minutes filters
// against the store and returns the matching player-seasons, ordered by
// player id for deterministic downstream processing.
func (e *Engine) Cohort(ctx context.Context, season string, filters store.CohortFilters) ([]store.PlayerSeasonRow, error) {
	return e.repo.FetchCohort(ctx, season, filters)
}

// Percentiles computes the percentile rank (0-100) of every cohort member
// for one metric, among the cohort itself. Ties are broken by averaging
// ranks, per the pinned resolution of the source's inconsistent tie-breaking.
// Players whose value is invalid for this metric are omitted from the
// result, not assigned a default percentile. Requires the cohort (after
// excluding invalid values) to meet minCohortSize, else CohortTooSmallError.
func (e *Engine) Percentiles(metricID string, cohort []store.PlayerSeasonRow) (map[int64]float64, int, error) {
	entry := e.cat.Entry(metricID)
	if entry == nil {
		return nil, 0, coreerr.NewUnknownMetricError(metricID)
	}

	type scored struct {
		playerID int64
		value    float64
	}
	var values []scored
	for _, row := range cohort {
		v := e.evaluate(metricID, row.Stat)
		if v.Valid {
			values = append(values, scored{playerID: row.Player.ID, value: v.Amount})
		}
	}

	if len(values) < e.minCohortSize {
		return nil, len(values), coreerr.NewCohortTooSmallError(len(values), e.minCohortSize)
	}

	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	higherIsBetter := entry.Direction == catalogue.HigherIsBetter
	n := len(values)
	percentiles := make(map[int64]float64, n)

	i := 0
	for i < n {
		j := i
		for j+1 < n && values[j+1].value == values[i].value {
			j++
		}
		// Average rank across the tied block [i, j], 0-indexed ranks.
		avgRank := float64(i+j) / 2.0
		pct := avgRank / float64(n-1) * 100.0
		if n == 1 {
			pct = 50.0
		}
		if !higherIsBetter {
			pct = 100.0 - pct
		}
		for k := i; k <= j; k++ {
			percentiles[values[k].playerID] = pct
		}
		i = j + 1
	}

	return percentiles, n, nil
}

// StatsVector standardises each of metricIDs to zero-mean, unit-variance
// within cohort (z-score), clips to +/-StandardiseClip, and returns the
// result in the order of metricIDs. The cohort passed here must be identical
// to the one used for any peer the vector will later be compared against —
// the Similarity Engine enforces this by threading one cohort through both
// the reference and every candidate.
func (e *Engine) StatsVector(playerID int64, metricIDs []string, cohort []store.PlayerSeasonRow) ([]float64, error) {
	if len(cohort) < e.minCohortSize {
		return nil, coreerr.NewCohortTooSmallError(len(cohort), e.minCohortSize)
	}

	out := make([]float64, len(metricIDs))
	for i, id := range metricIDs {
		values := make([]float64, 0, len(cohort))
		var target float64
		found := false
		for _, row := range cohort {
			v := e.evaluate(id, row.Stat)
			if !v.Valid {
				continue
			}
			values = append(values, v.Amount)
			if row.Player.ID == playerID {
				target = v.Amount
				found = true
			}
		}
		if !found || len(values) == 0 {
			out[i] = 0
			continue
		}
		mean, stddev := meanStdDev(values)
		// Summation rounding can leave a tiny non-zero stddev for a cohort
		// whose values are all identical, so treat a negligible spread as zero.
		if stddev <= 1e-12*math.Max(1, math.Abs(mean)) {
			out[i] = 0
			continue
		}
		z := (target - mean) / stddev
		out[i] = clip(z, -StandardiseClip, StandardiseClip)
	}
	return out, nil
}

func meanStdDev(values []float64) (mean, stddev float64) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / n)
	return mean, stddev
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
