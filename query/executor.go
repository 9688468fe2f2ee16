package query

import (
	"context"
	"sort"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/coreerr"
	"github.com/scouting/core/metricengine"
	"github.com/scouting/core/similarity"
	"github.com/scouting/core/store"
)

// Executor accepts a validated StructuredQuery and dispatches it to the
// engine that actually computes it.
type Executor struct {
	cat    *catalogue.Catalogue
	metric *metricengine.Engine
	sim    *similarity.Engine
	repo   store.PlayerSeasonSource
}

// NewExecutor constructs a Query Executor over the three engines and a
// PlayerSeasonSource used only to resolve a reference player's position when
// a query names neither metric_ids nor preset_id. repo may be nil, in which
// case that fallback is simply unavailable and such queries fail with
// ParseError, same as before this fallback existed.
func NewExecutor(cat *catalogue.Catalogue, metric *metricengine.Engine, sim *similarity.Engine, repo store.PlayerSeasonSource) *Executor {
	return &Executor{cat: cat, metric: metric, sim: sim, repo: repo}
}

// Execute dispatches q to the correct engine and returns a typed Result.
func (x *Executor) Execute(ctx context.Context, q StructuredQuery) (*Result, error) {
	switch q.Kind {
	case KindSimilarity:
		return x.executeSimilarity(ctx, q)
	case KindLeaderboard:
		return x.executeLeaderboard(ctx, q)
	case KindComparison:
		return x.executeComparison(ctx, q)
	case KindFilter:
		return x.executeFilter(ctx, q)
	default:
		return nil, coreerr.NewParseError([]string{"unknown query kind"})
	}
}

// resolveMetricIDs implements the metric-set resolution cascade documented
// on StructuredQuery.MetricIDs/PresetID: explicit metric_ids, then an
// explicit preset_id, then (if neither was given and a reference player and
// season are both known) the preset matching that player's own position.
func (x *Executor) resolveMetricIDs(ctx context.Context, q StructuredQuery) ([]string, error) {
	if len(q.MetricIDs) > 0 {
		return q.MetricIDs, nil
	}
	if q.PresetID != "" {
		ids, _, ok := x.cat.ResolveMetricSet(q.PresetID, nil)
		if !ok {
			return nil, coreerr.NewUnknownMetricError(q.PresetID)
		}
		return ids, nil
	}
	if x.repo != nil && q.Reference != 0 && q.Season != "" {
		row, err := x.repo.FetchPlayerSeason(ctx, q.Reference, q.Season)
		if err == nil {
			if preset := x.cat.PresetForPosition(row.Player.PrimaryPosition); preset != nil {
				if ids, _, ok := x.cat.ResolveMetricSet(preset.ID, nil); ok {
					return ids, nil
				}
			}
		}
	}
	return nil, coreerr.NewParseError([]string{"no metric_ids or preset_id supplied"})
}

func (x *Executor) executeSimilarity(ctx context.Context, q StructuredQuery) (*Result, error) {
	metricIDs, err := x.resolveMetricIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	ranking, err := x.sim.SimilarTo(ctx, q.Reference, q.Season, q.CohortFilters, metricIDs,
		similarity.Weights{Role: q.Weights.Role, Stats: q.Weights.Stats}, q.Limit, true)
	if err != nil {
		return nil, err
	}

	rows := make([]SimilarityRow, 0, len(ranking.Results))
	for _, r := range ranking.Results {
		rows = append(rows, SimilarityRow{
			PlayerID:       r.PlayerID,
			Total:          r.Total,
			RoleComponent:  r.RoleComponent,
			StatsComponent: r.StatsComponent,
			ClosestMetrics: r.Attribution.ClosestMetrics,
			MostDifferent:  r.Attribution.MostDifferentMetrics,
		})
	}

	return &Result{
		Executed:   q,
		CohortSize: ranking.CohortSize,
		Similarity: &SimilarityResult{Rows: rows},
	}, nil
}

func (x *Executor) executeLeaderboard(ctx context.Context, q StructuredQuery) (*Result, error) {
	if q.MetricID == "" {
		return nil, coreerr.NewParseError([]string{"leaderboard query requires metric_id"})
	}
	entry := x.cat.Entry(q.MetricID)
	if entry == nil {
		return nil, coreerr.NewUnknownMetricError(q.MetricID)
	}

	cohort, err := x.metric.Cohort(ctx, q.Season, q.CohortFilters)
	if err != nil {
		return nil, err
	}

	percentiles, _, err := x.metric.Percentiles(q.MetricID, cohort)
	if err != nil {
		return nil, err
	}

	someInsufficient := false
	rows := make([]LeaderboardRow, 0, len(cohort))
	for _, row := range cohort {
		values, err := x.metric.Values(ctx, row.Player.ID, q.Season, []string{q.MetricID})
		if err != nil {
			continue
		}
		v := values[q.MetricID]
		if !v.Valid {
			someInsufficient = true
			rows = append(rows, LeaderboardRow{PlayerID: row.Player.ID, Valid: false})
			continue
		}
		rows = append(rows, LeaderboardRow{
			PlayerID:   row.Player.ID,
			Value:      v.Amount,
			Valid:      true,
			Percentile: percentiles[row.Player.ID],
		})
	}

	higherIsBetter := entry.Direction == catalogue.HigherIsBetter
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Valid != rows[j].Valid {
			return rows[i].Valid
		}
		if !rows[i].Valid {
			return false
		}
		if higherIsBetter {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Value < rows[j].Value
	})

	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}

	return &Result{
		Executed:                q,
		CohortSize:              len(cohort),
		Leaderboard:             &LeaderboardResult{MetricID: q.MetricID, Rows: rows},
		SomeInsufficientMinutes: someInsufficient,
	}, nil
}

func (x *Executor) executeComparison(ctx context.Context, q StructuredQuery) (*Result, error) {
	metricIDs, err := x.resolveMetricIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(q.ComparisonPlayers) == 0 {
		return nil, coreerr.NewParseError([]string{"comparison query requires comparison_players"})
	}

	players := make([]ComparisonRow, 0, len(q.ComparisonPlayers))
	for _, playerID := range q.ComparisonPlayers {
		values, err := x.metric.Values(ctx, playerID, q.Season, metricIDs)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(metricIDs))
		valid := make([]bool, len(metricIDs))
		for i, id := range metricIDs {
			v := values[id]
			vals[i] = v.Amount
			valid[i] = v.Valid
		}
		players = append(players, ComparisonRow{PlayerID: playerID, Values: vals, Valid: valid})
	}

	return &Result{
		Executed:   q,
		Comparison: &ComparisonResult{MetricIDs: metricIDs, Players: players},
	}, nil
}

func (x *Executor) executeFilter(ctx context.Context, q StructuredQuery) (*Result, error) {
	cohort, err := x.metric.Cohort(ctx, q.Season, q.CohortFilters)
	if err != nil {
		return nil, err
	}

	rows := make([]FilterRow, 0, len(cohort))
	for _, row := range cohort {
		fr := FilterRow{PlayerID: row.Player.ID, Position: row.Player.PrimaryPosition}
		if q.MetricID != "" {
			values, err := x.metric.Values(ctx, row.Player.ID, q.Season, []string{q.MetricID})
			if err == nil {
				v := values[q.MetricID]
				fr.Value = v.Amount
				fr.Valid = v.Valid
			}
		}
		rows = append(rows, fr)
	}

	if q.MetricID != "" {
		entry := x.cat.Entry(q.MetricID)
		higherIsBetter := entry == nil || entry.Direction == catalogue.HigherIsBetter
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Valid != rows[j].Valid {
				return rows[i].Valid
			}
			if !rows[i].Valid {
				return false
			}
			if higherIsBetter {
				return rows[i].Value > rows[j].Value
			}
			return rows[i].Value < rows[j].Value
		})
	}

	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}

	return &Result{
		Executed:   q,
		CohortSize: len(cohort),
		Filter:     &FilterResult{Rows: rows},
	}, nil
}
