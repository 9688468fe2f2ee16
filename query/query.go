// Package query defines the StructuredQuery contract that sits between the
// Query Parser (or any direct caller) and the Query Executor.
package query

import "github.com/scouting/core/store"

// Kind enumerates the four query shapes the Executor understands.
type Kind string

const (
	KindSimilarity  Kind = "similarity"
	KindLeaderboard Kind = "leaderboard"
	KindComparison  Kind = "comparison"
	KindFilter      Kind = "filter"
)

// Weights carries the role/stats mixing weights for a similarity query.
// Zero values mean "use the engine's defaults".
type Weights struct {
	Role  float64 `json:"role"`
	Stats float64 `json:"stats"`
}

// StructuredQuery is the validated specification of what a caller wants,
// produced either by the Query Parser or supplied directly. Every field a
// given Kind does not use is left at its zero value.
type StructuredQuery struct {
	Kind Kind `json:"kind"`

	// Reference and Season identify the anchor player for a similarity
	// query. A comparison query compares ComparisonPlayers only; Reference
	// is not added to that set.
	Reference int64  `json:"reference,omitempty"`
	Season    string `json:"season"`

	// ComparisonPlayers lists every player id for a comparison query.
	ComparisonPlayers []int64 `json:"comparison_players,omitempty"`

	CohortFilters store.CohortFilters `json:"cohort_filters"`

	// MetricIDs and PresetID are mutually exclusive ways of naming a metric
	// set; if both are empty the Executor falls back to the reference
	// player's position preset, when one exists.
	MetricIDs []string `json:"metric_ids,omitempty"`
	PresetID  string   `json:"preset_id,omitempty"`

	// MetricID names the single metric a leaderboard query ranks by.
	MetricID string `json:"metric_id,omitempty"`

	Weights Weights `json:"weights"`
	Limit   int     `json:"limit"`
}

// Result is a typed record returned by the Executor. Exactly one of the
// per-kind fields is populated, matching Executed.Kind.
type Result struct {
	Executed StructuredQuery `json:"executed"`

	CohortSize int `json:"cohort_size"`

	Similarity  *SimilarityResult  `json:"similarity,omitempty"`
	Leaderboard *LeaderboardResult `json:"leaderboard,omitempty"`
	Comparison  *ComparisonResult  `json:"comparison,omitempty"`
	Filter      *FilterResult      `json:"filter,omitempty"`

	Degraded              bool     `json:"degraded,omitempty"`
	SomeInsufficientMinutes bool   `json:"some_insufficient_minutes,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
}

// SimilarityResult carries the similarity engine's ranked candidates in
// executor-facing form; see similarity.Ranking for the richer engine type
// this is built from.
type SimilarityResult struct {
	Rows []SimilarityRow `json:"rows"`
}

type SimilarityRow struct {
	PlayerID       int64    `json:"player_id"`
	Total          float64  `json:"total"`
	RoleComponent  float64  `json:"role_component"`
	StatsComponent float64  `json:"stats_component"`
	ClosestMetrics []string `json:"closest_metrics"`
	MostDifferent  []string `json:"most_different_metrics"`
}

// LeaderboardResult carries a cohort ranked by a single metric.
type LeaderboardResult struct {
	MetricID string            `json:"metric_id"`
	Rows     []LeaderboardRow  `json:"rows"`
}

type LeaderboardRow struct {
	PlayerID   int64   `json:"player_id"`
	Value      float64 `json:"value"`
	Valid      bool    `json:"valid"`
	Percentile float64 `json:"percentile,omitempty"`
}

// ComparisonResult carries aligned metric vectors for every requested player.
type ComparisonResult struct {
	MetricIDs []string          `json:"metric_ids"`
	Players   []ComparisonRow   `json:"players"`
}

type ComparisonRow struct {
	PlayerID int64     `json:"player_id"`
	Values   []float64 `json:"values"`
	Valid    []bool    `json:"valid"`
}

// FilterResult carries a filtered, optionally sorted cohort.
type FilterResult struct {
	Rows []FilterRow `json:"rows"`
}

type FilterRow struct {
	PlayerID int64   `json:"player_id"`
	Position string  `json:"position"`
	Value    float64 `json:"value,omitempty"`
	Valid    bool    `json:"valid,omitempty"`
}
