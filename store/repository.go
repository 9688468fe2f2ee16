package store

import (
	"context"
	"fmt"

	"github.com/scouting/core/coreerr"
)

// CohortFilters narrows the set of PlayerSeasonStat rows a query operates
// over. Every field is optional; zero-value fields are not applied. This is
// the Store-level counterpart of StructuredQuery.CohortFilters.
type CohortFilters struct {
	LeagueIDs  []int64
	// SeasonID is not read by FetchCohort, which selects the season by the
	// label passed alongside the filters.
	SeasonID   int64
	Positions  []string
	MinAge     int
	MaxAge     int
	MinMinutes float64
}

// PlayerSeasonRow pairs a PlayerSeasonStat with the Player row it describes,
// the shape most engines actually want.
type PlayerSeasonRow struct {
	Player Player
	Stat   PlayerSeasonStat
}

// PlayerSeasonSource is the narrow slice of Repository that the Metric
// Engine, Similarity Engine, and Query Executor actually depend on: looking
// up one player-season row and fetching a filtered cohort. Extracting it as
// an interface lets those packages be driven by an in-memory fake in tests
// without a live database; *Repository satisfies it without any changes.
type PlayerSeasonSource interface {
	FetchPlayerSeason(ctx context.Context, playerID int64, seasonLabel string) (*PlayerSeasonRow, error)
	FetchCohort(ctx context.Context, seasonLabel string, filters CohortFilters) ([]PlayerSeasonRow, error)
}

// Repository provides typed, read-only access to the Player/Team/League/
// Season/PlayerSeasonStat tables via gorm's query builder. Every method here
// issues only SELECT statements with parameters bound by gorm automatically;
// it never interpolates caller-provided strings into SQL text.
type Repository struct {
	gw *Gateway
}

// NewRepository wraps a Gateway with the core's typed query helpers.
func NewRepository(gw *Gateway) *Repository {
	return &Repository{gw: gw}
}

// FetchPlayerSeason returns the single PlayerSeasonStat row for a player in a
// season, joined with the Player row. Returns coreerr.NoSeasonDataError if no
// row exists.
func (r *Repository) FetchPlayerSeason(ctx context.Context, playerID int64, seasonLabel string) (*PlayerSeasonRow, error) {
	var player Player
	if err := r.gw.DB().WithContext(ctx).First(&player, "id = ?", playerID).Error; err != nil {
		return nil, coreerr.NewNoSeasonDataError(playerID, seasonLabel)
	}

	var season Season
	if err := r.gw.DB().WithContext(ctx).First(&season, "label = ?", seasonLabel).Error; err != nil {
		return nil, coreerr.NewNoSeasonDataError(playerID, seasonLabel)
	}

	var stat PlayerSeasonStat
	err := r.gw.DB().WithContext(ctx).
		Where("player_id = ? AND season_id = ?", playerID, season.ID).
		First(&stat).Error
	if err != nil {
		return nil, coreerr.NewNoSeasonDataError(playerID, seasonLabel)
	}

	return &PlayerSeasonRow{Player: player, Stat: stat}, nil
}

// FetchCohort applies league, season, position, age, and minimum-minutes
// filters and returns every matching (Player, PlayerSeasonStat) pair. The
// returned slice is ordered by player id for deterministic downstream
// processing (percentiles, standardisation, tie-breaking).
func (r *Repository) FetchCohort(ctx context.Context, seasonLabel string, filters CohortFilters) ([]PlayerSeasonRow, error) {
	var season Season
	if err := r.gw.DB().WithContext(ctx).First(&season, "label = ?", seasonLabel).Error; err != nil {
		return nil, fmt.Errorf("FetchCohort: unknown season %q: %w", seasonLabel, err)
	}

	q := r.gw.DB().WithContext(ctx).
		Table("player_season_stats AS pss").
		Select("pss.*, p.*").
		Joins("JOIN players p ON p.id = pss.player_id").
		Where("pss.season_id = ?", season.ID)

	if len(filters.LeagueIDs) > 0 {
		q = q.Where("pss.league_id IN ?", filters.LeagueIDs)
	}
	if len(filters.Positions) > 0 {
		q = q.Where("p.primary_position IN ?", filters.Positions)
	}
	if filters.MinMinutes > 0 {
		q = q.Where("pss.minutes >= ?", filters.MinMinutes)
	}

	type joined struct {
		PlayerSeasonStat
		Player
	}
	var rows []joined
	if err := q.Order("pss.player_id ASC").Scan(&rows).Error; err != nil {
		return nil, coreerr.NewStoreUnavailableError("FetchCohort", err)
	}

	out := make([]PlayerSeasonRow, 0, len(rows))
	for _, row := range rows {
		if filters.MinAge > 0 || filters.MaxAge > 0 {
			age, ok := ageFromDOB(row.Player.DateOfBirth, seasonLabel)
			if ok {
				if filters.MinAge > 0 && age < filters.MinAge {
					continue
				}
				if filters.MaxAge > 0 && age > filters.MaxAge {
					continue
				}
			}
		}
		out = append(out, PlayerSeasonRow{Player: row.Player, Stat: row.PlayerSeasonStat})
	}
	return out, nil
}

// FetchSchema delegates to the Gateway; exposed here so the Catalogue only
// needs to depend on Repository.
func (r *Repository) FetchSchema(ctx context.Context) (*SchemaDescriptor, error) {
	return r.gw.Schema(ctx)
}

// FetchLeagues returns every declared league, ordered by name for
// deterministic downstream use (the Query Parser's constrained vocabulary in
// particular must list leagues in a stable order across processes).
func (r *Repository) FetchLeagues(ctx context.Context) ([]League, error) {
	var leagues []League
	if err := r.gw.DB().WithContext(ctx).Order("name ASC").Find(&leagues).Error; err != nil {
		return nil, coreerr.NewStoreUnavailableError("FetchLeagues", err)
	}
	return leagues, nil
}

// ageFromDOB computes a player's age during a season from their date of
// birth ("YYYY-MM-DD") and the season label's starting year ("2024-25" -> 2024).
func ageFromDOB(dob, seasonLabel string) (int, bool) {
	if len(dob) < 4 || len(seasonLabel) < 4 {
		return 0, false
	}
	var birthYear, seasonYear int
	if _, err := fmt.Sscanf(dob[:4], "%d", &birthYear); err != nil {
		return 0, false
	}
	if _, err := fmt.Sscanf(seasonLabel[:4], "%d", &seasonYear); err != nil {
		return 0, false
	}
	return seasonYear - birthYear, true
}
