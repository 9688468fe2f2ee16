// Package coreerr defines the typed error kinds surfaced by the scouting
// analytics core. Each kind is a small struct implementing error, following
// the same shape across input errors, data-sufficiency conditions, transient
// errors, and fatal/integrity errors.
package coreerr

import "fmt"

// ForbiddenStatementError is raised when the Store Gateway is asked to run a
// statement that is not a pure projection.
type ForbiddenStatementError struct {
	Statement string
	Reason    string
}

func (e *ForbiddenStatementError) Error() string {
	return fmt.Sprintf("forbidden statement (%s): %s", e.Reason, e.Statement)
}

func NewForbiddenStatementError(statement, reason string) error {
	return &ForbiddenStatementError{Statement: statement, Reason: reason}
}

// StoreUnavailableError is raised when the connection pool cannot satisfy a
// fetch within the configured timeout. Transient; callers may retry.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func NewStoreUnavailableError(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

// SchemaMismatchError is raised at startup when the store's schema does not
// satisfy what the Catalogue or Store Gateway expects. Fatal.
type SchemaMismatchError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema mismatch: %s.%s: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema mismatch: %s: %s", e.Table, e.Reason)
}

func NewSchemaMismatchError(table, column, reason string) error {
	return &SchemaMismatchError{Table: table, Column: column, Reason: reason}
}

// CatalogueInvalidError is raised at startup when the Catalogue file fails
// its self-check. Fatal.
type CatalogueInvalidError struct {
	Reasons []string
}

func (e *CatalogueInvalidError) Error() string {
	return fmt.Sprintf("catalogue invalid: %v", e.Reasons)
}

func NewCatalogueInvalidError(reasons []string) error {
	return &CatalogueInvalidError{Reasons: reasons}
}

// UnknownMetricError is raised when a caller names a metric id or alias the
// Catalogue does not recognise.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric: %q", e.Name)
}

func NewUnknownMetricError(name string) error {
	return &UnknownMetricError{Name: name}
}

// IncompatibleMetricForPositionError is raised when a metric's declared
// position scopes exclude the position in question.
type IncompatibleMetricForPositionError struct {
	MetricID string
	Position string
}

func (e *IncompatibleMetricForPositionError) Error() string {
	return fmt.Sprintf("metric %q is not valid for position %q", e.MetricID, e.Position)
}

func NewIncompatibleMetricForPositionError(metricID, position string) error {
	return &IncompatibleMetricForPositionError{MetricID: metricID, Position: position}
}

// InvalidWeightError is raised when a similarity or preset weight is
// negative, non-finite, or otherwise out of range.
type InvalidWeightError struct {
	Name  string
	Value float64
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("invalid weight %q: %v", e.Name, e.Value)
}

func NewInvalidWeightError(name string, value float64) error {
	return &InvalidWeightError{Name: name, Value: value}
}

// InvalidLimitError is raised when a query's limit falls outside [1, 500].
type InvalidLimitError struct {
	Limit int
}

func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("invalid limit: %d (must be in [1, 500])", e.Limit)
}

func NewInvalidLimitError(limit int) error {
	return &InvalidLimitError{Limit: limit}
}

// ParseError is raised when the Query Parser refuses to produce a
// StructuredQuery in strict mode.
type ParseError struct {
	Reasons []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Reasons)
}

func NewParseError(reasons []string) error {
	return &ParseError{Reasons: reasons}
}

// LLMUnavailableError is raised when the language-model endpoint cannot be
// reached or times out. Transient.
type LLMUnavailableError struct {
	Err error
}

func (e *LLMUnavailableError) Error() string {
	return fmt.Sprintf("llm unavailable: %v", e.Err)
}

func (e *LLMUnavailableError) Unwrap() error { return e.Err }

func NewLLMUnavailableError(err error) error {
	return &LLMUnavailableError{Err: err}
}

// TimeoutError is raised when a Store fetch, LLM call, or overall request
// exceeds its configured timeout.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s", e.Op)
}

func NewTimeoutError(op string) error {
	return &TimeoutError{Op: op}
}

// InsufficientMinutesError reports that a per-90 metric could not be computed
// because minutes played fell below the configured threshold. It is a
// data-sufficiency condition, not a failure, and is usually carried as a
// value alongside partial results rather than returned directly.
type InsufficientMinutesError struct {
	PlayerID  int64
	Minutes   float64
	Threshold float64
}

func (e *InsufficientMinutesError) Error() string {
	return fmt.Sprintf("insufficient minutes for player %d: %.1f < %.1f", e.PlayerID, e.Minutes, e.Threshold)
}

func NewInsufficientMinutesError(playerID int64, minutes, threshold float64) error {
	return &InsufficientMinutesError{PlayerID: playerID, Minutes: minutes, Threshold: threshold}
}

// InsufficientPositionalDataError reports that a player's season has too few
// positional events to produce a non-zero role vector.
type InsufficientPositionalDataError struct {
	PlayerID int64
	Season   string
	Events   int
	Required int
}

func (e *InsufficientPositionalDataError) Error() string {
	return fmt.Sprintf("insufficient positional data for player %d season %s: %d < %d events",
		e.PlayerID, e.Season, e.Events, e.Required)
}

func NewInsufficientPositionalDataError(playerID int64, season string, events, required int) error {
	return &InsufficientPositionalDataError{PlayerID: playerID, Season: season, Events: events, Required: required}
}

// CohortTooSmallError reports that a cohort did not meet the minimum size
// required for percentile ranking, standardisation, or similarity ranking.
type CohortTooSmallError struct {
	Size     int
	Required int
}

func (e *CohortTooSmallError) Error() string {
	return fmt.Sprintf("cohort too small: %d < %d", e.Size, e.Required)
}

func NewCohortTooSmallError(size, required int) error {
	return &CohortTooSmallError{Size: size, Required: required}
}

// NoCandidatesError reports that a similarity or leaderboard query's cohort,
// after filters, contained no eligible candidates.
type NoCandidatesError struct {
	Reason string
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no candidates: %s", e.Reason)
}

func NewNoCandidatesError(reason string) error {
	return &NoCandidatesError{Reason: reason}
}

// ReferenceRoleInsufficientError reports that the reference player's role
// vector is the canonical zero vector and cannot anchor a similarity query.
type ReferenceRoleInsufficientError struct {
	PlayerID int64
	Season   string
}

func (e *ReferenceRoleInsufficientError) Error() string {
	return fmt.Sprintf("reference role insufficient: player %d season %s", e.PlayerID, e.Season)
}

func NewReferenceRoleInsufficientError(playerID int64, season string) error {
	return &ReferenceRoleInsufficientError{PlayerID: playerID, Season: season}
}

// NoSeasonDataError reports that the store has no PlayerSeason row at all for
// the requested (player, season) pair.
type NoSeasonDataError struct {
	PlayerID int64
	Season   string
}

func (e *NoSeasonDataError) Error() string {
	return fmt.Sprintf("no season data: player %d season %s", e.PlayerID, e.Season)
}

func NewNoSeasonDataError(playerID int64, season string) error {
	return &NoSeasonDataError{PlayerID: playerID, Season: season}
}
