package parser

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/coreerr"
	"github.com/scouting/core/query"
	"github.com/scouting/core/store"
)

// rawQuery is the shape the language model is asked to return. It mirrors
// query.StructuredQuery but with loose types (plain strings, omittable
// fields) since layer 2 (schema check) is what turns this into something
// stricter, not Go's JSON decoder.
type rawQuery struct {
	Kind               string             `json:"kind"`
	Reference          *int64             `json:"reference"`
	Season             string             `json:"season"`
	ComparisonPlayers  []int64            `json:"comparison_players"`
	CohortFilters      rawCohortFilters   `json:"cohort_filters"`
	MetricIDs          []string           `json:"metric_ids"`
	PresetID           string             `json:"preset_id"`
	MetricID           string             `json:"metric_id"`
	Weights            rawWeights         `json:"weights"`
	Limit              int                `json:"limit"`
}

type rawCohortFilters struct {
	Positions  []string `json:"positions"`
	League     []string `json:"league"`
	MinMinutes float64  `json:"min_minutes"`
	MinAge     int      `json:"min_age"`
	MaxAge     int      `json:"max_age"`
}

type rawWeights struct {
	Role  float64 `json:"role"`
	Stats float64 `json:"stats"`
}

// Parser translates free text into a query.StructuredQuery via an external
// language model, validating its output against the Catalogue before ever
// trusting it.
type Parser struct {
	cat          *catalogue.Catalogue
	llm          *LLMClient
	repo         store.PlayerSeasonSource
	leagueByName map[string]int64
	prompt       string
}

// New constructs a Parser bound to a Catalogue, language-model client, the
// store's current set of leagues, and a PlayerSeasonSource used only by the
// lenient-mode fallback to look up a guessed reference player's position.
// repo may be nil (e.g. in tests exercising the fallback's preset-picking
// logic without a store), in which case the fallback degrades to the first
// catalogue preset. The constrained prompt is built once, from the
// Catalogue and league list, at construction time and reused for every call.
func New(cat *catalogue.Catalogue, llm *LLMClient, leagues []store.League, repo store.PlayerSeasonSource) *Parser {
	leagueByName := make(map[string]int64, len(leagues))
	leagueNames := make([]string, 0, len(leagues))
	for _, l := range leagues {
		leagueByName[strings.ToLower(l.Name)] = l.ID
		leagueNames = append(leagueNames, l.Name)
	}
	return &Parser{cat: cat, llm: llm, repo: repo, leagueByName: leagueByName, prompt: BuildSystemPrompt(cat, leagueNames)}
}

// Parse runs the four-layer defence in strict mode: any rejection at any
// layer returns a typed ParseError, never a guess.
func (p *Parser) Parse(ctx context.Context, text string) (query.StructuredQuery, error) {
	q, warnings, err := p.parse(ctx, text)
	if err != nil {
		return query.StructuredQuery{}, err
	}
	if len(warnings) > 0 {
		return query.StructuredQuery{}, coreerr.NewParseError(warnings)
	}
	return q, nil
}

// ParseLenient runs the same four layers, but on any rejection falls back to
// a safe-default query scoped to whatever player or entity the text most
// plausibly references, with degraded=true and the specific warnings that
// triggered the fallback. It never substitutes an invented metric: the
// fallback's metric set always comes from a known preset, never from the
// rejected tokens.
func (p *Parser) ParseLenient(ctx context.Context, text string) (query.StructuredQuery, bool, []string, error) {
	q, warnings, err := p.parse(ctx, text)
	if err == nil && len(warnings) == 0 {
		return q, false, nil, nil
	}
	if err != nil {
		// Layer 1/2 failure: no partial StructuredQuery to draw a reference
		// or season from, only the raw text.
		q = query.StructuredQuery{}
	}

	fallback, fbWarnings, fbErr := p.safeDefault(ctx, text, q, warnings)
	if fbErr != nil {
		return query.StructuredQuery{}, false, nil, fbErr
	}
	return fallback, true, fbWarnings, nil
}

// parse runs layers 1-3 and returns either a clean StructuredQuery with no
// warnings, or a StructuredQuery alongside the list of rejected tokens (not
// yet a ParseError — callers decide whether to fail strict or fall back).
func (p *Parser) parse(ctx context.Context, text string) (query.StructuredQuery, []string, error) {
	// Layer 1: constrained prompt, low temperature.
	raw, err := p.llm.Complete(ctx, p.prompt, text)
	if err != nil {
		return query.StructuredQuery{}, nil, err
	}

	// Layer 2: schema check.
	var decoded rawQuery
	if err := json.Unmarshal([]byte(stripFences(raw)), &decoded); err != nil {
		return query.StructuredQuery{}, nil, coreerr.NewParseError([]string{"model did not return valid JSON"})
	}
	kind, ok := validKind(decoded.Kind)
	if !ok {
		return query.StructuredQuery{}, nil, coreerr.NewParseError([]string{"unrecognised query kind: " + decoded.Kind})
	}

	// Layer 3: catalogue validation. Collect every offending token instead
	// of stopping at the first, so a lenient caller gets the full warning
	// list to report.
	var warnings []string
	resolvedMetrics := make([]string, 0, len(decoded.MetricIDs))
	for _, m := range decoded.MetricIDs {
		canonical, ok := p.cat.Resolve(m)
		if !ok {
			warnings = append(warnings, "unknown term: "+m)
			continue
		}
		resolvedMetrics = append(resolvedMetrics, canonical)
	}
	if decoded.MetricID != "" {
		if canonical, ok := p.cat.Resolve(decoded.MetricID); ok {
			decoded.MetricID = canonical
		} else {
			warnings = append(warnings, "unknown term: "+decoded.MetricID)
		}
	}
	if decoded.PresetID != "" && p.cat.Preset(decoded.PresetID) == nil {
		warnings = append(warnings, "unknown preset: "+decoded.PresetID)
	}
	for _, pos := range decoded.CohortFilters.Positions {
		if !p.cat.PositionRecognised(pos) {
			warnings = append(warnings, "unknown position: "+pos)
		}
	}
	var leagueIDs []int64
	for _, name := range decoded.CohortFilters.League {
		id, ok := p.leagueByName[strings.ToLower(name)]
		if !ok {
			warnings = append(warnings, "unknown league: "+name)
			continue
		}
		leagueIDs = append(leagueIDs, id)
	}

	q := query.StructuredQuery{
		Kind:              kind,
		Season:            decoded.Season,
		ComparisonPlayers: decoded.ComparisonPlayers,
		MetricIDs:         resolvedMetrics,
		PresetID:          decoded.PresetID,
		MetricID:          decoded.MetricID,
		Weights:           query.Weights{Role: decoded.Weights.Role, Stats: decoded.Weights.Stats},
		Limit:             decoded.Limit,
	}
	if decoded.Reference != nil {
		q.Reference = *decoded.Reference
	}
	q.CohortFilters.Positions = decoded.CohortFilters.Positions
	q.CohortFilters.LeagueIDs = leagueIDs
	q.CohortFilters.MinMinutes = decoded.CohortFilters.MinMinutes
	q.CohortFilters.MinAge = decoded.CohortFilters.MinAge
	q.CohortFilters.MaxAge = decoded.CohortFilters.MaxAge

	return q, warnings, nil
}

func validKind(s string) (query.Kind, bool) {
	switch query.Kind(s) {
	case query.KindSimilarity, query.KindLeaderboard, query.KindComparison, query.KindFilter:
		return query.Kind(s), true
	default:
		return "", false
	}
}

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFences removes a markdown code fence around the model's response, in
// case it ignored the "no markdown fences" instruction.
func stripFences(s string) string {
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// playerIDRE recognises a bare "player 42" or "#42" reference in free text,
// the only form guessReferencePlayer attempts — it never tries to match a
// display name against the store, since that would reintroduce the guessing
// the rest of this package exists to avoid.
var playerIDRE = regexp.MustCompile(`(?i)(?:player\s*#?|#)\s*(\d+)`)

// guessReferencePlayer extracts a numeric player id from free text, for the
// lenient fallback's "entity the text most plausibly references" step.
func guessReferencePlayer(text string) (int64, bool) {
	m := playerIDRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// similarityTerms are the words whose presence in free text suggests the
// caller wants a similarity query rather than a leaderboard, used only by
// the lenient fallback to pick a reasonable degraded query shape.
var similarityTerms = []string{"similar", "like", "comparable", "resembles", "alternative to"}

func isSimilarityQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range similarityTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// safeDefault builds the lenient-mode fallback query: a similarity query (when
// the text uses similarity wording) or a filter query scoped to whatever
// player the text references (or, with no numeric reference, an unscoped
// leaderboard over a default preset), with
// its metric set always drawn from a known preset rather than the rejected
// terms. The preset itself is resolved from the reference player's own
// position when one can be determined (partial.Reference from layer 3, or a
// numeric id guessed from the raw text), falling back to the first catalogue
// preset only when no position lookup is possible or succeeds.
func (p *Parser) safeDefault(ctx context.Context, text string, partial query.StructuredQuery, warnings []string) (query.StructuredQuery, []string, error) {
	presets := p.cat.Presets()
	if len(presets) == 0 {
		return query.StructuredQuery{}, nil, coreerr.NewParseError(append(warnings, "no preset available for safe-default fallback"))
	}
	defaultPresetID := presets[0].ID

	reference := partial.Reference
	if reference == 0 {
		if playerID, ok := guessReferencePlayer(text); ok {
			reference = playerID
		}
	}
	season := partial.Season

	presetID := defaultPresetID
	if id := p.presetForReference(ctx, reference, season); id != "" {
		presetID = id
	}

	q := query.StructuredQuery{
		PresetID: presetID,
		Season:   season,
		Limit:    20,
	}

	if reference != 0 {
		q.Reference = reference
		if isSimilarityQuery(text) {
			q.Kind = query.KindSimilarity
		} else {
			q.Kind = query.KindFilter
		}
	} else {
		q.Kind = query.KindLeaderboard
		ids, _, _ := p.cat.ResolveMetricSet(presetID, nil)
		if len(ids) > 0 {
			q.MetricID = ids[0]
		}
	}

	return q, warnings, nil
}

// presetForReference looks up a reference player's primary position and
// returns the id of the preset scoped to it, or "" if repo is nil, the
// player/season cannot be found, or no preset covers that position.
func (p *Parser) presetForReference(ctx context.Context, reference int64, season string) string {
	if p.repo == nil || reference == 0 || season == "" {
		return ""
	}
	row, err := p.repo.FetchPlayerSeason(ctx, reference, season)
	if err != nil {
		return ""
	}
	preset := p.cat.PresetForPosition(row.Player.PrimaryPosition)
	if preset == nil {
		return ""
	}
	return preset.ID
}
