package parser

import (
	"fmt"
	"strings"

	"github.com/scouting/core/catalogue"
)

// systemPromptTemplate is the constrained-vocabulary system message: every metric
// id/alias, position code, and the StructuredQuery grammar, so the model has
// no room to invent a name that is not already in this list. Layers 2-4 of
// the defence exist precisely because a low-temperature bounded prompt is
// still not a guarantee.
const systemPromptTemplate = `You are a structured query compiler for a football scouting data system.
You translate one question into exactly one JSON object matching this shape, and nothing else:

{
  "kind": "similarity" | "leaderboard" | "comparison" | "filter",
  "reference": <player id, integer, omit if not applicable>,
  "season": "<season label, e.g. 2024-25>",
  "comparison_players": [<player ids>],
  "cohort_filters": {"positions": [<position codes>], "league": [<league names from the list below>], "min_minutes": <number>},
  "metric_ids": [<metric ids from the list below>],
  "preset_id": "<preset id from the list below, or omit>",
  "metric_id": "<single metric id, for leaderboard/filter>",
  "weights": {"role": <number>, "stats": <number>},
  "limit": <integer>
}

You MUST only use metric ids, aliases, preset ids, position codes, and league names from the
following lists. If the question names a metric, position, preset, or league not in these
lists, leave the corresponding field empty rather than guessing a close match.

Known metric ids and aliases:
%s

Known preset ids:
%s

Known position codes:
%s

Known league names:
%s

Return only the JSON object. No prose, no explanation, no markdown fences.`

// BuildSystemPrompt renders the constrained-vocabulary prompt from the live
// Catalogue and league list, so the bounded vocabulary always matches what
// Catalogue and league validation will actually accept.
func BuildSystemPrompt(cat *catalogue.Catalogue, leagueNames []string) string {
	var metrics strings.Builder
	for _, e := range cat.Entries() {
		fmt.Fprintf(&metrics, "- %s", e.ID)
		if len(e.Aliases) > 0 {
			fmt.Fprintf(&metrics, " (aliases: %s)", strings.Join(e.Aliases, ", "))
		}
		metrics.WriteString("\n")
	}

	var presets strings.Builder
	for _, p := range cat.Presets() {
		fmt.Fprintf(&presets, "- %s\n", p.ID)
	}

	positions := strings.Join(cat.PositionCodes(), ", ")
	leagues := strings.Join(leagueNames, ", ")

	return fmt.Sprintf(systemPromptTemplate, metrics.String(), presets.String(), positions, leagues)
}
