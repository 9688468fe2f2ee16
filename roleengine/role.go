// Package roleengine produces a fixed-width, L2-normalised vector per player
// season that captures where and how a player operates, independent of
// volume. See Vector's doc comment for the exact 20-dimension layout.
package roleengine

import (
	"context"
	"math"
	"strings"

	"github.com/scouting/core/coreerr"
	"github.com/scouting/core/store"
)

// RoleVectorVersion stamps every vector this package produces. Vectors
// computed under different formula revisions must never be compared; callers
// that persist a vector (the core itself never does — see Diagnostics)
// should carry this alongside it.
const RoleVectorVersion = "v1.0.0"

// Dims is the fixed width of a RoleVector.
const Dims = 20

// Vector is a 20-dimensional real vector encoding where and how a player
// operates, partitioned into four contiguous blocks in this fixed order:
//
//	0-3   position encoding     (GK, defender, midfielder, forward)
//	4-7   positional spread     (avg longitudinal, avg lateral, spread-x, spread-y)
//	8-15  zone presence         (def third, mid third, att third, left, centre, right, own box, opp box)
//	16-19 pass-direction mix    (forward, backward, lateral, progressive)
//
// After assembly the vector is L2-normalised, so ||v||2 == 1, except for the
// canonical zero vector returned for a role-insufficient player.
type Vector [Dims]float64

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// IsZero reports whether v is the canonical zero vector.
func (v Vector) IsZero() bool {
	return v.Norm() == 0
}

// Diagnostics accompanies every RoleVector computation.
type Diagnostics struct {
	Version       string
	EventCount    int
	RawNorm       float64 // pre-normalisation norm
	Sufficient    bool
	Position      string
}

// positionGroup indices within the position-encoding block.
const (
	groupGK = 0
	groupDEF = 1
	groupMID = 2
	groupFWD = 3
)

// positionWeights maps a declared position code to its soft group
// membership. Codes not listed fall back to an even split across outfield
// groups, which should never happen for a well-formed catalogue but keeps
// the function total rather than partial.
var positionWeights = map[string]map[int]float64{
	"GK": {groupGK: 1.0},
	"CB": {groupDEF: 1.0},
	"LB": {groupDEF: 1.0},
	"RB": {groupDEF: 1.0},
	"WB": {groupDEF: 0.5, groupMID: 0.5},
	"DM": {groupMID: 0.8, groupDEF: 0.2},
	"CM": {groupMID: 1.0},
	"AM": {groupMID: 0.5, groupFWD: 0.5},
	"LW": {groupFWD: 1.0},
	"RW": {groupFWD: 1.0},
	"ST": {groupFWD: 1.0},
}

// groupNames maps a position-group index to its public name, used by
// DominantGroups to report group membership without exposing the internal
// int constants.
var groupNames = map[int]string{
	groupGK:  "GK",
	groupDEF: "DEF",
	groupMID: "MID",
	groupFWD: "FWD",
}

// DominantGroups returns the set of position groups (by name) that a
// position code contributes non-zero weight to. Used by the Similarity
// Engine's position-compatibility gate; returns nil for an unrecognised
// code, which callers should treat as "compatible with everything" rather
// than "compatible with nothing".
func DominantGroups(positionCode string) map[string]bool {
	weights, ok := positionWeights[strings.ToUpper(positionCode)]
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(weights))
	for g := range weights {
		out[groupNames[g]] = true
	}
	return out
}

// Engine computes role vectors from the Store Gateway's repository.
type Engine struct {
	repo      *store.Repository
	minEvents int
}

// New constructs a role engine. minEvents is the configured minimum number
// of positional events (role_min_events) a player season must have before a
// non-zero vector is produced.
func New(repo *store.Repository, minEvents int) *Engine {
	return &Engine{repo: repo, minEvents: minEvents}
}

// RoleVectorFor computes the RoleVector for a (player, season) pair already
// fetched from the store, so callers building a cohort do not need to refetch
// per candidate.
func (e *Engine) RoleVectorFor(row store.PlayerSeasonRow) (Vector, Diagnostics) {
	diag := Diagnostics{
		Version:    RoleVectorVersion,
		EventCount: row.Stat.PositionalEvents,
		Position:   row.Player.PrimaryPosition,
	}

	if row.Stat.PositionalEvents < e.minEvents {
		diag.Sufficient = false
		return Vector{}, diag
	}

	var v Vector
	assignPositionBlock(&v, row.Player.PrimaryPosition)
	assignSpreadBlock(&v, row.Stat)
	assignZoneBlock(&v, row.Stat)
	assignPassDirectionBlock(&v, row.Stat)

	raw := v.Norm()
	diag.RawNorm = raw
	if raw == 0 {
		diag.Sufficient = false
		return Vector{}, diag
	}

	for i := range v {
		v[i] /= raw
	}
	diag.Sufficient = true
	return v, diag
}

// assignPositionBlock fills dims 0-3 from the position-group weight table,
// with a small smoothing for hybrid codes (e.g. wing-back contributing to
// both the defender and midfielder groups).
func assignPositionBlock(v *Vector, positionCode string) {
	weights, ok := positionWeights[strings.ToUpper(positionCode)]
	if !ok {
		// Unrecognised code: split evenly across outfield groups rather than
		// silently defaulting to one.
		weights = map[int]float64{groupDEF: 1.0 / 3, groupMID: 1.0 / 3, groupFWD: 1.0 / 3}
	}
	for group, w := range weights {
		v[group] = w
	}
}

// assignSpreadBlock fills dims 4-7: average longitudinal/lateral position and
// their dispersions, rescaled to [0,1] against the 0-100 pitch scale the
// store records positions on.
func assignSpreadBlock(v *Vector, s store.PlayerSeasonStat) {
	v[4] = rescale100(s.AvgX)
	v[5] = rescale100(s.AvgY)
	v[6] = rescale100(s.StdDevX)
	v[7] = rescale100(s.StdDevY)
}

func rescale100(p *float64) float64 {
	if p == nil {
		return 0
	}
	x := *p / 100.0
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// assignZoneBlock fills dims 8-15: three vertical-third fractions, three
// lateral-channel fractions, and two box-presence fractions. The third and
// channel fractions are each a partition summing to 1 by construction; the
// two box fractions are independent of those partitions and of each other.
func assignZoneBlock(v *Vector, s store.PlayerSeasonStat) {
	thirdTotal := s.EventsDefensiveThird + s.EventsMiddleThird + s.EventsAttackingThird
	if thirdTotal > 0 {
		v[8] = s.EventsDefensiveThird / thirdTotal
		v[9] = s.EventsMiddleThird / thirdTotal
		v[10] = s.EventsAttackingThird / thirdTotal
	}

	channelTotal := s.EventsLeftChannel + s.EventsCentreChannel + s.EventsRightChannel
	if channelTotal > 0 {
		v[11] = s.EventsLeftChannel / channelTotal
		v[12] = s.EventsCentreChannel / channelTotal
		v[13] = s.EventsRightChannel / channelTotal
	}

	events := float64(s.PositionalEvents)
	if events > 0 {
		v[14] = s.EventsOwnBox / events
		v[15] = s.EventsOppositionBox / events
	}
}

// assignPassDirectionBlock fills dims 16-19: a four-way split of completed
// passes into forward, backward, lateral, and progressive fractions summing
// to 1. Progressive passes are carved out of the forward/backward/lateral
// totals proportionally, since the store records progressive passes as an
// overlapping subset count rather than a fourth disjoint direction.
func assignPassDirectionBlock(v *Vector, s store.PlayerSeasonStat) {
	directional := s.PassesForward + s.PassesBackward + s.PassesLateral
	if directional <= 0 {
		return
	}

	progressive := s.ProgressivePasses
	if progressive > directional {
		progressive = directional
	}
	remaining := directional - progressive
	scale := remaining / directional

	v[16] = (s.PassesForward / directional) * scale
	v[17] = (s.PassesBackward / directional) * scale
	v[18] = (s.PassesLateral / directional) * scale
	v[19] = progressive / directional
}

// Explain reverses the block layout into a human-readable decomposition,
// used by the Similarity Engine's per-block attribution.
type Explanation struct {
	PositionGroups map[string]float64
	AvgX, AvgY     float64
	SpreadX, SpreadY float64
	ThirdDefensive, ThirdMiddle, ThirdAttacking float64
	ChannelLeft, ChannelCentre, ChannelRight float64
	BoxOwn, BoxOpposition float64
	PassForward, PassBackward, PassLateral, PassProgressive float64
}

// Explain decomposes a RoleVector back into named percentages.
func Explain(v Vector) Explanation {
	return Explanation{
		PositionGroups: map[string]float64{
			"goalkeeper": v[groupGK], "defender": v[groupDEF], "midfielder": v[groupMID], "forward": v[groupFWD],
		},
		AvgX: v[4], AvgY: v[5], SpreadX: v[6], SpreadY: v[7],
		ThirdDefensive: v[8], ThirdMiddle: v[9], ThirdAttacking: v[10],
		ChannelLeft: v[11], ChannelCentre: v[12], ChannelRight: v[13],
		BoxOwn: v[14], BoxOpposition: v[15],
		PassForward: v[16], PassBackward: v[17], PassLateral: v[18], PassProgressive: v[19],
	}
}

// RoleVectorForPlayer fetches a (player, season) row and computes its role
// vector in one call, returning coreerr.NoSeasonDataError when the store has
// no row at all (distinct from InsufficientPositionalData, the soft case
// where a row exists but is too sparse).
func (e *Engine) RoleVectorForPlayer(ctx context.Context, playerID int64, season string) (Vector, Diagnostics, error) {
	row, err := e.repo.FetchPlayerSeason(ctx, playerID, season)
	if err != nil {
		return Vector{}, Diagnostics{}, err
	}
	v, diag := e.RoleVectorFor(*row)
	if !diag.Sufficient {
		return v, diag, coreerr.NewInsufficientPositionalDataError(playerID, season, diag.EventCount, e.minEvents)
	}
	return v, diag, nil
}
