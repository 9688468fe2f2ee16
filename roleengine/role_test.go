package roleengine

import (
	"math"
	"testing"

	"github.com/scouting/core/store"
)

func floatPtr(f float64) *float64 { return &f }

func sufficientStriker() store.PlayerSeasonRow {
	return store.PlayerSeasonRow{
		Player: store.Player{ID: 1, PrimaryPosition: "ST"},
		Stat: store.PlayerSeasonStat{
			PositionalEvents:     500,
			AvgX:                 floatPtr(80),
			AvgY:                 floatPtr(50),
			StdDevX:              floatPtr(10),
			StdDevY:              floatPtr(15),
			EventsDefensiveThird: 20,
			EventsMiddleThird:    80,
			EventsAttackingThird: 400,
			EventsLeftChannel:    100,
			EventsCentreChannel:  300,
			EventsRightChannel:   100,
			EventsOwnBox:         2,
			EventsOppositionBox:  150,
			PassesForward:        200,
			PassesBackward:       50,
			PassesLateral:        50,
			ProgressivePasses:    60,
		},
	}
}

func TestRoleVectorIsL2Normalised(t *testing.T) {
	e := New(nil, 100)
	v, diag := e.RoleVectorFor(sufficientStriker())
	if !diag.Sufficient {
		t.Fatal("expected sufficient role vector")
	}
	if math.Abs(v.Norm()-1.0) > 1e-9 {
		t.Errorf("expected unit norm, got %v", v.Norm())
	}
}

func TestRoleVectorInsufficientEventsYieldsZero(t *testing.T) {
	e := New(nil, 100)
	row := sufficientStriker()
	row.Stat.PositionalEvents = 10
	v, diag := e.RoleVectorFor(row)
	if diag.Sufficient {
		t.Fatal("expected insufficient role vector")
	}
	if !v.IsZero() {
		t.Errorf("expected zero vector, got %v", v)
	}
}

func TestRoleVectorDeterministic(t *testing.T) {
	e := New(nil, 100)
	row := sufficientStriker()
	v1, _ := e.RoleVectorFor(row)
	v2, _ := e.RoleVectorFor(row)
	if v1 != v2 {
		t.Errorf("expected bit-identical output across calls, got %v vs %v", v1, v2)
	}
}

func TestZoneBlockPartitionsSumToOne(t *testing.T) {
	row := sufficientStriker()
	var v Vector
	assignZoneBlock(&v, row.Stat)
	thirdSum := v[8] + v[9] + v[10]
	if math.Abs(thirdSum-1.0) > 1e-9 {
		t.Errorf("expected thirds to sum to 1, got %v", thirdSum)
	}
	channelSum := v[11] + v[12] + v[13]
	if math.Abs(channelSum-1.0) > 1e-9 {
		t.Errorf("expected channels to sum to 1, got %v", channelSum)
	}
}

func TestPassDirectionBlockSumsToOne(t *testing.T) {
	row := sufficientStriker()
	var v Vector
	assignPassDirectionBlock(&v, row.Stat)
	sum := v[16] + v[17] + v[18] + v[19]
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected pass-direction block to sum to 1, got %v", sum)
	}
}

func TestWingBackContributesToTwoPositionGroups(t *testing.T) {
	var v Vector
	assignPositionBlock(&v, "WB")
	if v[groupDEF] <= 0 || v[groupMID] <= 0 {
		t.Errorf("expected wing-back to contribute to both DEF and MID groups, got %v", v)
	}
	if v[groupDEF]+v[groupMID] != 1.0 {
		t.Errorf("expected WB group weights to sum to 1, got %v", v[groupDEF]+v[groupMID])
	}
}
