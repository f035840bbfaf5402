package beat

import (
	"math"
	"testing"
)

func TestBuildRegionsNoGaps(t *testing.T) {
	regions := BuildRegions(Boundaries{MusicStart: 0.5, MusicEnd: 30}, 120, 0.8, nil)

	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.Type != RegionSteady {
		t.Errorf("type = %s, want steady", r.Type)
	}
	if r.StartTime != 0.5 || r.EndTime != 30 {
		t.Errorf("span = [%f, %f], want [0.5, 30]", r.StartTime, r.EndTime)
	}
	if r.BPM == nil || *r.BPM != 120 {
		t.Errorf("steady region missing BPM")
	}
	if r.ID != 1 {
		t.Errorf("ID = %d, want 1", r.ID)
	}
}

func TestBuildRegionsWithFermata(t *testing.T) {
	gaps := []ValidatedGap{{
		GapCandidate: GapCandidate{GapStart: 3.5, GapEnd: 7.0},
		DurationSec:  3.5,
		GapBeats:     7,
		Confidence:   0.95,
	}}

	regions := BuildRegions(Boundaries{MusicStart: 0, MusicEnd: 12.5}, 120, 0.8, gaps)

	if len(regions) != 3 {
		t.Fatalf("regions = %d, want 3 (%+v)", len(regions), regions)
	}

	ferm := regions[1]
	if ferm.Type != RegionFermata {
		t.Fatalf("middle region type = %s, want fermata", ferm.Type)
	}
	// the held note runs one beat past its onset before the hold begins
	if math.Abs(ferm.StartTime-4.0) > 1e-9 {
		t.Errorf("fermata start = %f, want 4.0", ferm.StartTime)
	}
	if ferm.EndTime != 7.0 {
		t.Errorf("fermata end = %f, want 7.0", ferm.EndTime)
	}
	if ferm.BPM != nil {
		t.Errorf("fermata carries a BPM")
	}

	// contiguous, sorted, covering
	if regions[0].StartTime != 0 || regions[2].EndTime != 12.5 {
		t.Errorf("regions do not cover the span: %+v", regions)
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].StartTime != regions[i-1].EndTime {
			t.Errorf("regions %d/%d not contiguous", i-1, i)
		}
		if regions[i].ID != regions[i-1].ID+1 {
			t.Errorf("IDs not sequential")
		}
	}
}

func TestBuildRegionsEmptySpan(t *testing.T) {
	if regions := BuildRegions(Boundaries{}, 120, 0.5, nil); regions != nil {
		t.Errorf("empty span should yield no regions")
	}
}

func TestUpdateSteadyBPM(t *testing.T) {
	old := 120.0
	regions := []TempoRegion{
		{ID: 1, Type: RegionSteady, BPM: &old},
		{ID: 2, Type: RegionFermata},
		{ID: 3, Type: RegionSteady, BPM: &old},
	}

	out := UpdateSteadyBPM(regions, 140)

	if *out[0].BPM != 140 || *out[2].BPM != 140 {
		t.Errorf("steady BPM not updated")
	}
	if out[1].BPM != nil {
		t.Errorf("fermata BPM should stay nil")
	}
	if *regions[0].BPM != 120 {
		t.Errorf("input regions mutated")
	}
}
