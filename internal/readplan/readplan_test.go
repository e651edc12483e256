package readplan

import (
	"testing"

	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

func mustXor(t *testing.T, level, part uint8) parttype.Type {
	t.Helper()
	tp, err := parttype.Xor(level, part)
	if err != nil {
		t.Fatal(err)
	}
	return tp
}

func mustParity(t *testing.T, level uint8) parttype.Type {
	t.Helper()
	tp, err := parttype.XorParity(level)
	if err != nil {
		t.Fatal(err)
	}
	return tp
}

func TestLadderPrefersFullSliceOverStandard(t *testing.T) {
	parts := []PartInfo{
		{Type: parttype.Standard(), Score: 1},
		{Type: mustXor(t, 3, 1), Score: 1},
		{Type: mustXor(t, 3, 2), Score: 1},
		{Type: mustXor(t, 3, 3), Score: 1},
	}
	p := NewPlanner(1.2)
	if !p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected reading possible")
	}
	if p.chosen != stepFullSliceParts {
		t.Fatalf("expected stepFullSliceParts, got %d", p.chosen)
	}
	plan, err := p.BuildPlan()
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Basic) != 3 {
		t.Fatalf("expected 3 basic operations, got %d", len(plan.Basic))
	}
	assertDisjoint(t, plan)
}

func TestLadderFallsBackToStandard(t *testing.T) {
	parts := []PartInfo{
		{Type: parttype.Standard(), Score: 1},
		{Type: mustXor(t, 3, 1), Score: 1},
		{Type: mustXor(t, 3, 2), Score: 1},
		// part 3 missing: incomplete xor slice.
	}
	p := NewPlanner(1.0)
	if !p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected reading possible")
	}
	if p.chosen != stepStandard {
		t.Fatalf("expected stepStandard, got %d", p.chosen)
	}
}

func TestLadderParityRecovery(t *testing.T) {
	parts := []PartInfo{
		mustPart(t, mustXor(t, 3, 1)),
		mustPart(t, mustXor(t, 3, 2)),
		// part 3 missing, but parity present.
		mustPart(t, mustParity(t, 3)),
	}
	p := NewPlanner(1.0)
	if !p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected reading possible via parity recovery")
	}
	if p.chosen != stepParityRecover {
		t.Fatalf("expected stepParityRecover, got %d", p.chosen)
	}
	plan, err := p.BuildPlan()
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.PostProcessing) == 0 {
		t.Fatal("expected post-processing ops for parity recovery")
	}
	found := false
	for _, op := range plan.PostProcessing {
		if op.Kind == XorRecover {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an XorRecover post-processing op")
	}
}

func TestUnreadableWhenNothingSatisfiesLadder(t *testing.T) {
	parts := []PartInfo{
		mustPart(t, mustXor(t, 3, 1)),
		// missing two of three data parts and no parity: not recoverable.
	}
	p := NewPlanner(1.0)
	if p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected reading not possible")
	}
	if _, err := p.BuildPlan(); err != ErrNotRecoverable {
		t.Fatalf("expected ErrNotRecoverable, got %v", err)
	}
}

func TestAvoidPartRemovesFromBasicWave(t *testing.T) {
	standard := parttype.Standard()
	parts := []PartInfo{{Type: standard, Score: 1}}
	p := NewPlanner(1.0)
	p.StartAvoidingPart(standard)
	if p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected avoided part to be excluded from candidacy")
	}
}

func TestIsFinishingPossibleAndReadingFinished(t *testing.T) {
	parts := []PartInfo{{Type: parttype.Standard(), Score: 1}}
	p := NewPlanner(1.0)
	if !p.Prepare(parts, 0, parttype.MFSBlockSize) {
		t.Fatal("expected reading possible")
	}
	if p.IsFinishingPossible([]parttype.Type{parttype.Standard()}) {
		t.Fatal("expected finishing impossible once the only candidate part failed")
	}
	if !p.IsReadingFinished([]parttype.Type{parttype.Standard()}) {
		t.Fatal("expected reading finished once the only candidate part arrived")
	}
}

func mustPart(t *testing.T, typ parttype.Type) PartInfo {
	t.Helper()
	return PartInfo{Type: typ, Score: 1}
}

func assertDisjoint(t *testing.T, plan *Plan) {
	t.Helper()
	type region struct{ start, end int64 }
	var regions []region
	for _, op := range plan.Basic {
		regions = append(regions, region{op.BufferOffset, op.BufferOffset + op.RequestSize})
	}
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]
			if a.start < b.end && b.start < a.end {
				t.Fatalf("overlapping buffer regions: %+v and %+v", a, b)
			}
		}
	}
}
