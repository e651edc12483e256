package copies

import (
	"testing"

	"github.com/lizardfs/lizardfs-sub007/internal/goal"
)

func standardGoal(total int) goal.Goal {
	g := goal.New("test")
	g.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {goal.Wildcard: total}},
	}
	return g
}

func standardAvailable(counts ...string) goal.Goal {
	g := goal.New("available")
	labels := goal.Labels{}
	for _, l := range counts {
		labels[l]++
	}
	g.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: labels},
	}
	return g
}

func TestSliceRedundancyStandard(t *testing.T) {
	c := New(standardGoal(3), standardAvailable("a", "b", "c"))
	if r := c.SliceRedundancy(goal.Standard()); r != 2 {
		t.Fatalf("redundancy = %d, want 2", r)
	}
}

func TestSliceRedundancyStandardMissing(t *testing.T) {
	c := New(standardGoal(3), goal.New("empty"))
	if r := c.SliceRedundancy(goal.Standard()); r != -1 {
		t.Fatalf("redundancy = %d, want -1", r)
	}
}

func TestSliceRedundancyXorComplete(t *testing.T) {
	st := goal.Xor(3)
	avail := goal.New("available")
	avail.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{
		1: {"a": 1}, 2: {"a": 1}, 3: {"a": 1},
	}}
	c := New(goal.New("target"), avail)
	if r := c.SliceRedundancy(st); r != 0 {
		t.Fatalf("redundancy = %d, want 0 (complete, no parity)", r)
	}
}

func TestSliceRedundancyXorWithParity(t *testing.T) {
	st := goal.Xor(3)
	avail := goal.New("available")
	avail.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{
		0: {"a": 1}, 1: {"a": 1}, 2: {"a": 1}, 3: {"a": 1},
	}}
	c := New(goal.New("target"), avail)
	if r := c.SliceRedundancy(st); r != 1 {
		t.Fatalf("redundancy = %d, want 1 (complete + parity)", r)
	}
}

func TestSliceRedundancyXorMissingDataWithParity(t *testing.T) {
	st := goal.Xor(3)
	avail := goal.New("available")
	avail.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{
		0: {"a": 1}, 1: {"a": 1}, 2: {"a": 1},
	}}
	c := New(goal.New("target"), avail)
	if r := c.SliceRedundancy(st); r != 0 {
		t.Fatalf("redundancy = %d, want 0 (one data missing, parity covers it)", r)
	}
}

func TestSliceRedundancyXorMissingDataNoParity(t *testing.T) {
	st := goal.Xor(3)
	avail := goal.New("available")
	avail.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{
		1: {"a": 1}, 2: {"a": 1},
	}}
	c := New(goal.New("target"), avail)
	if r := c.SliceRedundancy(st); r != -1 {
		t.Fatalf("redundancy = %d, want -1 (one data missing, no parity)", r)
	}
}

func TestSliceRedundancyECCappedByM(t *testing.T) {
	st := goal.EC(6, 3)
	avail := goal.New("available")
	pl := map[int]goal.Labels{}
	for i := 0; i < 9; i++ {
		pl[i] = goal.Labels{"a": 1}
	}
	avail.Slices[st] = goal.Slice{Type: st, PartLabels: pl}
	c := New(goal.New("target"), avail)
	if r := c.SliceRedundancy(st); r != 3 {
		t.Fatalf("redundancy = %d, want 3 (capped at m)", r)
	}
}

func TestRedundancyLevelStandard(t *testing.T) {
	c := New(standardGoal(2), standardAvailable("a", "b"))
	if r := c.RedundancyLevel(); r != 1 {
		t.Fatalf("chunk redundancy = %d, want 1", r)
	}
}

func TestCanRemovePartSingleStandardCopyException(t *testing.T) {
	c := New(standardGoal(1), standardAvailable("a"))
	if !c.CanRemovePart(goal.Standard(), 0, "a") {
		t.Fatal("expected single-standard-copy target to permit removal even though it endangers the chunk")
	}
}

func TestCanRemovePartRejectsWhenItWouldEndanger(t *testing.T) {
	c := New(standardGoal(2), standardAvailable("a", "b"))
	if c.CanRemovePart(goal.Standard(), 0, "a") {
		t.Fatal("expected removal to be rejected: it would drop a 2-copy goal to 1 remaining copy below safety margin")
	}
}

func TestCanRemovePartAllowsWhenSurplus(t *testing.T) {
	c := New(standardGoal(2), standardAvailable("a", "b", "c"))
	if !c.CanRemovePart(goal.Standard(), 0, "a") {
		t.Fatal("expected removal of a surplus copy to be allowed")
	}
}

func TestGetRemovePoolFindsSurplusLabel(t *testing.T) {
	target := goal.New("target")
	target.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 1}},
	}
	avail := standardAvailable("us", "us", "eu")
	c := New(target, avail)
	pool := c.GetRemovePool(goal.Standard(), 0)
	found := map[string]bool{}
	for _, l := range pool {
		found[l] = true
	}
	if !found["us"] || !found["eu"] {
		t.Fatalf("remove pool = %v, want both us and eu as surplus", pool)
	}
}

func TestGetLabelsToRecoverBasic(t *testing.T) {
	target := goal.New("target")
	target.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 2, "eu": 1}},
	}
	avail := standardAvailable("us")
	c := New(target, avail)
	recover := c.GetLabelsToRecover(goal.Standard(), 0)
	if recover["us"] != 1 {
		t.Fatalf("recover[us] = %d, want 1", recover["us"])
	}
	if recover["eu"] != 1 {
		t.Fatalf("recover[eu] = %d, want 1", recover["eu"])
	}
}

func TestGetLabelsToRecoverWildcardFoldsSurplus(t *testing.T) {
	target := goal.New("target")
	target.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {goal.Wildcard: 2}},
	}
	avail := standardAvailable("us", "eu")
	c := New(target, avail)
	recover := c.GetLabelsToRecover(goal.Standard(), 0)
	if recover.Total() != 0 {
		t.Fatalf("recover = %v, want nothing missing (2 copies anywhere satisfied)", recover)
	}
}

func TestGetLabelsToRecoverWildcardStillMissing(t *testing.T) {
	target := goal.New("target")
	target.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {goal.Wildcard: 3}},
	}
	avail := standardAvailable("us")
	c := New(target, avail)
	recover := c.GetLabelsToRecover(goal.Standard(), 0)
	if recover[goal.Wildcard] != 2 {
		t.Fatalf("recover[_] = %d, want 2", recover[goal.Wildcard])
	}
}

func TestOperationCountCountsCreatesAndDeletes(t *testing.T) {
	target := goal.New("target")
	target.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 2}},
	}
	avail := standardAvailable("us", "eu", "eu")
	c := New(target, avail)
	creates, deletes := c.OperationCount()
	if creates != 1 {
		t.Fatalf("creates = %d, want 1 (missing second us copy)", creates)
	}
	if deletes == 0 {
		t.Fatalf("deletes = %d, want at least 1 (surplus eu copies)", deletes)
	}
}

func TestOptimizeSlotAssignmentMatchesIdenticalLabels(t *testing.T) {
	slots := []string{"us", "eu"}
	copiesAvail := []string{"eu", "us"}
	result := OptimizeSlotAssignment(slots, copiesAvail)
	if result[0] != 1 || result[1] != 0 {
		t.Fatalf("assignment = %v, want [1 0] (matching labels)", result)
	}
}

func TestOptimizeSlotAssignmentCreateWhenNoCopy(t *testing.T) {
	slots := []string{"us", "eu"}
	copiesAvail := []string{"us"}
	result := OptimizeSlotAssignment(slots, copiesAvail)
	if result[0] != 0 {
		t.Fatalf("slot 0 assignment = %d, want 0 (matched us)", result[0])
	}
	if result[1] != -1 {
		t.Fatalf("slot 1 assignment = %d, want -1 (create new)", result[1])
	}
}

func TestMergeTakesLabelWiseMax(t *testing.T) {
	g1 := goal.New("g1")
	g1.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 1}},
	}
	g2 := goal.New("g2")
	g2.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 2, "eu": 1}},
	}
	merged := Merge(g1, g2)
	labels := merged.Slices[goal.Standard()].PartLabels[0]
	if labels["us"] != 2 || labels["eu"] != 1 {
		t.Fatalf("merged labels = %v, want us:2 eu:1", labels)
	}
}

func TestGetFullCopiesCountStandard(t *testing.T) {
	g := standardGoal(3)
	if n := GetFullCopiesCount(g); n != 3 {
		t.Fatalf("full copies = %d, want 3", n)
	}
}

func TestGetFullCopiesCountMixed(t *testing.T) {
	g := standardGoal(2)
	st := goal.Xor(3)
	g.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{0: {"a": 1}}}
	if n := GetFullCopiesCount(g); n != 3 {
		t.Fatalf("full copies = %d, want 3 (2 standard + 1 xor slice)", n)
	}
}

func TestMergeKeepsSliceOnlyInOneGoal(t *testing.T) {
	g1 := goal.New("g1")
	g1.Slices[goal.Standard()] = goal.Slice{
		Type:       goal.Standard(),
		PartLabels: map[int]goal.Labels{0: {"us": 1}},
	}
	g2 := goal.New("g2")
	st := goal.Xor(3)
	g2.Slices[st] = goal.Slice{Type: st, PartLabels: map[int]goal.Labels{0: {"eu": 1}}}

	merged := Merge(g1, g2)
	if len(merged.Slices) != 2 {
		t.Fatalf("merged slice count = %d, want 2", len(merged.Slices))
	}
}
