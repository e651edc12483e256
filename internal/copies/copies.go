// Package copies implements the chunk copies calculator (spec §4.8): given
// a target Goal and the parts actually available for a chunk, it decides
// without any I/O what the master must schedule — which parts to create,
// which surplus copies may be safely reclaimed, and how to permute goal
// parts onto available parts at minimum operation cost.
//
// Grounded on original_source/src/master/chunk_copies_calculator.cc:
// removePartBasicTest/canRemovePart's safe-removal fast paths, evalState/
// evalSliceState's per-slice redundancy accounting, and getFullCopiesCount/
// getRemovePool/getLabelsToRecover's label bookkeeping.
package copies

import (
	"github.com/lizardfs/lizardfs-sub007/internal/assign"
	"github.com/lizardfs/lizardfs-sub007/internal/goal"
)

// Calculator evaluates a chunk's redundancy and the operations needed to
// bring its available parts in line with its target goal.
type Calculator struct {
	Target    goal.Goal
	Available goal.Goal
}

// New returns a Calculator for the given target and currently available
// snapshots.
func New(target, available goal.Goal) Calculator {
	return Calculator{Target: target, Available: available}
}

func slicePartLabels(g goal.Goal, st goal.SliceType, idx int) goal.Labels {
	s, ok := g.Slices[st]
	if !ok {
		return nil
	}
	return s.PartLabels[idx]
}

// SliceRedundancy computes the per-slice redundancy defined in spec §4.8:
// standard is copies-1; xor(L) is (distinct live strip types)-L; EC(k,m)
// is (distinct live strip types)-k, capped at +m.
func (c Calculator) SliceRedundancy(st goal.SliceType) int {
	avail, ok := c.Available.Slices[st]
	if !ok {
		switch st.Kind {
		case goal.KindStandard:
			return -1
		default:
			return -st.NumberOfParts()
		}
	}

	switch st.Kind {
	case goal.KindStandard:
		copies := avail.PartLabels[0].Total()
		return copies - 1
	case goal.KindXor:
		distinct := 0
		for idx := 0; idx <= int(st.Level); idx++ {
			if avail.PartLabels[idx].Total() > 0 {
				distinct++
			}
		}
		return distinct - int(st.Level)
	case goal.KindEC:
		distinct := 0
		for idx := 0; idx < int(st.K)+int(st.M); idx++ {
			if avail.PartLabels[idx].Total() > 0 {
				distinct++
			}
		}
		r := distinct - int(st.K)
		if r > int(st.M) {
			r = int(st.M)
		}
		return r
	}
	return 0
}

// RedundancyLevel is the whole-chunk redundancy (spec §4.8):
// -1 + sum over the target's slices of max(sliceRedundancy+1, 0). A
// result of 0 means endangered (no margin), negative means lost data,
// positive means safe with that much margin.
func (c Calculator) RedundancyLevel() int {
	total := -1
	for st := range c.Target.Slices {
		r := c.SliceRedundancy(st)
		if r+1 > 0 {
			total += r + 1
		}
	}
	return total
}

// isSingleStandardCopyTarget reports whether the target asks for exactly
// one standard copy and nothing else: the one case where the master is
// explicitly choosing to run endangered (spec §4.8's documented exception).
func (c Calculator) isSingleStandardCopyTarget() bool {
	if len(c.Target.Slices) != 1 {
		return false
	}
	s, ok := c.Target.Slices[goal.Standard()]
	if !ok {
		return false
	}
	return s.PartLabels[0].Total() == 1
}

// CanRemovePart reports whether removing one copy of (st, partIdx) at
// label leaves the chunk safe (RedundancyLevel >= 1 after removal), with
// the one documented exception: a target of exactly standard x 1 may be
// reduced to a single remaining copy, since the master was explicitly
// asked to run without redundancy.
func (c Calculator) CanRemovePart(st goal.SliceType, partIdx int, label string) bool {
	if c.isSingleStandardCopyTarget() {
		return true
	}

	after := c.withRemoved(st, partIdx, label)
	return after.RedundancyLevel() >= 1
}

func (c Calculator) withRemoved(st goal.SliceType, partIdx int, label string) Calculator {
	next := Calculator{Target: c.Target, Available: cloneGoal(c.Available)}
	s, ok := next.Available.Slices[st]
	if !ok {
		return next
	}
	labels := s.PartLabels[partIdx]
	if labels[label] > 0 {
		labels[label]--
		if labels[label] == 0 {
			delete(labels, label)
		}
	}
	return next
}

func cloneGoal(g goal.Goal) goal.Goal {
	out := goal.Goal{Name: g.Name, Slices: map[goal.SliceType]goal.Slice{}}
	for st, s := range g.Slices {
		cs := goal.Slice{Type: s.Type, PartLabels: map[int]goal.Labels{}}
		for idx, labels := range s.PartLabels {
			cl := goal.Labels{}
			for l, n := range labels {
				cl[l] = n
			}
			cs.PartLabels[idx] = cl
		}
		out.Slices[st] = cs
	}
	return out
}

// GetRemovePool returns the labels at which (st, partIdx) currently holds
// more copies than the target requires there — copies that may be safely
// reclaimed without creating a deficit at that specific label (safety of
// the chunk as a whole is still CanRemovePart's job).
func (c Calculator) GetRemovePool(st goal.SliceType, partIdx int) []string {
	target := slicePartLabels(c.Target, st, partIdx)
	avail := slicePartLabels(c.Available, st, partIdx)
	var pool []string
	for l, have := range avail {
		if l == goal.Wildcard {
			continue
		}
		if have > target[l] {
			pool = append(pool, l)
		}
	}
	return pool
}

// CanMovePartToDifferentLabel reports whether the part currently has a
// surplus copy at fromLabel beyond what the target requires there, i.e.
// fromLabel is in GetRemovePool.
func (c Calculator) CanMovePartToDifferentLabel(st goal.SliceType, partIdx int, fromLabel string) bool {
	for _, l := range c.GetRemovePool(st, partIdx) {
		if l == fromLabel {
			return true
		}
	}
	return false
}

// GetLabelsToRecover returns the multiset of labels whose required count
// exceeds what's available, folding any surplus at other (non-wildcard)
// labels toward satisfying a wildcard requirement before reporting it as
// still missing.
func (c Calculator) GetLabelsToRecover(st goal.SliceType, partIdx int) goal.Labels {
	target := slicePartLabels(c.Target, st, partIdx)
	avail := slicePartLabels(c.Available, st, partIdx)

	result := goal.Labels{}
	for l, need := range target {
		if l == goal.Wildcard {
			continue
		}
		if have := avail[l]; need > have {
			result[l] = need - have
		}
	}
	surplus := 0
	for l, have := range avail {
		if l == goal.Wildcard {
			continue
		}
		if have > target[l] {
			surplus += have - target[l]
		}
	}

	wildcardNeed := target[goal.Wildcard] - avail[goal.Wildcard] - surplus
	if wildcardNeed > 0 {
		result[goal.Wildcard] = wildcardNeed
	}
	return result
}

// GetFullCopiesCount returns how many full logical copies a goal
// provides: each standard slice contributes its requested copy count,
// and each xor/EC slice contributes one logical copy (a reconstructable
// slice stands in for one full replica); the parts a non-standard slice
// lists are not inspected. Exposed for
// operator tooling and out-of-scope rebalancing logic, both of which
// need a pure function of the Goal alone (no availability data).
func GetFullCopiesCount(g goal.Goal) int {
	total := 0
	for st, slice := range g.Slices {
		switch st.Kind {
		case goal.KindStandard:
			total += slice.PartLabels[0].Total()
		default:
			total++
		}
	}
	return total
}

// OperationCount sums creates and deletes needed across every slice and
// part the target names (spec §4.8).
func (c Calculator) OperationCount() (creates, deletes int) {
	for st, slice := range c.Target.Slices {
		for idx := range slice.PartLabels {
			toRecover := c.GetLabelsToRecover(st, idx)
			creates += toRecover.Total()
			deletes += len(c.GetRemovePool(st, idx))
		}
	}
	return creates, deletes
}

const (
	createCost = 10
	deleteCost = 1
)

// OptimizeSlotAssignment matches each of n target label-slots to the
// best-fitting available copy label (or to "create new"/"delete
// unmatched" placeholders), minimizing total operation cost, framed as a
// maximum-value assignment problem and solved by internal/assign (spec
// §4.8's optimize step). slots and copies may have different lengths;
// both are padded with no-op placeholders to a common square size.
// Returns, for each slot index, the index into copies it was matched to,
// or -1 if the slot should be satisfied by creating a new copy.
func OptimizeSlotAssignment(slots, copiesAvail []string) []int {
	n := len(slots)
	m := len(copiesAvail)
	size := n
	if m > size {
		size = m
	}
	if size == 0 {
		return nil
	}

	// Build a maximize-value matrix: matching slot i to copy j costs 0
	// if labels are identical or either label is empty (no operation
	// needed), deleteCost+createCost if labels differ (must delete the
	// wrong-label copy and create the right one), deleteCost if i is
	// padding (the real copy j goes unused and must be deleted),
	// createCost if j is padding (no real copy consumed, a fresh one must
	// be created for slot i), 0 for padding-to-padding.
	const bigValue = 1000
	value := make([][]int64, size)
	for i := 0; i < size; i++ {
		value[i] = make([]int64, size)
		for j := 0; j < size; j++ {
			var cost int
			switch {
			case i >= n && j >= m:
				cost = 0
			case i >= n:
				cost = deleteCost
			case j >= m:
				cost = createCost
			case slots[i] == copiesAvail[j] || slots[i] == "" || copiesAvail[j] == "":
				cost = 0
			default:
				cost = createCost + deleteCost
			}
			value[i][j] = bigValue - int64(cost)
		}
	}

	assignment, _ := assign.Solve(value, size)
	result := make([]int, n)
	for i := 0; i < n; i++ {
		j := assignment[i]
		if j >= m {
			result[i] = -1
		} else {
			result[i] = j
		}
	}
	return result
}

// Merge combines two goals slice by slice, taking the label-wise maximum
// after permuting g2's parts within each shared slice type to minimize
// the accumulated label distance to g1's parts (spec §4.8's merge step).
// Used when two goals apply to the same chunk, e.g. an inherited
// directory goal plus an explicit per-file goal.
func Merge(g1, g2 goal.Goal) goal.Goal {
	out := goal.Goal{Name: g1.Name, Slices: map[goal.SliceType]goal.Slice{}}

	seen := map[goal.SliceType]bool{}
	for st, s1 := range g1.Slices {
		seen[st] = true
		s2, ok := g2.Slices[st]
		if !ok {
			out.Slices[st] = s1
			continue
		}
		out.Slices[st] = mergeSlice(s1, s2)
	}
	for st, s2 := range g2.Slices {
		if !seen[st] {
			out.Slices[st] = s2
		}
	}
	return out
}

func mergeSlice(s1, s2 goal.Slice) goal.Slice {
	idx1 := sortedKeys(s1.PartLabels)
	idx2 := sortedKeys(s2.PartLabels)

	n, m := len(idx1), len(idx2)
	size := n
	if m > size {
		size = m
	}
	if size == 0 {
		return goal.Slice{Type: s1.Type, PartLabels: map[int]goal.Labels{}}
	}

	const bigValue = 1 << 20
	value := make([][]int64, size)
	for i := 0; i < size; i++ {
		value[i] = make([]int64, size)
		for j := 0; j < size; j++ {
			var d int
			if i < n && j < m {
				d = goal.Distance(s1.PartLabels[idx1[i]], s2.PartLabels[idx2[j]])
			}
			value[i][j] = bigValue - int64(d)
		}
	}
	assignment, _ := assign.Solve(value, size)

	merged := goal.Slice{Type: s1.Type, PartLabels: map[int]goal.Labels{}}
	for i := 0; i < n; i++ {
		l1 := s1.PartLabels[idx1[i]]
		var l2 goal.Labels
		if j := assignment[i]; j >= 0 && j < m {
			l2 = s2.PartLabels[idx2[j]]
		}
		merged.PartLabels[idx1[i]] = goal.Union(l1, l2)
	}
	return merged
}

func sortedKeys(m map[int]goal.Labels) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
