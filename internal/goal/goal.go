// Package goal implements the label and goal algebra the copies
// calculator (internal/copies) is built on (spec §4.9): short-string
// labels with a reserved wildcard, multiset union/distance over label
// sets, and the Goal/Slice structures describing how many copies of each
// chunk part a master wants living at which labels.
//
// Grounded on original_source's goal::Slice/label handling referenced
// throughout src/master/chunk_copies_calculator.cc (kMinXorLevel,
// kMaxXorLevel, the per-(sliceType, partIndex) label multiset shape that
// canRemovePart/getLabelsToRecover operate on).
package goal

import "sort"

// Wildcard is the reserved label meaning "any label is acceptable".
const Wildcard = "_"

// MaxExpectedCopies bounds how many copies of one part a single label
// entry may request (spec §4.9/§4.10's kMaxPartsCount context).
const MaxExpectedCopies = 10

// Labels is a multiset of label -> copy count. The zero value is empty.
type Labels map[string]int

// Total returns the sum of all counts, the number of copies this label
// set asks for in total.
func (l Labels) Total() int {
	n := 0
	for _, c := range l {
		n += c
	}
	return n
}

// Equal reports whether two label multisets hold identical counts.
func (l Labels) Equal(o Labels) bool {
	keys := unionKeys(l, o)
	for _, k := range keys {
		if l[k] != o[k] {
			return false
		}
	}
	return true
}

// SortedLabels returns the distinct label names in alphabetical order
// for display, with the wildcard always last.
func (l Labels) SortedLabels() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		if k != Wildcard {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := l[Wildcard]; ok {
		keys = append(keys, Wildcard)
	}
	return keys
}

// Union combines two label requirement sets: for each label, the result
// asks for max(a[l], b[l]) copies, i.e. the stronger of the two
// requirements wins; it never asks for fewer copies at a label than
// either input did (§4.9 Open Question: resolved as a per-label max,
// since labelsUnion feeds goal merging, where the result must satisfy
// both of the merged goals).
func Union(a, b Labels) Labels {
	out := Labels{}
	for _, k := range unionKeys(a, b) {
		out[k] = max(a[k], b[k])
	}
	return out
}

// Distance is the 1-norm distance between two label requirement sets,
// treating a missing label as count 0.
func Distance(a, b Labels) int {
	d := 0
	for _, k := range unionKeys(a, b) {
		diff := a[k] - b[k]
		if diff < 0 {
			diff = -diff
		}
		d += diff
	}
	return d
}

func unionKeys(a, b Labels) []string {
	seen := map[string]bool{}
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SliceKind identifies the family of a slice within a goal, independent
// of any specific part index.
type SliceKind int

const (
	KindStandard SliceKind = iota
	KindXor
	KindEC
)

// SliceType identifies one slice within a Goal: the standard family, an
// xor family at a given level, or an EC family at given (k, m).
type SliceType struct {
	Kind  SliceKind
	Level uint8 // xor level
	K, M  uint8 // ec params
}

// Standard is the slice type for full-replica copies.
func Standard() SliceType { return SliceType{Kind: KindStandard} }

// Xor is the slice type for an xor-level-L slice (L data parts + 1 parity).
func Xor(level uint8) SliceType { return SliceType{Kind: KindXor, Level: level} }

// EC is the slice type for a Reed-Solomon (k data, m parity) slice.
func EC(k, m uint8) SliceType { return SliceType{Kind: KindEC, K: k, M: m} }

// NumberOfParts returns how many distinct parts (including parity) this
// slice type is composed of.
func (s SliceType) NumberOfParts() int {
	switch s.Kind {
	case KindStandard:
		return 1
	case KindXor:
		return int(s.Level) + 1
	case KindEC:
		return int(s.K) + int(s.M)
	}
	return 0
}

// Slice is one slice within a Goal: for each part index (0 for standard;
// 0=parity/1..L=data for xor; 0..k-1=data/k..k+m-1=parity for EC) the
// labels that part is expected to live at.
type Slice struct {
	Type       SliceType
	PartLabels map[int]Labels
}

// Goal is the full set of slices a master wants maintained for a chunk.
type Goal struct {
	Name   string
	Slices map[SliceType]Slice
}

// New returns an empty, named Goal.
func New(name string) Goal {
	return Goal{Name: name, Slices: map[SliceType]Slice{}}
}

// Equal reports whether two goals describe identical slice/label
// requirements (Name is informational and not compared).
func (g Goal) Equal(o Goal) bool {
	if len(g.Slices) != len(o.Slices) {
		return false
	}
	for k, s := range g.Slices {
		os, ok := o.Slices[k]
		if !ok || len(s.PartLabels) != len(os.PartLabels) {
			return false
		}
		for idx, labels := range s.PartLabels {
			if !labels.Equal(os.PartLabels[idx]) {
				return false
			}
		}
	}
	return true
}
