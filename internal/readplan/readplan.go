// Package readplan implements the chunk read planner (spec §4.7): given
// the chunk parts a client can see, a byte range, and per-part scores, it
// decides which parts to read, in how many waves, and how to reconstruct
// the requested bytes through XOR/Reed-Solomon post-processing when no
// single part holds the data outright.
//
// Grounded on original_source/src/common/chunk_read_planner.h's ladder
// (full data-part set > standard replica > parity-aided recovery >
// unreadable) and its chunk-block-space wrapper around a part-index-space
// planner. The multi-variant wave-speculation planner the source scaffolds
// (`multiVariantReadPlanner`) is not ported: BuildPlan puts exactly the
// parts the chosen ladder step needs into wave 0 and leaves Plan.Additional
// empty. BandwidthOveruse is stored on the Planner but not consulted, and
// part scores are used only to break ties between complete slices.
package readplan

import (
	"errors"
	"sort"

	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

// ErrNotRecoverable is returned when no ladder step can satisfy the
// requested range from the available parts.
var ErrNotRecoverable = errors.New("readplan: chunk not recoverable for requested range")

// PartInfo describes one chunk part a client knows the location of.
type PartInfo struct {
	Type    parttype.Type
	Address string
	Score   float64
}

// Operation is one read against a single part's file.
type Operation struct {
	RequestOffset int64
	RequestSize   int64
	BufferOffset  int64
	Wave          int
}

// PostOpKind identifies a post-processing transform.
type PostOpKind int

const (
	// CopyInterleave copies a data-part's contiguous bytes into their
	// strided position in the client's output buffer.
	CopyInterleave PostOpKind = iota
	// XorRecover reconstructs a missing xor data part by XORing the
	// parity block against the other present data blocks, in place.
	XorRecover
	// RSRecover reconstructs missing EC strips via a Cauchy-matrix
	// inverse over GF(2^8) (see rs.go).
	RSRecover
)

// PostOp is one post-processing step; OutputBytes is the number of bytes
// it writes into the client buffer, for ordering/validation purposes.
//
// Execution works over a slot-index space shared by a PostOp and the ones
// after it: data parts occupy slots 0..DataParts-1 and parity parts occupy
// slots DataParts..DataParts+ParityCount-1. XorRecover/RSRecover read the
// slots named by Sources/SourceIndices (fetching any not already produced
// by an earlier PostOp) and write the reconstructed stripes into the slots
// named by MissingIndices. The terminal CopyInterleave step reads slots
// 0..DataParts-1 (seeding any not already present from Sources/SourceIndices)
// and interleaves them into the client's output buffer.
type PostOp struct {
	Kind        PostOpKind
	OutputBytes int64
	// Sources names which parts this step reads, parallel to SourceIndices.
	Sources []parttype.Type
	// SourceIndices gives each Sources entry's slot index.
	SourceIndices []int
	// MissingIndices names the data-slot indices XorRecover/RSRecover must
	// reconstruct; unused for CopyInterleave.
	MissingIndices []int
	// DataParts is the number of data slots in the slice (k for EC, L for
	// xor, 1 for standard).
	DataParts int
	// ParityCount is the number of parity slots (m for EC, 1 for xor).
	ParityCount int
	// BlockSize is the length in bytes of each slot's stripe as fetched
	// for this plan (a whole number of MFS blocks).
	BlockSize int64
	// PartFirstBlock is the part-local block index the fetched stripe
	// starts at, used by CopyInterleave to align global chunk-block
	// numbering back to stripe-local offsets.
	PartFirstBlock int64
	// SliceOffset and SliceSize are the client's original requested byte
	// range, used by CopyInterleave to clip the reconstructed slice down
	// to exactly what was asked for.
	SliceOffset int64
	SliceSize   int64
}

// Plan is what the client executes to satisfy one read request.
type Plan struct {
	ReadBufferSize int64
	Basic          map[parttype.Type]Operation
	Additional     map[parttype.Type]Operation
	PostProcessing []PostOp
}

// ladderStep records which strategy produced a plan, for tests and logs.
type ladderStep int

const (
	stepFullSliceParts ladderStep = iota + 1
	stepStandard
	stepParityRecover
)

// Planner holds the state of one in-progress plan construction. It is not
// safe for concurrent use by multiple goroutines; callers build one plan
// per logical read request, mirroring the source's "pure planner, all
// state lives in the returned ReadPlan" design (spec §5).
type Planner struct {
	BandwidthOveruse float64

	avoided map[parttype.Type]bool

	offset, size int64
	chosen       ladderStep
	parts        []PartInfo // the parts this plan reads from, in chosen order
	sliceLevel   int        // L for xor, k for EC, 1 for standard
	firstPart    int        // 0-indexed first data part consumed (xor/EC only)

	// parityRecover-only bookkeeping: the slot indices of p.parts' data
	// portion, its parity portion, and the data slots missing entirely
	// (stepParityRecover only; p.parts only lists present parts, not
	// placeholders for missing ones).
	presentDataIdx   []int
	presentParityIdx []int
	missingDataIdx   []int
	parityCount      int
}

// NewPlanner returns a Planner with the given bandwidth-overuse policy
// parameter (must be >= 1.0).
func NewPlanner(bandwidthOveruse float64) *Planner {
	if bandwidthOveruse < 1.0 {
		bandwidthOveruse = 1.0
	}
	return &Planner{BandwidthOveruse: bandwidthOveruse, avoided: make(map[parttype.Type]bool)}
}

// StartAvoidingPart durably removes t from candidacy in every later Prepare
// call on this Planner. BuildPlan emits no failover waves, so an avoided
// part is not read at all.
func (p *Planner) StartAvoidingPart(t parttype.Type) {
	p.avoided[t] = true
}

// candidateGroup bundles the parts of one slice type (standard, or one
// xor/EC generation) present in availableParts.
type candidateGroup struct {
	isStandard    bool
	isXor         bool
	level         int // L for xor, k for EC
	m             int // parity count for EC (1 for xor)
	dataParts     map[int]PartInfo
	parityParts   map[int]PartInfo // EC parity index -> part, or xor parity at key 0
}

// Prepare runs the strategy ladder against availableParts for the byte
// range [offset, offset+size) and records the winning plan shape. It
// returns false if no ladder step applies (caller should treat this as
// ErrNotRecoverable).
func (p *Planner) Prepare(availableParts []PartInfo, offset, size int64) bool {
	p.offset, p.size = offset, size
	groups := groupBySlice(availableParts, p.avoided)

	// Step 1: full data-part set for some slice type; prefer the
	// highest level (most parts = most bandwidth-efficient per byte),
	// breaking ties by total score.
	var best *candidateGroup
	var bestParts []PartInfo
	for i := range groups {
		g := &groups[i]
		dataCount := g.level
		if g.isStandard {
			dataCount = 1
		}
		if len(g.dataParts) != dataCount {
			continue
		}
		if best == nil || g.level > best.level || (g.level == best.level && groupScore(*g) > groupScore(*best)) {
			best = g
			bestParts = collectParts(g.dataParts, nil)
		}
	}
	if best != nil && !best.isStandard {
		p.chosen = stepFullSliceParts
		p.parts = bestParts
		p.sliceLevel = best.level
		p.firstPart = minKey(best.dataParts)
		return true
	}

	// Step 2: standard replica.
	for i := range groups {
		g := &groups[i]
		if g.isStandard && len(g.dataParts) >= 1 {
			p.chosen = stepStandard
			p.parts = collectParts(g.dataParts, nil)
			p.sliceLevel = 1
			p.firstPart = 0
			return true
		}
	}
	if best != nil && best.isStandard {
		p.chosen = stepStandard
		p.parts = bestParts
		p.sliceLevel = 1
		return true
	}

	// Step 3: parity-aided recovery: L-1 of L xor data parts plus
	// parity, or k of k+m EC strips.
	type recoverCandidate struct {
		g         *candidateGroup
		haveCount int
	}
	var rc *recoverCandidate
	for i := range groups {
		g := &groups[i]
		required := g.level
		have := len(g.dataParts)
		haveParity := len(g.parityParts) > 0
		missing := required - have
		if !haveParity || missing < 1 {
			continue
		}
		if g.isXor {
			if missing != 1 {
				continue
			}
		} else {
			// EC: any number of missing data parts recoverable as
			// long as total available strips (data+parity) >= k.
			if have+len(g.parityParts) < required {
				continue
			}
		}
		if rc == nil || have > rc.haveCount {
			rc = &recoverCandidate{g: g, haveCount: have}
		}
	}
	if rc != nil {
		p.chosen = stepParityRecover
		p.parts = append(collectParts(rc.g.dataParts, nil), collectParts(rc.g.parityParts, nil)...)
		p.sliceLevel = rc.g.level
		p.firstPart = 0
		p.parityCount = rc.g.m
		if rc.g.isXor {
			p.parityCount = 1
		}
		p.presentDataIdx = sortedKeys(rc.g.dataParts)
		p.presentParityIdx = sortedKeys(rc.g.parityParts)
		present := map[int]bool{}
		for _, i := range p.presentDataIdx {
			present[i] = true
		}
		for i := 0; i < rc.g.level; i++ {
			if !present[i] {
				p.missingDataIdx = append(p.missingDataIdx, i)
			}
		}
		return true
	}

	return false
}

func groupScore(g candidateGroup) float64 {
	var sum float64
	for _, pi := range g.dataParts {
		sum += pi.Score
	}
	return sum
}

func minKey(m map[int]PartInfo) int {
	first := true
	var min int
	for k := range m {
		if first || k < min {
			min = k
			first = false
		}
	}
	return min
}

func sortedKeys(m map[int]PartInfo) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func collectParts(m map[int]PartInfo, out []PartInfo) []PartInfo {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// groupBySlice buckets available parts (minus avoided ones) by slice
// type (standard forms its own bucket; each distinct xor level and each
// distinct EC (k,m) forms its own bucket).
func groupBySlice(available []PartInfo, avoided map[parttype.Type]bool) []candidateGroup {
	type key struct {
		standard      bool
		xor           bool
		level, m      int
	}
	groups := map[key]*candidateGroup{}
	order := []key{}

	for _, pi := range available {
		if avoided[pi.Type] {
			continue
		}
		var k key
		switch {
		case pi.Type.IsStandard():
			k = key{standard: true}
		case pi.Type.IsXor():
			k = key{xor: true, level: int(pi.Type.GetXorLevel())}
		case pi.Type.IsXorParity():
			k = key{xor: true, level: int(pi.Type.GetXorLevel())}
		case pi.Type.IsEC():
			kk, mm, _ := pi.Type.ECParams()
			k = key{level: int(kk), m: int(mm)}
		default:
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &candidateGroup{
				isStandard:  k.standard,
				isXor:       k.xor,
				level:       k.level,
				m:           k.m,
				dataParts:   map[int]PartInfo{},
				parityParts: map[int]PartInfo{},
			}
			if k.standard {
				g.level = 1
			}
			groups[k] = g
			order = append(order, k)
		}
		switch {
		case pi.Type.IsStandard():
			g.dataParts[0] = pi
		case pi.Type.IsXor():
			g.dataParts[int(pi.Type.GetXorPart())-1] = pi
		case pi.Type.IsXorParity():
			g.parityParts[0] = pi
		case pi.Type.IsEC():
			_, _, idx := pi.Type.ECParams()
			kk, _, _ := pi.Type.ECParams()
			if int(idx) < int(kk) {
				g.dataParts[int(idx)] = pi
			} else {
				g.parityParts[int(idx)-int(kk)] = pi
			}
		}
	}

	result := make([]candidateGroup, 0, len(order))
	for _, k := range order {
		result = append(result, *groups[k])
	}
	return result
}

// IsReadingPossible reports whether the most recent Prepare call found a
// satisfiable ladder step.
func (p *Planner) IsReadingPossible() bool { return p.chosen != 0 }

// BuildPlan renders the Plan chosen by the most recent successful Prepare
// call. Each direct-read ladder step (1, 2) produces one Operation per
// required part in wave 0; the parity-aided step additionally emits a
// post-processing XorRecover/RSRecover step.
func (p *Planner) BuildPlan() (*Plan, error) {
	if p.chosen == 0 {
		return nil, ErrNotRecoverable
	}

	plan := &Plan{
		ReadBufferSize: p.size,
		Basic:          map[parttype.Type]Operation{},
		Additional:     map[parttype.Type]Operation{},
	}

	switch p.chosen {
	case stepStandard:
		plan.Basic[p.parts[0].Type] = Operation{
			RequestOffset: p.offset,
			RequestSize:   p.size,
			BufferOffset:  0,
			Wave:          0,
		}
		return plan, nil

	case stepFullSliceParts:
		dataParts := p.sliceLevel
		firstBlock := p.offset / parttype.MFSBlockSize
		lastBlock := (p.offset + p.size - 1) / parttype.MFSBlockSize
		partFirstBlock := int64(firstBlock) / int64(dataParts)
		partLastBlock := int64(lastBlock) / int64(dataParts)
		partBlockCount := partLastBlock - partFirstBlock + 1

		for i, pi := range p.parts {
			plan.Basic[pi.Type] = Operation{
				RequestOffset: partFirstBlock * parttype.MFSBlockSize,
				RequestSize:   partBlockCount * parttype.MFSBlockSize,
				BufferOffset:  int64(i) * partBlockCount * parttype.MFSBlockSize,
				Wave:          0,
			}
		}
		plan.ReadBufferSize = int64(len(p.parts)) * partBlockCount * parttype.MFSBlockSize
		sourceIndices := make([]int, len(p.parts))
		for i := range p.parts {
			sourceIndices[i] = i
		}
		plan.PostProcessing = append(plan.PostProcessing, PostOp{
			Kind:           CopyInterleave,
			OutputBytes:    p.size,
			Sources:        partTypes(p.parts),
			SourceIndices:  sourceIndices,
			DataParts:      dataParts,
			BlockSize:      partBlockCount * parttype.MFSBlockSize,
			PartFirstBlock: partFirstBlock,
			SliceOffset:    p.offset,
			SliceSize:      p.size,
		})
		return plan, nil

	case stepParityRecover:
		dataParts := p.sliceLevel
		firstBlock := p.offset / parttype.MFSBlockSize
		lastBlock := (p.offset + p.size - 1) / parttype.MFSBlockSize
		partFirstBlock := int64(firstBlock) / int64(dataParts)
		partLastBlock := int64(lastBlock) / int64(dataParts)
		partBlockCount := partLastBlock - partFirstBlock + 1

		for i, pi := range p.parts {
			plan.Basic[pi.Type] = Operation{
				RequestOffset: partFirstBlock * parttype.MFSBlockSize,
				RequestSize:   partBlockCount * parttype.MFSBlockSize,
				BufferOffset:  int64(i) * partBlockCount * parttype.MFSBlockSize,
				Wave:          0,
			}
		}
		kind := XorRecover
		if p.parts[0].Type.IsEC() {
			kind = RSRecover
		}

		sourceIndices := make([]int, len(p.parts))
		for i := range p.presentDataIdx {
			sourceIndices[i] = p.presentDataIdx[i]
		}
		for i, parityIdx := range p.presentParityIdx {
			sourceIndices[len(p.presentDataIdx)+i] = dataParts + parityIdx
		}

		plan.PostProcessing = append(plan.PostProcessing, PostOp{
			Kind:           kind,
			OutputBytes:    partBlockCount * parttype.MFSBlockSize,
			Sources:        partTypes(p.parts),
			SourceIndices:  sourceIndices,
			MissingIndices: append([]int(nil), p.missingDataIdx...),
			DataParts:      dataParts,
			ParityCount:    p.parityCount,
			BlockSize:      partBlockCount * parttype.MFSBlockSize,
		})
		plan.PostProcessing = append(plan.PostProcessing, PostOp{
			Kind:           CopyInterleave,
			OutputBytes:    p.size,
			DataParts:      dataParts,
			ParityCount:    p.parityCount,
			BlockSize:      partBlockCount * parttype.MFSBlockSize,
			PartFirstBlock: partFirstBlock,
			SliceOffset:    p.offset,
			SliceSize:      p.size,
		})
		plan.ReadBufferSize = int64(len(p.parts)) * partBlockCount * parttype.MFSBlockSize
		return plan, nil
	}

	return nil, ErrNotRecoverable
}

func partTypes(parts []PartInfo) []parttype.Type {
	out := make([]parttype.Type, len(parts))
	for i, pi := range parts {
		out[i] = pi.Type
	}
	return out
}

// IsFinishingPossible reports whether the chosen plan can still complete
// given that the parts in failedSoFar have failed: true unless one of the
// parts the chosen ladder step depends on is in that set.
func (p *Planner) IsFinishingPossible(failedSoFar []parttype.Type) bool {
	failed := map[parttype.Type]bool{}
	for _, t := range failedSoFar {
		failed[t] = true
	}
	for _, pi := range p.parts {
		if failed[pi.Type] {
			return false
		}
	}
	return true
}

// IsReadingFinished reports whether the union of received parts suffices
// to complete the chosen plan.
func (p *Planner) IsReadingFinished(receivedSoFar []parttype.Type) bool {
	received := map[parttype.Type]bool{}
	for _, t := range receivedSoFar {
		received[t] = true
	}
	for _, pi := range p.parts {
		if !received[pi.Type] {
			return false
		}
	}
	return true
}
