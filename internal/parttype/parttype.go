// Package parttype implements the chunk-part identity and trait system
// (spec §3, §4.4): a compact identifier space for the standard, xor,
// xor-parity and EC part families, plus the predicates and block-layout
// math every other component in this module builds on.
package parttype

import (
	"errors"
	"fmt"

	"github.com/lizardfs/lizardfs-sub007/internal/wire"
)

const (
	// MFSBlocksInChunk is the number of MFSBLOCKSIZE blocks in a standard chunk.
	MFSBlocksInChunk = 1024
	// MFSBlockSize is the size in bytes of one block.
	MFSBlockSize = 65536

	minXorLevel = 2
	maxXorLevel = 9

	xorParityPart = 0

	legacyBase = 1
	ecBase     = 1000
)

var (
	// ErrUnknownID is returned when an id does not correspond to any valid
	// ChunkPartType; the Go analog of the source's IncorrectDeserialization
	// for an unrecognized chunkTypeId.
	ErrUnknownID = errors.New("parttype: unknown chunk part type id")
	// ErrInvalidXor is returned by constructors given an out-of-range level/part.
	ErrInvalidXor = errors.New("parttype: invalid xor level/part")
	// ErrInvalidEC is returned by constructors given invalid k/m/idx.
	ErrInvalidEC = errors.New("parttype: invalid ec k/m/idx")
)

// family identifies which of the four part families a Type belongs to.
type family uint8

const (
	famStandard family = iota
	famXor
	famXorParity
	famEC
)

// Type is a compact identifier for one of: a full replica (standard), an
// xor data stripe, an xor parity stripe, or an EC data/parity strip (spec §3).
// The zero value is the standard type.
type Type struct {
	fam   family
	level uint8 // xor: level L (2..9)
	part  uint8 // xor: part P (1..L), 0 reserved for parity
	k, m  uint8 // ec
	idx   uint8 // ec: 0 <= idx < k+m
}

// Standard returns the full-replica part type.
func Standard() Type { return Type{fam: famStandard} }

// Xor returns the data stripe at position part (1-indexed) of an xor-level-L slice.
func Xor(level, part uint8) (Type, error) {
	if level < minXorLevel || level > maxXorLevel || part < 1 || part > level {
		return Type{}, ErrInvalidXor
	}
	return Type{fam: famXor, level: level, part: part}, nil
}

// XorParity returns the parity strip of an xor-level-L slice.
func XorParity(level uint8) (Type, error) {
	if level < minXorLevel || level > maxXorLevel {
		return Type{}, ErrInvalidXor
	}
	return Type{fam: famXorParity, level: level}, nil
}

// EC returns the strip at idx of a Reed-Solomon (k data, m parity) group.
// idx < k is a data strip, idx >= k is a parity strip.
func EC(k, m, idx uint8) (Type, error) {
	if k < 1 || m < 1 || idx >= k+m {
		return Type{}, ErrInvalidEC
	}
	return Type{fam: famEC, k: k, m: m, idx: idx}, nil
}

func (t Type) IsStandard() bool  { return t.fam == famStandard }
func (t Type) IsXor() bool       { return t.fam == famXor }
func (t Type) IsXorParity() bool { return t.fam == famXorParity }
func (t Type) IsEC() bool        { return t.fam == famEC }

// GetXorLevel returns the xor level. Only valid when IsXor() or IsXorParity().
func (t Type) GetXorLevel() uint8 { return t.level }

// GetXorPart returns the 1-indexed data part. Only valid when IsXor().
func (t Type) GetXorPart() uint8 { return t.part }

// ECParams returns (k, m, idx). Only valid when IsEC().
func (t Type) ECParams() (k, m, idx uint8) { return t.k, t.m, t.idx }

// GetNumberOfDataParts returns 1 for standard, L for xor (including parity
// slice membership), or k for EC (spec §4.4).
func (t Type) GetNumberOfDataParts() int {
	switch t.fam {
	case famStandard:
		return 1
	case famXor, famXorParity:
		return int(t.level)
	case famEC:
		return int(t.k)
	}
	return 0
}

// RequiredPartsToRecover is the number of distinct strips needed to
// reconstruct the logical data: 1 for standard, L for xor, k for EC.
func (t Type) RequiredPartsToRecover() int {
	return t.GetNumberOfDataParts()
}

// MaxBlocksInFile returns ceil(MFSBlocksInChunk / dataParts) for xor/EC
// parts, or MFSBlocksInChunk for standard.
func (t Type) MaxBlocksInFile() int {
	if t.IsStandard() {
		return MFSBlocksInChunk
	}
	n := t.GetNumberOfDataParts()
	return ceilDiv(MFSBlocksInChunk, n)
}

// GetNumberOfBlocks derives the number of MFSBLOCKSIZE blocks this part
// stores for a chunk of logical length chunkLen (spec §4.4). Data parts at
// position p of L own chunk blocks b where b mod L + 1 == p; the parity
// part (and EC parity strips) own as many blocks as the largest data part.
func (t Type) GetNumberOfBlocks(chunkLen uint64) int {
	chunkBlocks := int(ceilDiv64(chunkLen, MFSBlockSize))
	if chunkBlocks > MFSBlocksInChunk {
		chunkBlocks = MFSBlocksInChunk
	}

	switch t.fam {
	case famStandard:
		return chunkBlocks
	case famXor:
		return blocksOwnedByDataPart(chunkBlocks, int(t.level), int(t.part))
	case famXorParity:
		return blocksOwnedByParity(chunkBlocks, int(t.level))
	case famEC:
		if int(t.idx) < int(t.k) {
			return blocksOwnedByDataPart(chunkBlocks, int(t.k), int(t.idx)+1)
		}
		return blocksOwnedByParity(chunkBlocks, int(t.k))
	}
	return 0
}

// blocksOwnedByDataPart counts chunk blocks b (0-indexed) in [0, chunkBlocks)
// such that b%dataParts+1 == part (part is 1-indexed).
func blocksOwnedByDataPart(chunkBlocks, dataParts, part int) int {
	if dataParts <= 0 {
		return 0
	}
	full := chunkBlocks / dataParts
	rem := chunkBlocks % dataParts
	if part <= rem {
		return full + 1
	}
	return full
}

// blocksOwnedByParity returns the block count of the largest data part,
// i.e. ceil(chunkBlocks/dataParts): the parity part is as long as the
// longest data stripe it protects.
func blocksOwnedByParity(chunkBlocks, dataParts int) int {
	return ceilDiv(chunkBlocks, dataParts)
}

// ChunkLengthToPartLength returns the number of logical bytes this part
// contributes to a logical chunk of length chunkLen (spec §4.4, invariant 2).
// Chunk blocks are striped round-robin across data parts in global block
// order, so only the part owning the final (possibly partial) chunk block
// carries a partial tail; every other part's owned blocks are full-sized.
func (t Type) ChunkLengthToPartLength(chunkLen uint64) uint64 {
	if t.IsStandard() {
		return chunkLen
	}
	chunkBlocks := int(ceilDiv64(chunkLen, MFSBlockSize))
	if chunkBlocks > MFSBlocksInChunk {
		chunkBlocks = MFSBlocksInChunk
	}
	if chunkBlocks == 0 {
		return 0
	}
	blocks := t.GetNumberOfBlocks(chunkLen)
	if blocks == 0 {
		return 0
	}
	if !t.ownsFinalChunkBlock(chunkBlocks) {
		return uint64(blocks) * MFSBlockSize
	}
	lastBlockLen := chunkLen - uint64(chunkBlocks-1)*MFSBlockSize
	return uint64(blocks-1)*MFSBlockSize + lastBlockLen
}

// ownsFinalChunkBlock reports whether this part owns the final global
// chunk block (index chunkBlocks-1), and therefore carries the tail that
// may be shorter than a full block. Parity strips always own it: their
// last row spans whichever data parts contributed to the final group,
// which by construction includes the final global block.
func (t Type) ownsFinalChunkBlock(chunkBlocks int) bool {
	switch t.fam {
	case famXor:
		return (chunkBlocks-1)%int(t.level)+1 == int(t.part)
	case famXorParity:
		return true
	case famEC:
		if int(t.idx) < int(t.k) {
			return (chunkBlocks-1)%int(t.k)+1 == int(t.idx)+1
		}
		return true
	}
	return false
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func ceilDiv64(a uint64, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// id encodes Type into the compact 16-bit wire id space (spec §4.4): 0 for
// standard; the legacy one-byte xor encoding level*(maxXorLevel+1)+part
// (part=0 reserved for parity) for xor/xor-parity, reused verbatim so
// legacy on-disk signatures round-trip; and a disjoint range above ecBase
// for EC strips.
func (t Type) id() uint16 {
	switch t.fam {
	case famStandard:
		return 0
	case famXor:
		return uint16(legacyBase) + uint16(t.level)*(maxXorLevel+1) + uint16(t.part) - legacyBase
	case famXorParity:
		return uint16(t.level)*(maxXorLevel+1) + xorParityPart
	case famEC:
		return uint16(ecBase) + uint16(t.k)*1024 + uint16(t.m)*32 + uint16(t.idx)
	}
	return 0
}

func fromID(id uint16) (Type, error) {
	if id == 0 {
		return Standard(), nil
	}
	if id < ecBase {
		level := id / (maxXorLevel + 1)
		part := id % (maxXorLevel + 1)
		if level < minXorLevel || level > maxXorLevel {
			return Type{}, ErrUnknownID
		}
		if part == xorParityPart {
			return XorParity(uint8(level))
		}
		if part > uint16(level) {
			return Type{}, ErrUnknownID
		}
		return Xor(uint8(level), uint8(part))
	}
	rest := id - ecBase
	k := rest / 1024
	m := (rest % 1024) / 32
	idx := rest % 32
	return EC(uint8(k), uint8(m), uint8(idx))
}

// SerializedSize returns the wire size of a Type: always 2 bytes (u16 id).
func SerializedSize(Type) int { return 2 }

// Serialize writes the 2-byte wire id into c.
func Serialize(c *wire.Cursor, t Type) {
	c.PutU16(t.id())
}

// Deserialize reads a 2-byte wire id from c and resolves it to a Type,
// failing with wire.ErrIncorrectDeserialization if the id is unknown.
func Deserialize(c *wire.Cursor) (Type, error) {
	id, err := c.GetU16()
	if err != nil {
		return Type{}, err
	}
	t, err := fromID(id)
	if err != nil {
		return Type{}, fmt.Errorf("%w: id=%d", wire.ErrIncorrectDeserialization, id)
	}
	return t, nil
}

// LegacyID returns the one-byte legacy wire id for xor/xor-parity/standard
// types, as used by the legacy on-disk signature formats ("MFSC 1.0",
// "LIZC 1.0"). EC types have no legacy representation.
func (t Type) LegacyID() (uint8, bool) {
	if t.fam == famEC {
		return 0, false
	}
	return uint8(t.id()), true
}

// FromLegacyID resolves a one-byte legacy wire id back to a Type.
func FromLegacyID(id uint8) (Type, error) {
	return fromID(uint16(id))
}

// String renders a human-readable form, e.g. "standard", "xor(3,1)",
// "xor-parity(3)", "ec(6,3,2)".
func (t Type) String() string {
	switch t.fam {
	case famStandard:
		return "standard"
	case famXor:
		return fmt.Sprintf("xor(%d,%d)", t.level, t.part)
	case famXorParity:
		return fmt.Sprintf("xor-parity(%d)", t.level)
	case famEC:
		return fmt.Sprintf("ec(%d,%d,%d)", t.k, t.m, t.idx)
	}
	return "unknown"
}

// Equal reports whether two Types identify the same part.
func (t Type) Equal(o Type) bool { return t.id() == o.id() }
