// Package chunkname implements the on-disk chunk filename grammar and the
// hashed subfolder layout chunkserver storage uses to keep any one
// directory from holding every chunk on a disk (spec §4.5).
package chunkname

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

// Format distinguishes the two on-disk chunk file layouts a chunk's
// filename extension records: the legacy MooseFS block+crc-table layout
// and the current interleaved (crc, block, crc, block, ...) layout.
type Format int

const (
	MooseFS Format = iota
	Interleaved
)

func (f Format) String() string {
	if f == MooseFS {
		return "mfs"
	}
	return "liz"
}

// NumberOfSubfolders is the size of the hashed subfolder space: every
// chunk lives under exactly one of 256 subdirectories per disk.
const NumberOfSubfolders = 256

// CurrentLayout and LegacyLayout select the subfolder hashing scheme.
// CurrentLayout hashes chunkId>>16, matching how ids are handed out
// today; LegacyLayout hashes the raw low byte of chunkId, as produced by
// older chunkservers, and is retained for read compatibility.
const (
	CurrentLayout = 0
	LegacyLayout  = 1
)

var (
	// ErrInvalidFilename covers any chunk filename that doesn't match the
	// grammar at all (missing "chunk_" prefix, bad extension, trailing
	// garbage, wrong digit counts).
	ErrInvalidFilename = errors.New("chunkname: invalid chunk filename")
	// ErrInvalidChunkID is returned when the 16-hex-digit id field fails
	// to parse as an unsigned 64-bit value.
	ErrInvalidChunkID = errors.New("chunkname: invalid chunk id")
	// ErrInvalidChunkVersion is returned when the 8-hex-digit version
	// field fails to parse as an unsigned 32-bit value.
	ErrInvalidChunkVersion = errors.New("chunkname: invalid chunk version")
	// ErrInvalidChunkType is returned when the xor_/xor_parity_of_/ec_
	// segment names a level, part, or (k,m) combination parttype rejects.
	ErrInvalidChunkType = errors.New("chunkname: invalid chunk part type")
)

// Parsed is the result of parsing a chunk filename.
type Parsed struct {
	Format  Format
	Type    parttype.Type
	// Generation is the EC re-encoding generation the part belongs to
	// (spec §4.5's "ec" segment); always 0 for non-EC types.
	Generation uint8
	ChunkID    uint64
	Version    uint32
}

// SubfolderNumber returns the hashed subfolder index in [0, NumberOfSubfolders)
// a chunk with the given id lives under, for the given layout.
func SubfolderNumber(chunkID uint64, layout int) uint32 {
	if layout == CurrentLayout {
		return uint32(chunkID>>16) & 0xFF
	}
	return uint32(chunkID) & 0xFF
}

// SubfolderName renders the subfolder name for a hashed subfolder number:
// "chunks%02X" for the current layout, bare "%02X" for legacy layouts.
func SubfolderName(subfolderNumber uint32, layout int) string {
	if layout == CurrentLayout {
		return fmt.Sprintf("chunks%02X", subfolderNumber)
	}
	return fmt.Sprintf("%02X", subfolderNumber)
}

// SubfolderNameForChunk is SubfolderName(SubfolderNumber(chunkID, layout), layout).
func SubfolderNameForChunk(chunkID uint64, layout int) string {
	return SubfolderName(SubfolderNumber(chunkID, layout), layout)
}

// Generate renders the chunk filename (without directory) for the given
// part type, id, version and on-disk format, e.g.
// "chunk_xor_1_of_3_0000000000000ABC_00000002.liz" or, for the standard
// part, "chunk_0000000000000ABC_00000002.mfs". generation is the EC
// re-encoding generation (spec §4.5's "ec"<generation> segment); it is
// ignored for non-EC types and must be a single decimal digit (0-9).
func Generate(t parttype.Type, generation uint8, chunkID uint64, version uint32, format Format) string {
	var b strings.Builder
	b.WriteString("chunk_")
	switch {
	case t.IsXorParity():
		fmt.Fprintf(&b, "xor_parity_of_%d_", t.GetXorLevel())
	case t.IsXor():
		fmt.Fprintf(&b, "xor_%d_of_%d_", t.GetXorPart(), t.GetXorLevel())
	case t.IsEC():
		k, m, idx := t.ECParams()
		fmt.Fprintf(&b, "ec%d_%d_of_%d_%d_", generation%10, idx+1, k, m)
	}
	fmt.Fprintf(&b, "%016X_%08X", chunkID, version)
	if format == MooseFS {
		b.WriteString(".mfs")
	} else {
		b.WriteString(".liz")
	}
	return b.String()
}

// Parse decodes a chunk filename produced by Generate back into its parts,
// by recursive-descent over the fixed grammar (spec §4.5): an optional
// xor_/xor_parity_of_/ec_ type segment, a 16-hex-digit chunk id, an
// 8-hex-digit version, and a .mfs/.liz extension. Digit counts, leading
// zeros on multi-digit numeric segments, and trailing characters are all
// checked precisely, matching on-disk names byte for byte.
func Parse(name string) (Parsed, error) {
	rest := name
	var ok bool
	rest, ok = cutPrefix(rest, "chunk_")
	if !ok {
		return Parsed{}, ErrInvalidFilename
	}

	t, generation, rest, err := parseType(rest)
	if err != nil {
		return Parsed{}, err
	}

	idStr, rest, ok := cutFixedHex(rest, 16)
	if !ok {
		return Parsed{}, ErrInvalidFilename
	}
	chunkID, err := strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		return Parsed{}, ErrInvalidChunkID
	}

	rest, ok = cutPrefix(rest, "_")
	if !ok {
		return Parsed{}, ErrInvalidFilename
	}

	versionStr, rest, ok := cutFixedHex(rest, 8)
	if !ok {
		return Parsed{}, ErrInvalidFilename
	}
	version64, err := strconv.ParseUint(versionStr, 16, 32)
	if err != nil {
		return Parsed{}, ErrInvalidChunkVersion
	}

	var format Format
	switch rest {
	case ".liz":
		format = Interleaved
	case ".mfs":
		format = MooseFS
	default:
		return Parsed{}, ErrInvalidFilename
	}

	return Parsed{Format: format, Type: t, Generation: generation, ChunkID: chunkID, Version: uint32(version64)}, nil
}

// parseType consumes an optional type segment and returns the parsed type,
// its EC generation digit (0 for non-EC types), and the remaining suffix
// (the chunk id onward).
func parseType(s string) (parttype.Type, uint8, string, error) {
	if rest, ok := cutPrefix(s, "xor_parity_of_"); ok {
		levelStr, rest, ok := cutDecNoLeadingZero(rest, 1, 2)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		level, err := strconv.ParseUint(levelStr, 10, 8)
		if err != nil {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		t, err := parttype.XorParity(uint8(level))
		if err != nil {
			return parttype.Type{}, 0, "", ErrInvalidChunkType
		}
		return t, 0, rest, nil
	}

	if rest, ok := cutPrefix(s, "xor_"); ok {
		partStr, rest, ok := cutDecNoLeadingZero(rest, 1, 2)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_of_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		levelStr, rest, ok := cutDecNoLeadingZero(rest, 1, 2)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		part, err1 := strconv.ParseUint(partStr, 10, 8)
		level, err2 := strconv.ParseUint(levelStr, 10, 8)
		if err1 != nil || err2 != nil {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		t, err := parttype.Xor(uint8(level), uint8(part))
		if err != nil {
			return parttype.Type{}, 0, "", ErrInvalidChunkType
		}
		return t, 0, rest, nil
	}

	if rest, ok := cutPrefix(s, "ec"); ok {
		genStr, rest, ok := cutFixedDec(rest, 1)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		idxStr, rest, ok := cutDecNoLeadingZero(rest, 1, 3)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_of_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		kStr, rest, ok := cutDecNoLeadingZero(rest, 1, 2)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		mStr, rest, ok := cutDecNoLeadingZero(rest, 1, 2)
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		rest, ok = cutPrefix(rest, "_")
		if !ok {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		generation, errGen := strconv.ParseUint(genStr, 10, 8)
		idx1, err1 := strconv.ParseUint(idxStr, 10, 16)
		k, err2 := strconv.ParseUint(kStr, 10, 8)
		m, err3 := strconv.ParseUint(mStr, 10, 8)
		if errGen != nil || err1 != nil || err2 != nil || err3 != nil || idx1 == 0 {
			return parttype.Type{}, 0, "", ErrInvalidFilename
		}
		t, err := parttype.EC(uint8(k), uint8(m), uint8(idx1-1))
		if err != nil {
			return parttype.Type{}, 0, "", ErrInvalidChunkType
		}
		return t, uint8(generation), rest, nil
	}

	return parttype.Standard(), 0, s, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// cutFixedHex consumes exactly n uppercase hex digits.
func cutFixedHex(s string, n int) (string, string, bool) {
	if len(s) < n {
		return "", s, false
	}
	digits := s[:n]
	for _, c := range digits {
		if !isUpperHexDigit(c) {
			return "", s, false
		}
	}
	return digits, s[n:], true
}

// cutFixedDec consumes exactly n decimal digits (leading zeros allowed,
// used for the single-digit EC generation field).
func cutFixedDec(s string, n int) (string, string, bool) {
	if len(s) < n {
		return "", s, false
	}
	digits := s[:n]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", s, false
		}
	}
	return digits, s[n:], true
}

// cutDecNoLeadingZero consumes between min and max decimal digits with no
// leading zero (a bare "0" is rejected, matching the source parser's
// explicit reject-leading-"0" check on xor level/part/ec fields).
func cutDecNoLeadingZero(s string, min, max int) (string, string, bool) {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n < min || n > max {
		return "", s, false
	}
	if s[0] == '0' {
		return "", s, false
	}
	return s[:n], s[n:], true
}

func isUpperHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
