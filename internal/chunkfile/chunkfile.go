// Package chunkfile implements the two on-disk chunk file layouts a
// chunkserver stores part data in (spec §4.6): the legacy MooseFS layout
// (a fixed signature block, a contiguous CRC table, then raw data
// blocks) and the current interleaved layout (CRC-prefixed data blocks
// back to back, trusting the filename for identity instead of an
// in-file signature).
package chunkfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lizardfs/lizardfs-sub007/internal/chunkname"
	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
	"github.com/lizardfs/lizardfs-sub007/internal/wire"
)

const (
	// SignatureIDSize is the length of the fixed ASCII signature string
	// at the front of every MooseFS-layout chunk file.
	SignatureIDSize = 8
	// MaxSignatureBlockSize is the space reserved for the signature
	// (id + chunk id + version + part type + padding) in a MooseFS file.
	MaxSignatureBlockSize = 1024
	// DiskBlockSize is the typical disk block size non-standard MooseFS
	// headers are rounded up to.
	DiskBlockSize = 4096
	// CRCEntrySize is the size of one per-block CRC32 table entry.
	CRCEntrySize = 4

	crcPlusBlock = CRCEntrySize + parttype.MFSBlockSize
)

var (
	mfsSignatureID  = []byte("MFSC 1.0")
	lizSignatureID0 = []byte("LIZC 1.0")
	lizSignatureID1 = []byte("LIZC 1.1")
)

// ErrBadSignature is returned when a MooseFS-layout file's leading bytes
// don't match any known signature string.
var ErrBadSignature = errors.New("chunkfile: unrecognized signature")

// ErrUnsupportedLayout is returned by operations that only make sense for
// one of the two file layouts, such as asking an interleaved file for its
// CRC table size: the interleaved layout has no contiguous CRC region,
// each block carries its own CRC inline.
var ErrUnsupportedLayout = errors.New("chunkfile: operation unsupported for this layout")

// Layout describes the physical arrangement of a chunk part's bytes.
type Layout struct {
	Type    parttype.Type
	Format  chunkname.Format
	ChunkID uint64
	Version uint32
}

func maxBlocksInFile(t parttype.Type) int { return t.MaxBlocksInFile() }

// HeaderSize returns the number of bytes preceding block data. MooseFS
// standard parts get the signature block plus an exact CRC table; MooseFS
// xor/EC parts get the same, rounded up to DiskBlockSize; interleaved
// files have no separate header at all, each block carries its own CRC.
func (l Layout) HeaderSize() int {
	if l.Format == chunkname.Interleaved {
		return 0
	}
	required := MaxSignatureBlockSize + CRCEntrySize*maxBlocksInFile(l.Type)
	if l.Type.IsStandard() {
		return required
	}
	return ceilToDiskBlock(required)
}

func ceilToDiskBlock(n int) int {
	return (n + DiskBlockSize - 1) / DiskBlockSize * DiskBlockSize
}

// CRCOffset is the byte offset of the CRC table within a MooseFS-layout
// file. Panics if called on an interleaved layout; check Format first.
func (l Layout) CRCOffset() int {
	if l.Format == chunkname.Interleaved {
		panic("chunkfile: CRCOffset undefined for interleaved layout")
	}
	return MaxSignatureBlockSize
}

// CRCBlockSize returns the size in bytes of the CRC table region. Only
// defined for the MooseFS layout (see ErrUnsupportedLayout).
func (l Layout) CRCBlockSize() (int, error) {
	if l.Format == chunkname.Interleaved {
		return 0, ErrUnsupportedLayout
	}
	return CRCEntrySize * maxBlocksInFile(l.Type), nil
}

// DataBlockOffset returns the file offset of the blockNumber-th data
// block (0-indexed).
func (l Layout) DataBlockOffset(blockNumber int) int64 {
	if l.Format == chunkname.Interleaved {
		return int64(blockNumber) * crcPlusBlock
	}
	return int64(l.HeaderSize()) + int64(blockNumber)*parttype.MFSBlockSize
}

// FileSizeFromBlockCount returns the on-disk file size for a part holding
// blockCount data blocks.
func (l Layout) FileSizeFromBlockCount(blockCount int) int64 {
	if l.Format == chunkname.Interleaved {
		return int64(blockCount) * crcPlusBlock
	}
	return int64(l.HeaderSize()) + int64(blockCount)*parttype.MFSBlockSize
}

// IsFileSizeValid reports whether fileSize is a legal on-disk size for
// this layout: it must account for a whole number of blocks (plus header,
// for MooseFS). For MooseFS the block count must also not exceed the
// part's MaxBlocksInFile; the interleaved check does not bound it.
func (l Layout) IsFileSizeValid(fileSize int64) bool {
	if l.Format == chunkname.Interleaved {
		return fileSize%crcPlusBlock == 0
	}
	header := int64(l.HeaderSize())
	if fileSize < header {
		return false
	}
	rem := fileSize - header
	if rem%parttype.MFSBlockSize != 0 {
		return false
	}
	return rem/parttype.MFSBlockSize <= int64(maxBlocksInFile(l.Type))
}

// BlockCountFromFileSize inverts FileSizeFromBlockCount; fileSize must
// already satisfy IsFileSizeValid.
func (l Layout) BlockCountFromFileSize(fileSize int64) int {
	if l.Format == chunkname.Interleaved {
		return int(fileSize / crcPlusBlock)
	}
	return int((fileSize - int64(l.HeaderSize())) / parttype.MFSBlockSize)
}

// Signature is the decoded contents of a MooseFS-layout chunk file's
// leading identity block (spec §4.6 supplement, grounded on the legacy
// ChunkSignature format): a fixed ASCII tag, the chunk id, version, and
// part type. Interleaved files carry no such block; their identity comes
// entirely from the filename (chunkname.Parse).
type Signature struct {
	ChunkID uint64
	Version uint32
	Type    parttype.Type
	// LegacyTypeID records whether the signature used the one-byte
	// legacy type encoding ("MFSC 1.0"/"LIZC 1.0") rather than the
	// current two-byte encoding ("LIZC 1.1").
	LegacyTypeID bool
}

// ReadSignature decodes a signature block read from a MooseFS-layout
// file. It accepts the two legacy signature strings (with a one-byte
// part type) as well as the current one (with a two-byte part type),
// mirroring the chunkserver's backward-compatible signature reader.
func ReadSignature(block []byte) (Signature, error) {
	if len(block) < SignatureIDSize+8+4 {
		return Signature{}, fmt.Errorf("%w: block too short", ErrBadSignature)
	}
	tag := block[:SignatureIDSize]
	rest := block[SignatureIDSize:]

	chunkID := binary.BigEndian.Uint64(rest[:8])
	version := binary.BigEndian.Uint32(rest[8:12])
	body := rest[12:]

	switch {
	case bytes.Equal(tag, mfsSignatureID), bytes.Equal(tag, lizSignatureID0):
		if len(body) < 1 {
			return Signature{}, fmt.Errorf("%w: missing legacy type id", ErrBadSignature)
		}
		t, err := parttype.FromLegacyID(body[0])
		if err != nil {
			return Signature{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return Signature{ChunkID: chunkID, Version: version, Type: t, LegacyTypeID: true}, nil
	case bytes.Equal(tag, lizSignatureID1):
		c := wire.NewCursor(body)
		t, err := parttype.Deserialize(c)
		if err != nil {
			return Signature{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return Signature{ChunkID: chunkID, Version: version, Type: t}, nil
	default:
		return Signature{}, ErrBadSignature
	}
}

// WriteSignature renders a signature block of size MaxSignatureBlockSize,
// always using the current two-byte type encoding ("LIZC 1.1"-equivalent).
func WriteSignature(s Signature) []byte {
	block := make([]byte, MaxSignatureBlockSize)
	copy(block, lizSignatureID1)
	binary.BigEndian.PutUint64(block[SignatureIDSize:], s.ChunkID)
	binary.BigEndian.PutUint32(block[SignatureIDSize+8:], s.Version)
	c := wire.NewCursor(block[SignatureIDSize+12:])
	parttype.Serialize(c, s.Type)
	return block
}
