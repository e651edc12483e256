package chunkfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lizardfs/lizardfs-sub007/internal/chunkname"
	"github.com/lizardfs/lizardfs-sub007/internal/crc32x"
	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

// ErrCRCMismatch is returned by ReadBlock when a block's stored CRC
// doesn't match the CRC of the bytes actually read off disk.
var ErrCRCMismatch = errors.New("chunkfile: block CRC mismatch")

// ErrSignatureMismatch is returned by VerifySignature when the on-disk
// signature parses fine but names a different chunk id, version, or type
// than expected.
var ErrSignatureMismatch = errors.New("chunkfile: signature does not match expected chunk identity")

// File is an open handle to a single chunk part on disk, implementing the
// operations table of spec §4.6 on top of Layout's pure offset math and
// crc32x's checksum primitives. It is not safe for concurrent use by
// multiple goroutines; callers serialize writes per chunk (spec §5).
type File struct {
	f      *os.File
	path   string
	layout Layout
}

// Create opens a brand new chunk part file at path, failing if one already
// exists, and writes the MooseFS signature block when the layout calls for
// one. The interleaved layout has no header to write.
func Create(path string, layout Layout) (*File, error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chunkfile: create %s: %w", path, err)
	}
	cf := &File{f: f, path: path, layout: layout}
	if layout.Format == chunkname.MooseFS {
		sig := WriteSignature(Signature{ChunkID: layout.ChunkID, Version: layout.Version, Type: layout.Type})
		if _, err := f.WriteAt(sig, 0); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("chunkfile: create %s: writing signature: %w", path, err)
		}
		if err := f.Truncate(int64(layout.HeaderSize())); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("chunkfile: create %s: reserving header: %w", path, err)
		}
	}
	return cf, nil
}

// Open opens an existing chunk part file for reading and writing.
func Open(path string, layout Layout) (*File, error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chunkfile: open %s: %w", path, err)
	}
	return &File{f: f, path: path, layout: layout}, nil
}

// Close releases the underlying file descriptor.
func (cf *File) Close() error {
	return cf.f.Close()
}

// Path is the file's current on-disk path (updated by RenameForNewVersion).
func (cf *File) Path() string {
	return cf.path
}

// Layout is the part's current on-disk layout.
func (cf *File) Layout() Layout {
	return cf.layout
}

// VerifySignature checks the file's on-disk identity against the expected
// chunk id, version, and part type. Interleaved-layout files carry no
// in-file signature by design (their identity is the filename, already
// checked by the caller via chunkname.Parse), so this is a no-op for them.
func (cf *File) VerifySignature(expected Signature) error {
	if cf.layout.Format == chunkname.Interleaved {
		return nil
	}
	block := make([]byte, MaxSignatureBlockSize)
	if _, err := cf.f.ReadAt(block, 0); err != nil {
		return fmt.Errorf("chunkfile: verify signature: %w", err)
	}
	got, err := ReadSignature(block)
	if err != nil {
		return err
	}
	if got.ChunkID != expected.ChunkID || got.Version != expected.Version || !got.Type.Equal(expected.Type) {
		return fmt.Errorf("%w: got %+v, want %+v", ErrSignatureMismatch, got, expected)
	}
	return nil
}

// ReadBlock reads the blockNumber-th data block and its stored CRC,
// returning ErrCRCMismatch if the bytes on disk don't hash to the stored
// value. size is the number of data bytes expected (MFSBLOCKSIZE for every
// block but possibly the chunk's last).
func (cf *File) ReadBlock(blockNumber int, size int) ([]byte, uint32, error) {
	data := make([]byte, size)
	var storedCRC uint32

	if cf.layout.Format == chunkname.Interleaved {
		header := make([]byte, CRCEntrySize)
		off := cf.layout.DataBlockOffset(blockNumber)
		if _, err := cf.f.ReadAt(header, off); err != nil {
			return nil, 0, fmt.Errorf("chunkfile: read block %d: %w", blockNumber, err)
		}
		storedCRC = binary.BigEndian.Uint32(header)
		if _, err := cf.f.ReadAt(data, off+CRCEntrySize); err != nil {
			return nil, 0, fmt.Errorf("chunkfile: read block %d: %w", blockNumber, err)
		}
	} else {
		if _, err := cf.f.ReadAt(data, cf.layout.DataBlockOffset(blockNumber)); err != nil {
			return nil, 0, fmt.Errorf("chunkfile: read block %d: %w", blockNumber, err)
		}
		crcBuf := make([]byte, CRCEntrySize)
		crcOff := int64(cf.layout.CRCOffset()) + int64(blockNumber)*CRCEntrySize
		if _, err := cf.f.ReadAt(crcBuf, crcOff); err != nil {
			return nil, 0, fmt.Errorf("chunkfile: read block %d: %w", blockNumber, err)
		}
		storedCRC = binary.BigEndian.Uint32(crcBuf)
	}

	if crc32x.Checksum(0, data) != storedCRC {
		return nil, 0, fmt.Errorf("%w: block %d", ErrCRCMismatch, blockNumber)
	}
	return data, storedCRC, nil
}

// WriteBlock persists data as the blockNumber-th data block and updates its
// CRC entry (the contiguous table for MooseFS, the inline header for
// interleaved). data may be shorter than MFSBLOCKSIZE for a chunk's last
// block.
func (cf *File) WriteBlock(blockNumber int, data []byte) error {
	if len(data) > parttype.MFSBlockSize {
		return fmt.Errorf("chunkfile: write block %d: %d bytes exceeds block size", blockNumber, len(data))
	}
	crc := crc32x.Checksum(0, data)

	if cf.layout.Format == chunkname.Interleaved {
		header := make([]byte, CRCEntrySize)
		binary.BigEndian.PutUint32(header, crc)
		off := cf.layout.DataBlockOffset(blockNumber)
		if _, err := cf.f.WriteAt(header, off); err != nil {
			return fmt.Errorf("chunkfile: write block %d: %w", blockNumber, err)
		}
		if _, err := cf.f.WriteAt(data, off+CRCEntrySize); err != nil {
			return fmt.Errorf("chunkfile: write block %d: %w", blockNumber, err)
		}
		return nil
	}

	if _, err := cf.f.WriteAt(data, cf.layout.DataBlockOffset(blockNumber)); err != nil {
		return fmt.Errorf("chunkfile: write block %d: %w", blockNumber, err)
	}
	crcBuf := make([]byte, CRCEntrySize)
	binary.BigEndian.PutUint32(crcBuf, crc)
	crcOff := int64(cf.layout.CRCOffset()) + int64(blockNumber)*CRCEntrySize
	if _, err := cf.f.WriteAt(crcBuf, crcOff); err != nil {
		return fmt.Errorf("chunkfile: write block %d: %w", blockNumber, err)
	}
	return nil
}

// Truncate shrinks or extends the file to hold exactly newBlockCount data
// blocks; growth is zero-filled by the filesystem, matching the "extends
// with zero blocks" requirement.
func (cf *File) Truncate(newBlockCount int) error {
	size := cf.layout.FileSizeFromBlockCount(newBlockCount)
	if err := cf.f.Truncate(size); err != nil {
		return fmt.Errorf("chunkfile: truncate to %d blocks: %w", newBlockCount, err)
	}
	return nil
}

// BlockCount returns the number of data blocks currently on disk, derived
// from the file's actual size.
func (cf *File) BlockCount() (int, error) {
	info, err := cf.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("chunkfile: stat: %w", err)
	}
	if !cf.layout.IsFileSizeValid(info.Size()) {
		return 0, fmt.Errorf("chunkfile: file size %d is not a valid %v size", info.Size(), cf.layout.Format)
	}
	return cf.layout.BlockCountFromFileSize(info.Size()), nil
}

// RenameForNewVersion renames the chunk part on the filesystem to the name
// a new version (and, for EC parts, generation) would produce, keeping it
// in the same directory. It updates the handle's tracked path and layout
// in place on success.
func (cf *File) RenameForNewVersion(newVersion uint32, generation uint8) (string, error) {
	newName := chunkname.Generate(cf.layout.Type, generation, cf.layout.ChunkID, newVersion, cf.layout.Format)
	newPath := filepath.Join(filepath.Dir(cf.path), newName)
	if err := os.Rename(cf.path, newPath); err != nil {
		return "", fmt.Errorf("chunkfile: rename for version %d: %w", newVersion, err)
	}
	cf.path = newPath
	cf.layout.Version = newVersion
	return newPath, nil
}

// ChecksumWholeChunk computes a single CRC32 over the concatenation of
// every data block's stored per-block CRC (a "CRC of CRCs"), letting a
// chunkserver compare whole-chunk identity without rereading raw data.
func (cf *File) ChecksumWholeChunk() (uint32, error) {
	blockCount, err := cf.BlockCount()
	if err != nil {
		return 0, err
	}
	crcs := make([]byte, blockCount*CRCEntrySize)
	for b := 0; b < blockCount; b++ {
		var crcOff int64
		if cf.layout.Format == chunkname.Interleaved {
			crcOff = cf.layout.DataBlockOffset(b)
		} else {
			crcOff = int64(cf.layout.CRCOffset()) + int64(b)*CRCEntrySize
		}
		if _, err := cf.f.ReadAt(crcs[b*CRCEntrySize:(b+1)*CRCEntrySize], crcOff); err != nil {
			return 0, fmt.Errorf("chunkfile: checksum whole chunk: block %d: %w", b, err)
		}
	}
	return crc32x.Checksum(0, crcs), nil
}
