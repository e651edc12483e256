package chunkname

import (
	"testing"

	"github.com/lizardfs/lizardfs-sub007/internal/parttype"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	xorPart, err := parttype.Xor(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	xorParity, err := parttype.XorParity(5)
	if err != nil {
		t.Fatal(err)
	}
	ec, err := parttype.EC(6, 3, 2)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		t          parttype.Type
		generation uint8
		id         uint64
		version    uint32
		format     Format
	}{
		{parttype.Standard(), 0, 0xABC, 2, Interleaved},
		{parttype.Standard(), 0, 0xDEADBEEF, 1, MooseFS},
		{xorPart, 0, 0x1, 1, Interleaved},
		{xorParity, 0, 0x123456789ABCDEF0, 0xFFFFFFFF, Interleaved},
		{ec, 5, 42, 7, MooseFS},
	}

	for _, c := range cases {
		name := Generate(c.t, c.generation, c.id, c.version, c.format)
		got, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got.ChunkID != c.id || got.Version != c.version || got.Format != c.format {
			t.Fatalf("Parse(%q) = %+v, want id=%d version=%d format=%v", name, got, c.id, c.version, c.format)
		}
		if !got.Type.Equal(c.t) {
			t.Fatalf("Parse(%q) type = %v, want %v", name, got.Type, c.t)
		}
		if got.Type.IsEC() && got.Generation != c.generation {
			t.Fatalf("Parse(%q) generation = %d, want %d", name, got.Generation, c.generation)
		}
	}
}

func TestParseKnownFilenames(t *testing.T) {
	good := []string{
		"chunk_0000000000000ABC_00000002.liz",
		"chunk_xor_1_of_3_0000000000000001_00000001.liz",
		"chunk_xor_parity_of_5_123456789ABCDEF0_FFFFFFFF.mfs",
		"chunk_ec0_3_of_6_3_000000000000002A_00000007.mfs",
	}
	for _, name := range good {
		if _, err := Parse(name); err != nil {
			t.Errorf("Parse(%q): unexpected error %v", name, err)
		}
	}
}

func TestParseKnownECFilenameFields(t *testing.T) {
	got, err := Parse("chunk_ec7_3_of_6_3_000000000000002A_00000007.mfs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Generation != 7 {
		t.Fatalf("Generation = %d, want 7", got.Generation)
	}
	k, m, idx := got.Type.ECParams()
	if k != 6 || m != 3 || idx != 2 {
		t.Fatalf("ECParams = (%d,%d,%d), want (6,3,2)", k, m, idx)
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	bad := []string{
		"",
		"chunk_",
		"nothing_here.liz",
		"chunk_0000000000000ABC_00000002.txt",
		"chunk_0000000000000ABC_00000002.liz.extra",
		"chunk_0000000000000AB_00000002.liz",              // id too short
		"chunk_0000000000000ABC_0000002.liz",              // version too short
		"chunk_xor_0_of_3_0000000000000001_00000001.liz",  // part 0 rejected
		"chunk_xor_1_of_1_0000000000000001_00000001.liz",  // level below min
		"chunk_xor_4_of_3_0000000000000001_00000001.liz",  // part > level
		"chunk_xor_parity_of_0_0000000000000001_00000001.liz",
		"chunk_xor_01_of_3_0000000000000001_00000001.liz", // leading zero
		"chunk_ec_3_of_6_3_000000000000002A_00000007.mfs", // missing generation digit
		"chunk_ec37_3_of_6_3_000000000000002A_00000007.mfs", // generation is not 2 digits
	}
	for _, name := range bad {
		if _, err := Parse(name); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", name)
		}
	}
}

func TestSubfolderLayout(t *testing.T) {
	id := uint64(0x1234567890ABCDEF)
	if got := SubfolderNumber(id, CurrentLayout); got != uint32(0x90AB)&0xFF {
		t.Fatalf("current layout subfolder = %#x, want %#x", got, uint32(0x90AB)&0xFF)
	}
	if got := SubfolderNumber(id, LegacyLayout); got != 0xEF {
		t.Fatalf("legacy layout subfolder = %#x, want 0xEF", got)
	}
	if name := SubfolderName(0xAB, CurrentLayout); name != "chunksAB" {
		t.Fatalf("current subfolder name = %q, want chunksAB", name)
	}
	if name := SubfolderName(0xAB, LegacyLayout); name != "AB" {
		t.Fatalf("legacy subfolder name = %q, want AB", name)
	}
}

func TestGenerateStandardFilenameShape(t *testing.T) {
	name := Generate(parttype.Standard(), 0, 1, 1, Interleaved)
	want := "chunk_0000000000000001_00000001.liz"
	if name != want {
		t.Fatalf("Generate standard = %q, want %q", name, want)
	}
}

func TestGenerateECFilenameShape(t *testing.T) {
	ec, err := parttype.EC(6, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	name := Generate(ec, 7, 42, 7, MooseFS)
	want := "chunk_ec7_3_of_6_3_000000000000002A_00000007.mfs"
	if name != want {
		t.Fatalf("Generate EC = %q, want %q", name, want)
	}
}
