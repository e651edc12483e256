package metrics

import (
	"bytes"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "bytes_read", Mode: ModeAdd})
	_ = s.Add("bytes_read", 42, 100)

	data := s.Save()

	s2 := NewStore(nil)
	if err := s2.Load(data, 4); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := s2.Series("bytes_read", Scale1Min)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if got[LENG-1] != 42 {
		t.Fatalf("restored head sample = %d, want 42", got[LENG-1])
	}
}

func TestLoadRejectsTruncatedData(t *testing.T) {
	s := NewStore(nil)
	if err := s.Load([]byte{0, 0}, 4); err == nil {
		t.Fatal("expected error loading truncated data")
	}
}

// buildLegacyThreeRangeFile hand-assembles a 3-range (6min/30min/1day)
// legacy persisted file for one stat, since the current Save() always
// writes the full 4-range layout.
func buildLegacyThreeRangeFile(name string, sampleValue uint64) []byte {
	var buf bytes.Buffer
	writeU32(&buf, fileVersion)
	writeU32(&buf, LENG)
	writeU32(&buf, 1)
	writeU32(&buf, 1000)

	nameField := make([]byte, statNameSize)
	copy(nameField, name)
	buf.Write(nameField)

	for r := 0; r < 3; r++ {
		for i := 0; i < LENG; i++ {
			if i == LENG-1 {
				writeU64(&buf, sampleValue)
			} else {
				writeU64(&buf, NODATA)
			}
		}
	}
	return buf.Bytes()
}

func TestLoadLegacyThreeRangeLeavesFastestRingEmpty(t *testing.T) {
	data := buildLegacyThreeRangeFile("ops", 7)

	s2 := NewStore(nil)
	if err := s2.Load(data, 3); err != nil {
		t.Fatalf("Load: %v", err)
	}
	oneMin, _ := s2.Series("ops", Scale1Min)
	for _, v := range oneMin {
		if v != NODATA {
			t.Fatalf("legacy 3-range import should leave the 1-min ring untouched, got %d", v)
		}
	}
	sixMin, _ := s2.Series("ops", Scale6Min)
	if sixMin[LENG-1] != 7 {
		t.Fatalf("6min head = %d, want 7", sixMin[LENG-1])
	}
}

func TestLoadRejectsBadRangeCount(t *testing.T) {
	s := NewStore(nil)
	if err := s.Load(nil, 2); err == nil {
		t.Fatal("expected error for unsupported range count")
	}
}
