package metrics

import (
	"bytes"
	"testing"
)

func TestAddSingleSlotAccumulatesByMode(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "bytes_read", Mode: ModeAdd})

	if err := s.Add("bytes_read", 10, 1000); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("bytes_read", 5, 1005); err != nil { // still within the same 1-min slot
		t.Fatalf("Add: %v", err)
	}

	series, err := s.Series("bytes_read", Scale1Min)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if got := series[LENG-1]; got != 15 {
		t.Fatalf("head sample = %d, want 15", got)
	}
}

func TestAddMaxModeKeepsLargest(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "peak_latency", Mode: ModeMax})
	_ = s.Add("peak_latency", 100, 0)
	_ = s.Add("peak_latency", 40, 1)

	series, _ := s.Series("peak_latency", Scale1Min)
	if got := series[LENG-1]; got != 100 {
		t.Fatalf("head sample = %d, want 100 (max mode)", got)
	}
}

func TestAddAdvancesRingAndFillsNodata(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "ops", Mode: ModeAdd})
	_ = s.Add("ops", 1, 0)
	_ = s.Add("ops", 2, 120) // two 1-min slots later

	series, _ := s.Series("ops", Scale1Min)
	if series[LENG-1] != 2 {
		t.Fatalf("head sample = %d, want 2", series[LENG-1])
	}
	if series[LENG-2] != NODATA {
		t.Fatalf("skipped slot = %#x, want NODATA", series[LENG-2])
	}
	if series[LENG-3] != 1 {
		t.Fatalf("older sample = %d, want 1", series[LENG-3])
	}
}

func TestAddOutOfOrderMergesIntoPriorSlot(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "ops", Mode: ModeAdd})
	_ = s.Add("ops", 5, 120)
	_ = s.Add("ops", 3, 0) // lands in an earlier slot, within LENG

	series, _ := s.Series("ops", Scale1Min)
	if series[LENG-3] != 3 {
		t.Fatalf("backfilled slot = %d, want 3", series[LENG-3])
	}
	if series[LENG-1] != 5 {
		t.Fatalf("head slot = %d, want 5 (unaffected)", series[LENG-1])
	}
}

func TestAddTooFarInPastIsDropped(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "ops", Mode: ModeAdd})
	_ = s.Add("ops", 1, int64(LENG+5)*60)
	err := s.Add("ops", 99, 0) // LENG+5 minutes behind head, must be dropped
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	series, _ := s.Series("ops", Scale1Min)
	for _, v := range series {
		if v == 99 {
			t.Fatal("sample too far in the past was not dropped")
		}
	}
}

func TestAddUnknownStatErrors(t *testing.T) {
	s := NewStore(nil)
	if err := s.Add("nope", 1, 0); err != ErrUnknownStat {
		t.Fatalf("err = %v, want ErrUnknownStat", err)
	}
}

func TestAllFourScalesAdvanceIndependently(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "x", Mode: ModeAdd})
	_ = s.Add("x", 1, 0)
	_ = s.Add("x", 1, 60) // advances the 1-min ring, not the 6-min one

	oneMin, _ := s.Series("x", Scale1Min)
	sixMin, _ := s.Series("x", Scale6Min)
	if oneMin[LENG-1] != 1 || oneMin[LENG-2] != 1 {
		t.Fatalf("1min series tail = %v", oneMin[LENG-2:])
	}
	if sixMin[LENG-1] != 2 {
		t.Fatalf("6min head = %d, want 2 (both samples in the same 6-min slot)", sixMin[LENG-1])
	}
}

func TestRenderChartProducesValidPNGForRegisteredStat(t *testing.T) {
	s := NewStore(nil)
	s.Register(StatDef{Name: "ops", Mode: ModeAdd})
	_ = s.Add("ops", 10, 0)
	_ = s.Add("ops", 20, 60)

	png, err := s.RenderChart("ops", Scale1Min, false)
	if err != nil {
		t.Fatalf("RenderChart: %v", err)
	}
	if !bytes.HasPrefix(png, pngSignature) {
		t.Fatal("RenderChart output missing PNG signature")
	}
}

func TestRenderChartUnknownStatErrors(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.RenderChart("nope", Scale1Min, false); err != ErrUnknownStat {
		t.Fatalf("err = %v, want ErrUnknownStat", err)
	}
}
