package metrics

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/lizardfs/lizardfs-sub007/internal/crc32x"
)

func sampleSeries(n int, v uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRenderChartHasPNGSignature(t *testing.T) {
	png := RenderChart(ChartOptions{Series: [3][]uint64{sampleSeries(10, 5), nil, nil}})
	if !bytes.HasPrefix(png, pngSignature) {
		t.Fatal("rendered chart missing PNG signature")
	}
}

func TestRenderChartChunksHaveValidCRC(t *testing.T) {
	png := RenderChart(ChartOptions{Series: [3][]uint64{sampleSeries(10, 5), sampleSeries(10, 2), nil}})
	offset := len(pngSignature)
	found := map[string]bool{}
	for offset < len(png) {
		length := binary.BigEndian.Uint32(png[offset : offset+4])
		typ := string(png[offset+4 : offset+8])
		body := png[offset+4 : offset+8+int(length)]
		wantCRC := binary.BigEndian.Uint32(png[offset+8+int(length) : offset+12+int(length)])
		gotCRC := crc32x.Checksum(0, body)
		if gotCRC != wantCRC {
			t.Fatalf("chunk %s: crc = %#x, want %#x", typ, gotCRC, wantCRC)
		}
		found[typ] = true
		offset += 12 + int(length)
	}
	for _, want := range []string{"IHDR", "PLTE", "tRNS", "bKGD", "IDAT", "IEND"} {
		if !found[want] {
			t.Fatalf("missing chunk %s", want)
		}
	}
}

func TestRenderChartIHDRDimensions(t *testing.T) {
	png := RenderChart(ChartOptions{Series: [3][]uint64{sampleSeries(4, 1), nil, nil}})
	offset := len(pngSignature) + 8 // skip length+type of IHDR
	w := binary.BigEndian.Uint32(png[offset : offset+4])
	h := binary.BigEndian.Uint32(png[offset+4 : offset+8])
	if w != ChartWidth || h != ChartHeight {
		t.Fatalf("dimensions = %dx%d, want %dx%d", w, h, ChartWidth, ChartHeight)
	}
}

func TestRenderChartStubFallbackStillValidPNG(t *testing.T) {
	png := RenderChart(ChartOptions{
		Series: [3][]uint64{sampleSeries(10, 5), nil, nil},
		Stub:   true,
	})
	if !bytes.HasPrefix(png, pngSignature) {
		t.Fatal("stub-rendered chart missing PNG signature")
	}
}

func TestMetricPrefixScalesUp(t *testing.T) {
	v, prefix := metricPrefix(1_500_000)
	if prefix != "M" || v < 1.4 || v > 1.6 {
		t.Fatalf("metricPrefix(1.5e6) = %v%s, want ~1.5M", v, prefix)
	}
}

func TestMetricPrefixScalesDown(t *testing.T) {
	v, prefix := metricPrefix(0.002)
	if prefix != "m" {
		t.Fatalf("metricPrefix(0.002) prefix = %q, want m", prefix)
	}
	_ = v
}

func TestFormatTickNodata(t *testing.T) {
	if got := formatTick(NODATA, 0, 0, false); got != "-" {
		t.Fatalf("formatTick(NODATA) = %q, want -", got)
	}
}
