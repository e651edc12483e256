package metrics

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"

	"github.com/klauspost/compress/flate"

	"github.com/lizardfs/lizardfs-sub007/internal/crc32x"
)

// ChartWidth and ChartHeight are the fixed chart dimensions (spec §4.11).
const (
	ChartWidth  = 1000
	ChartHeight = 120
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// palette is the 9-color indexed palette: background, grid, axis, three
// stacked series colors, tick-label text, a warning-glyph color, and a
// highlight.
var palette = [9][3]byte{
	{0xFF, 0xFF, 0xFF}, // 0 background
	{0xE0, 0xE0, 0xE0}, // 1 grid line
	{0x40, 0x40, 0x40}, // 2 axis
	{0x4C, 0x72, 0xB0}, // 3 series A
	{0xDD, 0x85, 0x52}, // 4 series B
	{0x55, 0xA8, 0x68}, // 5 series C
	{0x00, 0x00, 0x00}, // 6 tick label text
	{0xC4, 0x46, 0x46}, // 7 warning glyph
	{0xFF, 0xFF, 0x00}, // 8 reserved/highlight
}

const (
	colorBackground = 0
	colorGrid       = 1
	colorAxis       = 2
	colorSeriesA    = 3
	colorSeriesB    = 4
	colorSeriesC    = 5
	colorText       = 6
	colorWarning    = 7
)

// ChartOptions configures one rendered PNG chart.
type ChartOptions struct {
	Series     [3][]uint64 // stacked series, left-to-right oldest-to-newest
	Multiplier uint64
	Divisor    uint64
	Percent    bool
	Stub       bool // force the no-compression fallback path
}

// RenderChart composes a 1000x120 indexed-color PNG for three stacked
// series, per spec §4.11: a filled stacked-area bitmap, axes/gridlines,
// bitmap-font tick labels, and IHDR/PLTE/tRNS/bKGD/IDAT/IEND chunks
// with CRCs from the shared CRC engine (internal/crc32x).
func RenderChart(opts ChartOptions) []byte {
	bitmap := make([]byte, ChartWidth*ChartHeight)
	fillBackground(bitmap)
	drawGridAndAxes(bitmap)
	maxVal := stackedMax(opts.Series)
	drawStackedSeries(bitmap, opts.Series, maxVal)
	drawTickLabels(bitmap, maxVal, opts.Multiplier, opts.Divisor, opts.Percent)
	if opts.Stub {
		drawString(bitmap, ChartWidth, ChartWidth-60, 2, "no zlib", colorWarning)
	}

	var buf bytes.Buffer
	buf.Write(pngSignature)

	writeChunk(&buf, "IHDR", ihdrData())
	writeChunk(&buf, "PLTE", plteData())
	writeChunk(&buf, "tRNS", trnsData())
	writeChunk(&buf, "bKGD", []byte{colorBackground})
	writeChunk(&buf, "IDAT", idatData(bitmap, opts.Stub))
	writeChunk(&buf, "IEND", nil)

	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])

	body := make([]byte, 0, 4+len(data))
	body = append(body, typ...)
	body = append(body, data...)
	buf.Write(body)

	crc := crc32x.Checksum(0, body)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	buf.Write(crcBuf[:])
}

func ihdrData() []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], ChartWidth)
	binary.BigEndian.PutUint32(buf[4:8], ChartHeight)
	buf[8] = 8    // bit depth
	buf[9] = 3    // color type: indexed
	buf[10] = 0   // compression method: deflate
	buf[11] = 0   // filter method
	buf[12] = 0   // interlace: none
	return buf
}

func plteData() []byte {
	buf := make([]byte, 0, len(palette)*3)
	for _, c := range palette {
		buf = append(buf, c[0], c[1], c[2])
	}
	return buf
}

func trnsData() []byte {
	// Every palette entry opaque except the reserved highlight slot,
	// which charts may use for a semi-transparent "now" marker.
	buf := make([]byte, len(palette))
	for i := range buf {
		buf[i] = 0xFF
	}
	buf[8] = 0x00
	return buf
}

// idatData builds the zlib-wrapped, filter-byte-prefixed scanline data
// for the IDAT chunk. When stub is true, it uses stored (uncompressed)
// deflate blocks instead of klauspost/compress's real deflate, per spec
// §4.11's documented fallback.
func idatData(bitmap []byte, stub bool) []byte {
	raw := make([]byte, 0, len(bitmap)+ChartHeight)
	for y := 0; y < ChartHeight; y++ {
		raw = append(raw, 0) // filter type: none
		raw = append(raw, bitmap[y*ChartWidth:(y+1)*ChartWidth]...)
	}

	var compressed []byte
	if stub {
		compressed = storedDeflate(raw)
	} else {
		compressed = realDeflate(raw)
	}

	out := make([]byte, 0, 2+len(compressed)+4)
	out = append(out, 0x78, 0x9C) // zlib header: deflate, 32k window, default level
	out = append(out, compressed...)

	var adlerBuf [4]byte
	binary.BigEndian.PutUint32(adlerBuf[:], adler32.Checksum(raw))
	out = append(out, adlerBuf[:]...)
	return out
}

func realDeflate(raw []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		// flate.NewWriter only errors on an out-of-range level constant;
		// DefaultCompression is always valid, so fall back defensively.
		return storedDeflate(raw)
	}
	_, _ = w.Write(raw)
	_ = w.Close()
	return buf.Bytes()
}

// storedDeflate assembles raw, uncompressed deflate "stored" blocks
// (RFC 1951 §3.2.4), chunked to the format's 65535-byte block limit.
func storedDeflate(raw []byte) []byte {
	var out bytes.Buffer
	const maxBlock = 65535
	for off := 0; off < len(raw) || off == 0; {
		end := off + maxBlock
		final := false
		if end >= len(raw) {
			end = len(raw)
			final = true
		}
		chunk := raw[off:end]

		var bfinal byte
		if final {
			bfinal = 1
		}
		out.WriteByte(bfinal) // BFINAL in bit0, BTYPE=00 (stored) in bits 1-2

		var lenBuf [4]byte
		binary.LittleEndian.PutUint16(lenBuf[0:2], uint16(len(chunk)))
		binary.LittleEndian.PutUint16(lenBuf[2:4], ^uint16(len(chunk)))
		out.Write(lenBuf[:])
		out.Write(chunk)

		off = end
		if final {
			break
		}
	}
	return out.Bytes()
}

func fillBackground(bitmap []byte) {
	for i := range bitmap {
		bitmap[i] = colorBackground
	}
}

func drawGridAndAxes(bitmap []byte) {
	const marginLeft, marginBottom = 40, 16
	for x := marginLeft; x < ChartWidth; x++ {
		bitmap[(ChartHeight-marginBottom)*ChartWidth+x] = colorAxis
	}
	for y := 0; y < ChartHeight-marginBottom; y++ {
		bitmap[y*ChartWidth+marginLeft] = colorAxis
	}
	for frac := 1; frac < 4; frac++ {
		y := (ChartHeight - marginBottom) * frac / 4
		for x := marginLeft + 1; x < ChartWidth; x++ {
			if bitmap[y*ChartWidth+x] == colorBackground {
				bitmap[y*ChartWidth+x] = colorGrid
			}
		}
	}
}

func stackedMax(series [3][]uint64) uint64 {
	var maxVal uint64
	n := seriesLen(series)
	for i := 0; i < n; i++ {
		var total uint64
		for s := 0; s < 3; s++ {
			if i < len(series[s]) && series[s][i] != NODATA {
				total += series[s][i]
			}
		}
		if total > maxVal {
			maxVal = total
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}
	return maxVal
}

func seriesLen(series [3][]uint64) int {
	n := 0
	for _, s := range series {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

// drawStackedSeries fills a stacked-area plot into the chart's data
// region (right of the y-axis, above the x-axis).
func drawStackedSeries(bitmap []byte, series [3][]uint64, maxVal uint64) {
	const marginLeft, marginBottom = 41, 16
	plotWidth := ChartWidth - marginLeft
	plotHeight := ChartHeight - marginBottom
	n := seriesLen(series)
	if n == 0 || plotWidth <= 0 {
		return
	}

	colors := [3]byte{colorSeriesA, colorSeriesB, colorSeriesC}
	for col := 0; col < plotWidth; col++ {
		srcIdx := col * n / plotWidth
		stacked := 0
		for s := 0; s < 3; s++ {
			if srcIdx >= len(series[s]) || series[s][srcIdx] == NODATA {
				continue
			}
			v := series[s][srcIdx]
			barHeight := int(v * uint64(plotHeight) / maxVal)
			for row := 0; row < barHeight; row++ {
				y := plotHeight - 1 - stacked - row
				if y < 0 {
					break
				}
				x := marginLeft + col
				bitmap[y*ChartWidth+x] = colors[s]
			}
			stacked += barHeight
		}
	}
}

func drawTickLabels(bitmap []byte, maxVal uint64, multiplier, divisor uint64, percent bool) {
	const marginBottom = 16
	for frac := 0; frac <= 4; frac++ {
		val := maxVal * uint64(4-frac) / 4
		label := formatTick(val, multiplier, divisor, percent)
		y := (ChartHeight-marginBottom)*frac/4 - glyphHeight/2
		if y < 0 {
			y = 0
		}
		drawString(bitmap, ChartWidth, 2, y, label, colorText)
	}
}
