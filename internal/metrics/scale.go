package metrics

import "fmt"

// metricPrefix auto-scales v (already divided by a stat's multiplier/
// divisor pair) to the smallest magnitude >= 1 with a single SI prefix
// letter, per spec §4.11 ("k M G T P E Z Y, or m µ for sub-unit").
// Returns the scaled value and the prefix string (empty for no prefix).
func metricPrefix(v float64) (float64, string) {
	const base = 1000.0
	upPrefixes := []string{"", "k", "M", "G", "T", "P", "E", "Z", "Y"}
	downPrefixes := []string{"", "m", "u"}

	if v == 0 {
		return 0, ""
	}
	av := v
	if av < 0 {
		av = -av
	}

	if av >= 1 {
		idx := 0
		for idx < len(upPrefixes)-1 && av >= base {
			av /= base
			v /= base
			idx++
		}
		return v, upPrefixes[idx]
	}

	idx := 0
	for idx < len(downPrefixes)-1 && av < 1 {
		av *= base
		v *= base
		idx++
	}
	return v, downPrefixes[idx]
}

// formatTick renders a tick-label value with metric-prefix scaling and
// an optional percent suffix.
func formatTick(raw uint64, multiplier, divisor uint64, percent bool) string {
	if raw == NODATA {
		return "-"
	}
	v := float64(raw)
	if multiplier > 0 {
		v *= float64(multiplier)
	}
	if divisor > 0 {
		v /= float64(divisor)
	}
	scaled, prefix := metricPrefix(v)
	suffix := prefix
	if percent {
		suffix += "%"
	}
	return fmt.Sprintf("%.1f%s", scaled, suffix)
}
