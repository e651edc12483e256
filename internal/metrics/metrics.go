// Package metrics implements the fixed-capacity ring-buffered time-series
// store and its offline PNG chart renderer (spec §4.11).
//
// Grounded on the MooseFS/LizardFS charts module referenced by
// SPEC_FULL.md §2 ("Metrics time-series & chart renderer"): four ring
// buffers per stat at scales 1 min / 6 min / 30 min / 1 day, each holding
// LENG=950 u64 samples, advanced forward in wall-clock-aligned slots and
// combined with the stat's aggregation mode. No pack repo carries an
// equivalent ring-buffer metrics store, so the ingest/advance logic below
// is a direct port of the algorithm description rather than an adaptation
// of teacher code; the ambient pieces (logging, error wrapping) still
// follow gastrolog's conventions.
package metrics

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lizardfs/lizardfs-sub007/internal/logging"
)

// LENG is the number of samples held per ring, per spec §4.11.
const LENG = 950

// NODATA marks a ring slot with no recorded observation.
const NODATA uint64 = 0xFFFFFFFFFFFFFFFF

// Scale indexes the four fixed ring time-scales every stat keeps.
type Scale int

const (
	Scale1Min Scale = iota
	Scale6Min
	Scale30Min
	Scale1Day
	numScales
)

// scaleSeconds gives the wall-clock slot width for each Scale.
var scaleSeconds = [numScales]int64{60, 360, 1800, 86400}

func (s Scale) String() string {
	switch s {
	case Scale1Min:
		return "1min"
	case Scale6Min:
		return "6min"
	case Scale30Min:
		return "30min"
	case Scale1Day:
		return "1day"
	}
	return "unknown"
}

// AggMode is how a new sample combines with whatever already occupies
// its ring slot.
type AggMode int

const (
	ModeAdd AggMode = iota
	ModeMax
)

func combine(mode AggMode, existing, sample uint64) uint64 {
	if existing == NODATA {
		return sample
	}
	if sample == NODATA {
		return existing
	}
	switch mode {
	case ModeMax:
		if sample > existing {
			return sample
		}
		return existing
	default:
		return existing + sample
	}
}

// StatDef describes one named, independently-aggregated statistic.
type StatDef struct {
	Name       string
	Multiplier uint64
	Divisor    uint64
	Percent    bool
	Mode       AggMode
}

// ExtendedStatDef describes a derived, stacked chart built from up to
// three base stat sources combined by an RPN expression (see rpn.go).
type ExtendedStatDef struct {
	Name    string
	Sources [3]string
	Expr    []Token
}

// ring is one fixed-capacity, wall-clock-aligned sample buffer.
type ring struct {
	samples  [LENG]uint64
	head     int
	headSlot int64
	inited   bool
}

func newRing() *ring {
	r := &ring{}
	for i := range r.samples {
		r.samples[i] = NODATA
	}
	return r
}

// observe folds one sample into the ring at wall-clock time now
// (seconds), aligned to scale-second slots, per spec §4.11's ingest
// rule and §5's out-of-order/drop-after-LENG ordering guarantee.
func (r *ring) observe(mode AggMode, now, scale, sample int64) {
	slot := now / scale
	if !r.inited {
		r.headSlot = slot
		r.samples[r.head] = combine(mode, NODATA, uint64(sample))
		r.inited = true
		return
	}

	switch {
	case slot > r.headSlot:
		delta := slot - r.headSlot
		if delta > LENG {
			delta = LENG
		}
		for i := int64(0); i < delta; i++ {
			r.head = (r.head + 1) % LENG
			r.samples[r.head] = NODATA
		}
		r.headSlot = slot
		r.samples[r.head] = combine(mode, r.samples[r.head], uint64(sample))
	case slot == r.headSlot:
		r.samples[r.head] = combine(mode, r.samples[r.head], uint64(sample))
	default:
		behind := r.headSlot - slot
		if behind >= LENG {
			return
		}
		idx := ((r.head-int(behind))%LENG + LENG) % LENG
		r.samples[idx] = combine(mode, r.samples[idx], uint64(sample))
	}
}

// Values returns the ring contents oldest-first.
func (r *ring) values() []uint64 {
	out := make([]uint64, LENG)
	for i := 0; i < LENG; i++ {
		idx := (r.head + 1 + i) % LENG
		out[i] = r.samples[idx]
	}
	return out
}

var ErrUnknownStat = errors.New("metrics: unknown stat name")

// Store holds every stat's four ring buffers plus the extended (derived
// chart) definitions, guarded by one mutex: single writer (Add), many
// readers (chart rendering, persistence) per spec §5's resource model.
type Store struct {
	mu       sync.RWMutex
	defs     map[string]StatDef
	order    []string
	rings    map[string][numScales]*ring
	extended map[string]ExtendedStatDef
	log      *slog.Logger
}

// NewStore returns an empty store. log may be nil (defaults to discard).
func NewStore(log *slog.Logger) *Store {
	log = logging.Default(log)
	return &Store{
		defs:     map[string]StatDef{},
		rings:    map[string][numScales]*ring{},
		extended: map[string]ExtendedStatDef{},
		log:      log.With("component", "metrics"),
	}
}

// Register adds a stat definition, allocating its four rings.
func (s *Store) Register(def StatDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.Name]; !ok {
		s.order = append(s.order, def.Name)
	}
	s.defs[def.Name] = def
	var rs [numScales]*ring
	for i := range rs {
		rs[i] = newRing()
	}
	s.rings[def.Name] = rs
}

// RegisterExtended adds a derived chart definition.
func (s *Store) RegisterExtended(def ExtendedStatDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extended[def.Name] = def
}

// Add folds one sample for name into all four of its rings at time now
// (unix seconds).
func (s *Store) Add(name string, sample uint64, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[name]
	if !ok {
		return ErrUnknownStat
	}
	rs := s.rings[name]
	for i := Scale1Min; i < numScales; i++ {
		rs[i].observe(def.Mode, now, scaleSeconds[i], int64(sample))
	}
	return nil
}

// Series returns the raw sample values for one stat at one scale,
// oldest-first.
func (s *Store) Series(name string, scale Scale) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rings[name]
	if !ok {
		return nil, ErrUnknownStat
	}
	return rs[scale].values(), nil
}

// RenderChart renders the named stat's current series at scale as a PNG
// chart. Each call is tagged with a fresh uuid so the renderer's logs
// (and any error returned) can be correlated to one specific request,
// the way the teacher tags long-running jobs for later log lookup.
func (s *Store) RenderChart(name string, scale Scale, stub bool) ([]byte, error) {
	chartID := uuid.New()
	s.mu.RLock()
	def, ok := s.defs[name]
	rs, found := s.rings[name]
	s.mu.RUnlock()
	if !ok || !found {
		s.log.Warn("render chart for unknown stat", "chart_id", chartID, "stat", name)
		return nil, ErrUnknownStat
	}

	s.log.Debug("rendering chart", "chart_id", chartID, "stat", name, "scale", scale)
	series := rs[scale].values()
	png := RenderChart(ChartOptions{
		Series:     [3][]uint64{series, nil, nil},
		Multiplier: def.Multiplier,
		Divisor:    def.Divisor,
		Percent:    def.Percent,
		Stub:       stub,
	})
	s.log.Debug("rendered chart", "chart_id", chartID, "bytes", len(png))
	return png, nil
}

// StatNames returns registered stat names in registration order.
func (s *Store) StatNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
