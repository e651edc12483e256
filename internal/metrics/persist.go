package metrics

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// fileVersion is the current persisted-file format version (spec §4.11).
const fileVersion uint32 = 0x00010000

const statNameSize = 100

var (
	ErrTruncated    = errors.New("metrics: persisted file truncated")
	ErrBadNameField = errors.New("metrics: stat name field not NUL-terminated ASCII")
)

// Save serializes every registered stat's four ring buffers into the
// versioned big-endian format from spec §4.11: a header, then for each
// stat a 100-byte name followed by 4*LENG*8 bytes of samples.
func (s *Store) Save() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf bytes.Buffer
	writeU32(&buf, fileVersion)
	writeU32(&buf, LENG)
	writeU32(&buf, uint32(len(s.order)))

	var headTimepoint uint32
	if len(s.order) > 0 {
		rs := s.rings[s.order[0]]
		headTimepoint = uint32(rs[Scale1Min].headSlot * scaleSeconds[Scale1Min])
	}
	writeU32(&buf, headTimepoint)

	for _, name := range s.order {
		nameField := make([]byte, statNameSize)
		copy(nameField, name)
		buf.Write(nameField)

		rs := s.rings[name]
		for scale := Scale1Min; scale < numScales; scale++ {
			for _, v := range rs[scale].values() {
				writeU64(&buf, v)
			}
		}
	}
	return buf.Bytes()
}

// Load replaces the store's contents with what's encoded in data,
// importing legacy 3- and 4-range formats by reshaping into the
// current 4-range layout (spec §4.11: "loaded data is aligned against
// the tail", i.e. pointers := LENG-1).
func (s *Store) Load(data []byte, ranges int) error {
	if ranges != 3 && ranges != 4 {
		return fmt.Errorf("metrics: unsupported legacy range count %d", ranges)
	}
	r := bytes.NewReader(data)

	version, err := readU32(r)
	if err != nil {
		return err
	}
	leng, err := readU32(r)
	if err != nil {
		return err
	}
	statCount, err := readU32(r)
	if err != nil {
		return err
	}
	headTimepoint, err := readU32(r)
	if err != nil {
		return err
	}
	_ = version

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.rings = map[string][numScales]*ring{}

	for i := uint32(0); i < statCount; i++ {
		nameField := make([]byte, statNameSize)
		if _, err := io.ReadFull(r, nameField); err != nil {
			return ErrTruncated
		}
		name := cStringFromField(nameField)

		var rs [numScales]*ring
		for sc := Scale(0); sc < numScales; sc++ {
			rs[sc] = newRing()
		}

		startScale := Scale(int(numScales) - ranges)
		for sc := startScale; sc < numScales; sc++ {
			for i := 0; i < int(leng); i++ {
				v, err := readU64(r)
				if err != nil {
					return ErrTruncated
				}
				if i < LENG {
					rs[sc].samples[i] = v
				}
			}
			rs[sc].head = LENG - 1
			rs[sc].headSlot = int64(headTimepoint) / scaleSeconds[sc]
			rs[sc].inited = true
		}
		// Legacy files lack the fastest (1-minute) scale when ranges==3;
		// leave that ring freshly empty (already the newRing() default).

		s.order = append(s.order, name)
		s.rings[name] = rs
		if _, ok := s.defs[name]; !ok {
			s.defs[name] = StatDef{Name: name, Mode: ModeAdd}
		}
	}
	return nil
}

func cStringFromField(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
