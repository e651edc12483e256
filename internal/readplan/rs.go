package readplan

// GF(2^8) arithmetic and the Cauchy-matrix Reed-Solomon decode used by EC
// ladder-step-3 recovery (spec §4.7: "a k×k Vandermonde-style inverse over
// GF(2^8) ... whichever the implementation chooses, so long as it is self
// consistent"). A Cauchy construction is used in place of literal
// Vandermonde powers because, unlike a Vandermonde-with-identity composite,
// every square submatrix of a Cauchy matrix is guaranteed invertible — the
// exact property ladder-step-3 needs, since the set of missing data slots
// and the set of surviving parity rows both vary read to read.

import "errors"

// errSingularMatrix is returned when a recovery coefficient submatrix
// turns out not invertible; it should not occur for a correctly-built
// Cauchy submatrix and signals a bug in the caller's slot bookkeeping.
var errSingularMatrix = errors.New("readplan: singular recovery matrix")

// errNotEnoughParts is returned when fewer usable parity/data slots are
// present than the number of missing data slots being recovered.
var errNotEnoughParts = errors.New("readplan: not enough parts to recover missing data")

const gfPoly = 0x11D // x^8 + x^4 + x^3 + x^2 + 1, the usual Reed-Solomon field polynomial

var gfExp [512]byte
var gfLog [256]byte

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(x)
		gfLog[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= gfPoly
		}
	}
	for i := 255; i < 512; i++ {
		gfExp[i] = gfExp[i-255]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	// b == 0 is a caller bug (division by zero in the field); panic reads
	// better than silently returning garbage recovered bytes.
	if b == 0 {
		panic("readplan: gf division by zero")
	}
	diff := int(gfLog[a]) - int(gfLog[b])
	if diff < 0 {
		diff += 255
	}
	return gfExp[diff]
}

// gfMatrix is a dense row-major matrix over GF(2^8).
type gfMatrix struct {
	rows, cols int
	data       []byte
}

func newGFMatrix(rows, cols int) *gfMatrix {
	return &gfMatrix{rows: rows, cols: cols, data: make([]byte, rows*cols)}
}

func (m *gfMatrix) at(r, c int) byte     { return m.data[r*m.cols+c] }
func (m *gfMatrix) set(r, c int, v byte) { m.data[r*m.cols+c] = v }

// cauchyCoefficient builds the (row, col) entry of a Cauchy matrix over
// x values xs and y values ys: 1/(x XOR y). x and y are drawn from disjoint
// byte ranges so x XOR y is never zero.
func cauchyCoefficient(x, y byte) byte {
	return gfDiv(1, x^y)
}

// recoveryMatrix builds the square coefficient matrix M such that
// M * missingData = availableCombinations, where availableCombinations is
// built from whichever parity rows (and identity rows standing in for
// directly-available data slots) are being used to fill in the rows
// consumed by missing data slots. Row i corresponds to parityIndices[i]
// (a parity slot's Cauchy row, x = dataParts+parityIndex), column j
// corresponds to missingIndices[j] (y = the missing data slot's index).
func recoveryMatrix(missingIndices, parityIndices []int, dataParts int) *gfMatrix {
	n := len(missingIndices)
	m := newGFMatrix(n, n)
	for i, p := range parityIndices {
		x := byte(dataParts + p)
		for j, d := range missingIndices {
			y := byte(d)
			m.set(i, j, cauchyCoefficient(x, y))
		}
	}
	return m
}

// invert computes m^-1 via Gauss-Jordan elimination over GF(2^8). It
// mutates neither m nor the caller's slices; it operates on an augmented
// copy. Returns an error if m is singular (should not happen for a
// correctly-built Cauchy submatrix).
func (m *gfMatrix) invert() (*gfMatrix, error) {
	n := m.rows
	aug := newGFMatrix(n, 2*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			aug.set(r, c, m.at(r, c))
		}
		aug.set(r, n+r, 1)
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for r := col; r < n; r++ {
			if aug.at(r, col) != 0 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return nil, errSingularMatrix
		}
		if pivot != col {
			for c := 0; c < 2*n; c++ {
				aug.data[col*2*n+c], aug.data[pivot*2*n+c] = aug.data[pivot*2*n+c], aug.data[col*2*n+c]
			}
		}
		inv := gfInv(aug.at(col, col))
		for c := 0; c < 2*n; c++ {
			aug.set(col, c, gfMul(aug.at(col, c), inv))
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug.at(r, col)
			if factor == 0 {
				continue
			}
			for c := 0; c < 2*n; c++ {
				aug.set(r, c, aug.at(r, c)^gfMul(factor, aug.at(col, c)))
			}
		}
	}

	out := newGFMatrix(n, n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out.set(r, c, aug.at(r, n+c))
		}
	}
	return out, nil
}

func gfInv(a byte) byte {
	if a == 0 {
		panic("readplan: gf inverse of zero")
	}
	return gfExp[255-int(gfLog[a])]
}

// rsRecover reconstructs the missing data slots of one EC group. present
// maps slot index (0..dataParts-1 for data, dataParts..dataParts+m-1 for
// parity) to that slot's stripe bytes, all the same length. It returns the
// reconstructed bytes for each entry of missing, keyed by slot index.
func rsRecover(present map[int][]byte, missing []int, dataParts int) (map[int][]byte, error) {
	if len(missing) == 0 {
		return nil, nil
	}
	stripeLen := -1
	for _, b := range present {
		stripeLen = len(b)
		break
	}
	if stripeLen < 0 {
		return nil, errNotEnoughParts
	}

	var parityIdx []int
	for slot := range present {
		if slot >= dataParts {
			parityIdx = append(parityIdx, slot-dataParts)
		}
	}
	if len(parityIdx) < len(missing) {
		return nil, errNotEnoughParts
	}
	parityIdx = parityIdx[:len(missing)]

	coeff := recoveryMatrix(missing, parityIdx, dataParts)
	inv, err := coeff.invert()
	if err != nil {
		return nil, err
	}

	// rhs[i] = parity row i's value, minus the contribution of data slots
	// that are already present (not missing).
	rhs := make([][]byte, len(parityIdx))
	for i, p := range parityIdx {
		row := make([]byte, stripeLen)
		copy(row, present[dataParts+p])
		for d := 0; d < dataParts; d++ {
			isMissing := false
			for _, md := range missing {
				if md == d {
					isMissing = true
					break
				}
			}
			if isMissing {
				continue
			}
			coef := cauchyCoefficient(byte(dataParts+p), byte(d))
			data := present[d]
			for b := 0; b < stripeLen; b++ {
				row[b] ^= gfMul(coef, data[b])
			}
		}
		rhs[i] = row
	}

	out := make(map[int][]byte, len(missing))
	for j, d := range missing {
		buf := make([]byte, stripeLen)
		for i := range parityIdx {
			c := inv.at(j, i)
			if c == 0 {
				continue
			}
			row := rhs[i]
			for b := 0; b < stripeLen; b++ {
				buf[b] ^= gfMul(c, row[b])
			}
		}
		out[d] = buf
	}
	return out, nil
}
