package metrics

import "testing"

func TestEvalAddSources(t *testing.T) {
	expr := []Token{{Op: OpSrc, N: 0}, {Op: OpSrc, N: 1}, {Op: OpAdd}}
	got := Eval(expr, [3]uint64{3, 4, 0})
	if got != 7 {
		t.Fatalf("Eval = %d, want 7", got)
	}
}

func TestEvalNodataPropagates(t *testing.T) {
	expr := []Token{{Op: OpSrc, N: 0}, {Op: OpSrc, N: 1}, {Op: OpAdd}}
	got := Eval(expr, [3]uint64{NODATA, 4, 0})
	if got != NODATA {
		t.Fatalf("Eval = %#x, want NODATA", got)
	}
}

func TestEvalNegativeResultBecomesNodata(t *testing.T) {
	expr := []Token{{Op: OpSrc, N: 0}, {Op: OpSrc, N: 1}, {Op: OpSub}}
	got := Eval(expr, [3]uint64{3, 10, 0})
	if got != NODATA {
		t.Fatalf("Eval = %d, want NODATA (3-10 is negative)", got)
	}
}

func TestEvalConstAndMul(t *testing.T) {
	expr := []Token{{Op: OpSrc, N: 0}, {Op: OpConst, Const: 8}, {Op: OpMul}}
	got := Eval(expr, [3]uint64{5, 0, 0})
	if got != 40 {
		t.Fatalf("Eval = %d, want 40", got)
	}
}

func TestEvalDivByZeroIsNodata(t *testing.T) {
	expr := []Token{{Op: OpSrc, N: 0}, {Op: OpConst, Const: 0}, {Op: OpDiv}}
	got := Eval(expr, [3]uint64{5, 0, 0})
	if got != NODATA {
		t.Fatalf("Eval = %d, want NODATA", got)
	}
}

func TestEvalMinMax(t *testing.T) {
	minExpr := []Token{{Op: OpSrc, N: 0}, {Op: OpSrc, N: 1}, {Op: OpMin}}
	if got := Eval(minExpr, [3]uint64{3, 9, 0}); got != 3 {
		t.Fatalf("min = %d, want 3", got)
	}
	maxExpr := []Token{{Op: OpSrc, N: 0}, {Op: OpSrc, N: 1}, {Op: OpMax}}
	if got := Eval(maxExpr, [3]uint64{3, 9, 0}); got != 9 {
		t.Fatalf("max = %d, want 9", got)
	}
}

func TestEvalNeg(t *testing.T) {
	expr := []Token{{Op: OpConst, Const: 5}, {Op: OpNeg}}
	got := Eval(expr, [3]uint64{})
	if got != NODATA {
		t.Fatalf("Eval = %d, want NODATA (negating a positive makes it negative)", got)
	}
}
