package assign

import "testing"

func TestSolveSizeOne(t *testing.T) {
	v := [][]int64{{5}}
	a, o := Solve(v, 1)
	if a[0] != 0 || o[0] != 0 {
		t.Fatalf("size-1 assignment = %v/%v, want 0/0", a, o)
	}
}

func TestSolveObviousAssignment(t *testing.T) {
	// person i strongly prefers object i.
	v := [][]int64{
		{100, 1, 1},
		{1, 100, 1},
		{1, 1, 100},
	}
	a, o := Solve(v, 3)
	for i := 0; i < 3; i++ {
		if a[i] != i {
			t.Fatalf("assignment[%d] = %d, want %d (full: %v)", i, a[i], i, a)
		}
		if o[i] != i {
			t.Fatalf("objectAssignment[%d] = %d, want %d (full: %v)", i, o[i], i, o)
		}
	}
}

func TestSolveIsPermutation(t *testing.T) {
	v := [][]int64{
		{3, 7, 2, 5},
		{8, 1, 6, 4},
		{5, 5, 5, 5},
		{2, 9, 1, 3},
	}
	a, o := Solve(v, 4)
	seen := map[int]bool{}
	for i, obj := range a {
		if obj < 0 || obj >= 4 {
			t.Fatalf("assignment[%d] = %d out of range", i, obj)
		}
		if seen[obj] {
			t.Fatalf("object %d assigned more than once", obj)
		}
		seen[obj] = true
		if o[obj] != i {
			t.Fatalf("objectAssignment[%d] = %d, want %d", obj, o[obj], i)
		}
	}
}

func TestSolveMaximizesTotalValue(t *testing.T) {
	v := [][]int64{
		{10, 1},
		{1, 10},
	}
	a, _ := Solve(v, 2)
	total := v[0][a[0]] + v[1][a[1]]
	if total != 20 {
		t.Fatalf("total assigned value = %d, want 20 (assignment %v)", total, a)
	}
}
