// Package assign implements the Bertsekas auction algorithm with epsilon
// scaling for minimum/maximum-cost linear assignment (spec §4.10), used
// by the copies calculator (internal/copies) to permute goal parts onto
// available parts at minimum operation cost.
//
// Ported from original_source/src/common/linear_assignment_optimizer.h's
// auctionOptimization/auctionStep: a value (benefit) matrix is scaled by
// (n+1) so that a final epsilon of 1 guarantees an optimal integer
// assignment, then the epsilon schedule shrinks by roughly a factor of 5
// each round starting from (max_value+12)/25 down to 1.
package assign

import "math"

// MaxPartsCount bounds the problem size the auction runs for Goal part
// permutation (spec §4.9/§4.10 context: at most this many parts per slice).
const MaxPartsCount = 10

// Solve runs the auction algorithm to maximize total assigned value over
// an n x n value (benefit) matrix, returning assignment (person -> object)
// and objectAssignment (object -> person). Costs should already be
// expressed as values to maximize (the copies calculator negates its
// create/delete cost before calling Solve, since the auction maximizes).
func Solve(value [][]int64, n int) (assignment, objectAssignment []int) {
	assignment = make([]int, n)
	objectAssignment = make([]int, n)
	for i := range assignment {
		assignment[i] = -1
		objectAssignment[i] = -1
	}
	if n <= 0 {
		return assignment, objectAssignment
	}
	if n == 1 {
		assignment[0] = 0
		objectAssignment[0] = 0
		return assignment, objectAssignment
	}

	scaled := make([][]int64, n)
	maxA := int64(math.MinInt64)
	scale := int64(n + 1)
	for i := 0; i < n; i++ {
		scaled[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			scaled[i][j] = value[i][j] * scale
			if scaled[i][j] > maxA {
				maxA = scaled[i][j]
			}
		}
	}

	prices := make([]int64, n)
	eps := (maxA + 12) / 25

	for eps > 1 {
		auctionStep(scaled, assignment, objectAssignment, prices, eps, n)
		eps = (eps + 2) / 5
	}
	auctionStep(scaled, assignment, objectAssignment, prices, 1, n)

	return assignment, objectAssignment
}

// auctionStep runs one full round of bidding at a fixed epsilon until
// every person is assigned.
func auctionStep(value [][]int64, assignment, objectAssignment []int, prices []int64, eps int64, n int) {
	for i := 0; i < n; i++ {
		assignment[i] = -1
		objectAssignment[i] = -1
	}

	unassignedIdx := 0
	assignedCount := 0
	for assignedCount < n {
		for assignment[unassignedIdx] >= 0 {
			unassignedIdx++
			if unassignedIdx >= n {
				unassignedIdx = 0
			}
		}

		w := int64(math.MinInt64)
		v := int64(math.MinInt64)
		vIdx := -1
		for i := 0; i < n; i++ {
			c := value[unassignedIdx][i] - prices[i]
			if c > v {
				w = v
				v = c
				vIdx = i
			} else if c > w {
				w = c
			}
		}

		prices[vIdx] += v - w + eps

		if prev := objectAssignment[vIdx]; prev >= 0 {
			assignment[prev] = -1
			assignedCount--
		}
		objectAssignment[vIdx] = unassignedIdx
		assignment[unassignedIdx] = vIdx
		assignedCount++
	}
}
