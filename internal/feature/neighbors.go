// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feature

import (
	"sort"

	"github.com/pdiddy/cpgzoo/internal/profile"
)

// Neighbors extracts, for each target position, the states and distances
// of the k nearest observed sites on each side (R4.1, R4.2). Rows are
// laid out in ascending genomic order: slots [0, k) hold the left
// neighbours with the nearest at index k-1, slots [k, 2k) the right
// neighbours with the nearest at index k. An observation at the target
// position itself is excluded, so distances are strictly positive; slots
// past a chromosome end hold NaN (R4.3). Both position lists must be
// sorted ascending.
func Neighbors(k int, targets, pos []int, values []float32) ([][]int8, [][]float32) {
	states := make([][]int8, len(targets))
	dists := make([][]float32, len(targets))

	for i, p := range targets {
		row := make([]int8, 2*k)
		drow := make([]float32, 2*k)
		for s := range row {
			row[s] = profile.NaN
			drow[s] = profile.NaN
		}

		idx := sort.SearchInts(pos, p)

		for c := 0; c < k; c++ {
			j := idx - 1 - c
			if j < 0 {
				break
			}
			slot := k - 1 - c
			row[slot] = int8(values[j])
			drow[slot] = float32(p - pos[j])
		}

		right := idx
		for right < len(pos) && pos[right] == p {
			right++
		}
		for c := 0; c < k; c++ {
			j := right + c
			if j >= len(pos) {
				break
			}
			row[k+c] = int8(values[j])
			drow[k+c] = float32(pos[j] - p)
		}

		states[i] = row
		dists[i] = drow
	}
	return states, dists
}
