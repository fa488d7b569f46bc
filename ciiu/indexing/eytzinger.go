package indexing

import "math/bits"

// BuildEytzinger lays out sorted keys and their parallel rows in Eytzinger
// (breadth-first) order, which keeps binary search cache friendly.
func BuildEytzinger(sorted []VectorID, rows []int) (layout []VectorID, idx []int) {
	n := len(sorted)
	layout = make([]VectorID, n)
	idx = make([]int, n)
	pos := 0
	var dfs func(i int)
	dfs = func(i int) {
		if i > n {
			return
		}
		dfs(i << 1)
		layout[i-1] = sorted[pos]
		idx[i-1] = rows[pos]
		pos++
		dfs((i << 1) | 1)
	}
	dfs(1)
	return
}

// EytzingerSearch returns the layout position holding x, or -1.
func EytzingerSearch(a []VectorID, x VectorID) int {
	i := 1
	n := len(a)
	for i <= n {
		if a[i-1] < x {
			i = (i << 1) | 1
		} else {
			i = i << 1
		}
	}
	// strip the trailing right turns to land on the lower bound
	i >>= bits.TrailingZeros(^uint(i)) + 1
	if i == 0 || a[i-1] != x {
		return -1
	}
	return i - 1
}
