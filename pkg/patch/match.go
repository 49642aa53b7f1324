package patch

// BestMatch aligns a against a prefix of b and returns the smallest number of single-element
// insertions and deletions, at most max, for which an alignment exists that
//
//   - consumes all of a,
//   - consumes at least min elements of b, and
//   - pairs at least min elements of a with equal elements of b.
//
// The second result is the length of the longest prefix of b consumed by such an alignment at that
// edit count. When no alignment fits in the budget BestMatch returns (max+1, 0).
//
// The search walks the edit graph greedily, one edit count at a time, and never leaves the band of
// diagonals within max of the starting diagonal, so its cost is bounded by O(max²) comparisons
// beyond the shared prefix of a and b.
func BestMatch[T any](a, b []T, equal func(T, T) bool, min, max int) (int, int) {
	n, m := len(a), len(b)
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}

	// Diagonal k holds the points with x-y == k; the search starts on fmid after the shared prefix.
	// x+y-c counts every matched pair twice, which turns "at least min pairs" into this target.
	const fmid = 0
	target := fmid + 2*min

	x := 0
	for x < n && x < m && equal(a[x], b[x]) {
		x++
	}
	if x == n && x >= min && 2*x >= target {
		return 0, x
	}

	// fd[k+max+1] is the furthest x reached on diagonal k; the two outermost slots stay -1 so
	// that the band edges read as unreachable.
	fd := make([]int, 2*max+3)
	for i := range fd {
		fd[i] = -1
	}
	slot := func(k int) int { return k + max + 1 }
	fd[slot(fmid)] = x

	ymax := -1
	for c := 1; c <= max; c++ {
		for d := fmid + c; d >= fmid-c; d -= 2 {
			if d > n || d < -m {
				continue
			}
			lo, hi := fd[slot(d-1)], fd[slot(d+1)]

			// "Down" consumes one more element of a; "right" consumes one more of b.
			down, right := -1, -1
			if lo >= 0 && lo+1 <= n {
				down = lo + 1
			}
			if hi >= 0 && hi-d <= m {
				right = hi
			}
			switch {
			case down < 0 && right < 0:
				fd[slot(d)] = -1
				continue
			case down >= right:
				x = down
			default:
				x = right
			}

			y := x - d
			for x < n && y < m && equal(a[x], b[y]) {
				x++
				y++
			}
			fd[slot(d)] = x

			if x == n && y >= min && x+y-c >= target {
				if y > ymax {
					ymax = y
				}
				if y == m {
					return c, ymax
				}
			}
		}
		if ymax != -1 {
			return c, ymax
		}
	}
	return max + 1, 0
}
