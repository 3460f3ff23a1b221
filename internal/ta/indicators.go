package ta

import "math"

// RollingMin returns the trailing minimum over [i-window+1, i].
// Positions with fewer than window observations, or with a NaN inside the
// window, are NaN.
func RollingMin(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return a <= b })
}

// RollingMax returns the trailing maximum over [i-window+1, i].
func RollingMax(values []float64, window int) []float64 {
	return rollingExtreme(values, window, func(a, b float64) bool { return a >= b })
}

// rollingExtreme keeps a monotonic deque of indexes whose values dominate
// everything after them, so each element is pushed and popped once.
func rollingExtreme(values []float64, window int, dominates func(a, b float64) bool) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	deque := make([]int, 0, window)
	lastNaN := -1
	for i, v := range values {
		if math.IsNaN(v) {
			lastNaN = i
			deque = deque[:0]
			continue
		}
		for len(deque) > 0 && deque[0] <= i-window {
			deque = deque[1:]
		}
		for len(deque) > 0 && dominates(v, values[deque[len(deque)-1]]) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if i < window-1 || lastNaN > i-window {
			continue
		}
		out[i] = values[deque[0]]
	}
	return out
}

// RollingIndex normalizes each value against its trailing window:
// ((v - min) / (max - min)) * 100. Warm-up rows, windows holding a NaN and
// zero-range windows yield NaN. Results are not clamped.
func RollingIndex(values []float64, window int) []float64 {
	mins := RollingMin(values, window)
	maxs := RollingMax(values, window)
	out := nanSeries(len(values))
	for i, v := range values {
		lo, hi := mins[i], maxs[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || hi == lo {
			continue
		}
		out[i] = (v - lo) / (hi - lo) * 100
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
