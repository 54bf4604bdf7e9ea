package filters

import "errors"

// ErrWindowTooWide indicates the series is shorter than the averaging window.
var ErrWindowTooWide = errors.New("filters: series shorter than moving-average window")

// MovingAverage smooths u in place with a centered window of half-width
// num. The window shrinks near the edges so the first and last samples
// stay unbiased.
func MovingAverage(num int, u []float64) error {
	if len(u) < num {
		return ErrWindowTooWide
	}
	filtered := make([]float64, len(u))
	for i := range u {
		halfWidth := num
		if i < num {
			halfWidth = i
		} else if i+num > len(u)-1 {
			halfWidth = len(u) - i - 1
		}
		sum := 0.0
		count := 0
		for j := -halfWidth; j <= halfWidth; j++ {
			sum += u[i+j]
			count++
		}
		filtered[i] = sum / float64(count)
	}
	copy(u, filtered)
	return nil
}
