package features

import (
	"fmt"

	"cot-sentiment/internal/ta"
)

type indexBase struct {
	prefix string
	source string
}

var indexBases = []indexBase{
	{prefix: "oi", source: ColOpenInterest},
	{prefix: "commercial", source: ColNetCommercial},
	{prefix: "small_trader", source: ColNetSmallTrader},
	{prefix: "commercial_oi_pct", source: ColCommercialOIPercent},
}

// IndexColumn names the rolling index of one base series, e.g. oi_index_26.
func IndexColumn(prefix string, window int) string {
	return fmt.Sprintf("%s_index_%d", prefix, window)
}

// IndexColumns lists every index column for windows, base series first.
func IndexColumns(windows []int) []string {
	out := make([]string, 0, len(indexBases)*len(windows))
	for _, b := range indexBases {
		for _, w := range windows {
			out = append(out, IndexColumn(b.prefix, w))
		}
	}
	return out
}

// Indices applies the rolling index to open interest, netCP, netST and
// CPPercent once per window.
func Indices(f Frame, windows []int) (Frame, error) {
	if len(windows) == 0 {
		return Frame{}, fmt.Errorf("indices: no windows configured")
	}
	cols := make([]column, 0, len(indexBases)*len(windows))
	for _, b := range indexBases {
		source, err := f.mustColumn(b.source)
		if err != nil {
			return Frame{}, err
		}
		for _, w := range windows {
			if w <= 0 {
				return Frame{}, fmt.Errorf("indices: window must be positive, got %d", w)
			}
			cols = append(cols, column{name: IndexColumn(b.prefix, w), values: ta.RollingIndex(source, w)})
		}
	}
	return f.with("indices", cols...)
}
