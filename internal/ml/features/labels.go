package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// TrimMode controls how rows without a future label are dropped.
type TrimMode string

const (
	// TrimGlobal drops the last max(horizons) rows for every horizon.
	TrimGlobal TrimMode = "global"
	// TrimPerHorizon keeps every row whose label is defined for that horizon.
	TrimPerHorizon TrimMode = "per-horizon"
)

func ParseTrimMode(raw string) (TrimMode, error) {
	switch TrimMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TrimGlobal:
		return TrimGlobal, nil
	case TrimPerHorizon, "per_horizon", "perhorizon":
		return TrimPerHorizon, nil
	default:
		return "", fmt.Errorf("unknown trim mode %q", raw)
	}
}

// LabelColumn names the label of one horizon, e.g. label_h4.
func LabelColumn(horizon int) string {
	return fmt.Sprintf("label_h%d", horizon)
}

// BuildLabels computes label_h(t) = 1 if price(t+h) > price(t), else 0.
// Rows where t+h runs past the end, or either price is missing, are NaN.
func BuildLabels(prices []float64, horizons []int) (map[int][]float64, error) {
	out := make(map[int][]float64, len(horizons))
	for _, h := range horizons {
		if h <= 0 {
			return nil, fmt.Errorf("labels: horizon must be positive, got %d", h)
		}
		labels := nanSeries(len(prices))
		for t := 0; t+h < len(prices); t++ {
			now, later := prices[t], prices[t+h]
			if math.IsNaN(now) || math.IsNaN(later) {
				continue
			}
			labels[t] = flag(later > now)
		}
		out[h] = labels
	}
	return out, nil
}

// NormalizeHorizons sorts and dedupes horizons, rejecting non-positive values.
func NormalizeHorizons(horizons []int) ([]int, error) {
	return normalizePositive("horizon", horizons)
}

// NormalizeWindows sorts and dedupes window widths.
func NormalizeWindows(windows []int) ([]int, error) {
	return normalizePositive("window", windows)
}

func normalizePositive(kind string, in []int) ([]int, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("at least one %s required", kind)
	}
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", kind, v)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}
