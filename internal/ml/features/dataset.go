package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type AssembleOptions struct {
	Features []string
	Trim     TrimMode
}

// Dataset is the cleaned feature matrix with one label column per horizon.
// Rows are in chronological order.
type Dataset struct {
	Features []string
	Horizons []int
	Trim     TrimMode
	Dates    []time.Time
	X        [][]float64
	Labels   map[int][]float64
}

// FeatureSummary describes one feature column of a dataset.
type FeatureSummary struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Assemble selects the feature columns, attaches the labels and drops every
// row with a missing feature. In global trim mode the last max(horizons)
// rows and any row with a missing label are dropped as well.
func Assemble(f Frame, labels map[int][]float64, opts AssembleOptions) (*Dataset, error) {
	if len(opts.Features) == 0 {
		return nil, fmt.Errorf("assemble: no feature columns selected")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("assemble: no labels")
	}
	trim := opts.Trim
	if trim == "" {
		trim = TrimGlobal
	}

	featureCols := make([][]float64, len(opts.Features))
	for i, name := range opts.Features {
		values, err := f.mustColumn(name)
		if err != nil {
			return nil, fmt.Errorf("assemble: %w", err)
		}
		featureCols[i] = values
	}

	horizons := make([]int, 0, len(labels))
	maxH := 0
	for h, values := range labels {
		if len(values) != f.Len() {
			return nil, fmt.Errorf("assemble: horizon %d has %d labels for %d rows", h, len(values), f.Len())
		}
		horizons = append(horizons, h)
		if h > maxH {
			maxH = h
		}
	}
	sort.Ints(horizons)

	n := f.Len()
	limit := n
	if trim == TrimGlobal {
		limit = n - maxH
	}

	ds := &Dataset{
		Features: append([]string(nil), opts.Features...),
		Horizons: horizons,
		Trim:     trim,
		Labels:   make(map[int][]float64, len(horizons)),
	}
	for i := 0; i < limit; i++ {
		row := make([]float64, len(featureCols))
		complete := true
		for j, col := range featureCols {
			if math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
				complete = false
				break
			}
			row[j] = col[i]
		}
		if !complete {
			continue
		}
		if trim == TrimGlobal && anyLabelMissing(labels, horizons, i) {
			continue
		}
		ds.Dates = append(ds.Dates, f.dates[i])
		ds.X = append(ds.X, row)
		for _, h := range horizons {
			ds.Labels[h] = append(ds.Labels[h], labels[h][i])
		}
	}
	return ds, nil
}

func anyLabelMissing(labels map[int][]float64, horizons []int, i int) bool {
	for _, h := range horizons {
		if math.IsNaN(labels[h][i]) {
			return true
		}
	}
	return false
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.X)
}

// ForHorizon returns the rows with a defined label for horizon, in order.
func (d *Dataset) ForHorizon(horizon int) ([][]float64, []float64, []time.Time, error) {
	labels, ok := d.Labels[horizon]
	if !ok {
		return nil, nil, nil, fmt.Errorf("dataset has no horizon %d", horizon)
	}
	x := make([][]float64, 0, len(d.X))
	y := make([]float64, 0, len(d.X))
	dates := make([]time.Time, 0, len(d.X))
	for i, label := range labels {
		if math.IsNaN(label) {
			continue
		}
		x = append(x, d.X[i])
		y = append(y, label)
		dates = append(dates, d.Dates[i])
	}
	return x, y, dates, nil
}

// Summary reports mean, population std, min and max of every feature.
func (d *Dataset) Summary() []FeatureSummary {
	if d.Len() == 0 {
		return nil
	}
	out := make([]FeatureSummary, len(d.Features))
	col := make([]float64, len(d.X))
	for j, name := range d.Features {
		for i := range d.X {
			col[i] = d.X[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		out[j] = FeatureSummary{
			Name: name,
			Mean: mean,
			Std:  std,
			Min:  floats.Min(col),
			Max:  floats.Max(col),
		}
	}
	return out
}
