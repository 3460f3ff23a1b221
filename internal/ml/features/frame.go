package features

import (
	"fmt"
	"time"
)

// Column names produced by the pipeline stages.
const (
	ColOpenInterest        = "open_interest"
	ColCommercialLong      = "commercial_long"
	ColCommercialShort     = "commercial_short"
	ColSwapLong            = "swap_dealer_long"
	ColSwapShort           = "swap_dealer_short"
	ColSwapSpread          = "swap_dealer_spread"
	ColMoneyManagerLong    = "money_manager_long"
	ColMoneyManagerShort   = "money_manager_short"
	ColMoneyManagerSpread  = "money_manager_spread"
	ColOtherLong           = "other_reportable_long"
	ColOtherShort          = "other_reportable_short"
	ColOtherSpread         = "other_reportable_spread"
	ColNonReportableLong   = "non_reportable_long"
	ColNonReportableShort  = "non_reportable_short"
	ColPrice               = "price"
	ColNetCommercial       = "net_commercial"
	ColNetSmallTrader      = "net_small_trader"
	ColCommercialOIPercent = "commercial_oi_pct"
)

// Frame is an immutable, column-oriented table keyed by strictly increasing
// dates. Stages never modify a frame; they return a new one with a higher
// version so every intermediate table stays available for inspection.
type Frame struct {
	Stage   string
	Version int
	dates   []time.Time
	columns map[string][]float64
	order   []string
}

type column struct {
	name   string
	values []float64
}

func newFrame(stage string, dates []time.Time, cols []column) (Frame, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return Frame{}, fmt.Errorf("frame dates not strictly increasing at %s", dates[i].Format("2006-01-02"))
		}
	}
	f := Frame{
		Stage:   stage,
		Version: 1,
		dates:   append([]time.Time(nil), dates...),
		columns: make(map[string][]float64, len(cols)),
	}
	for _, c := range cols {
		if err := f.put(c); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}

func (f Frame) with(stage string, cols ...column) (Frame, error) {
	next := Frame{
		Stage:   stage,
		Version: f.Version + 1,
		dates:   f.dates,
		columns: make(map[string][]float64, len(f.columns)+len(cols)),
		order:   append([]string(nil), f.order...),
	}
	for name, values := range f.columns {
		next.columns[name] = values
	}
	for _, c := range cols {
		if err := next.put(c); err != nil {
			return Frame{}, err
		}
	}
	return next, nil
}

func (f *Frame) put(c column) error {
	if len(c.values) != len(f.dates) {
		return fmt.Errorf("column %s has %d values for %d rows", c.name, len(c.values), len(f.dates))
	}
	if _, exists := f.columns[c.name]; exists {
		return fmt.Errorf("column %s already present", c.name)
	}
	f.columns[c.name] = c.values
	f.order = append(f.order, c.name)
	return nil
}

func (f Frame) Len() int {
	return len(f.dates)
}

// Dates returns a copy of the time keys.
func (f Frame) Dates() []time.Time {
	return append([]time.Time(nil), f.dates...)
}

// Columns lists column names in insertion order.
func (f Frame) Columns() []string {
	return append([]string(nil), f.order...)
}

// Column returns a copy of the named column.
func (f Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), values...), true
}

func (f Frame) mustColumn(name string) ([]float64, error) {
	values, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("frame %s v%d has no column %s", f.Stage, f.Version, name)
	}
	return values, nil
}
