package domain

import (
	"fmt"
	"sort"
	"time"
)

// Field names used by the CFTC disaggregated futures-and-options reports.
const (
	FieldOpenInterest        = "Open Interest"
	FieldProducerLongs       = "Producer/Merchant/Processor/User Longs"
	FieldProducerShorts      = "Producer/Merchant/Processor/User Shorts"
	FieldSwapLongs           = "Swap Dealer Longs"
	FieldSwapShorts          = "Swap Dealer Shorts"
	FieldSwapSpreads         = "Swap Dealer Spreads"
	FieldMoneyManagerLongs   = "Money Manager Longs"
	FieldMoneyManagerShorts  = "Money Manager Shorts"
	FieldMoneyManagerSpreads = "Money Manager Spreads"
	FieldOtherLongs          = "Other Reportable Longs"
	FieldOtherShorts         = "Other Reportable Shorts"
	FieldOtherSpreads        = "Other Reportable Spreads"
	FieldNonReportableLongs  = "Non Reportable Longs"
	FieldNonReportableShorts = "Non Reportable Shorts"
	DefaultPriceField        = "Last"
)

var requiredPositioningFields = []string{
	FieldOpenInterest,
	FieldProducerLongs,
	FieldProducerShorts,
	FieldNonReportableLongs,
	FieldNonReportableShorts,
}

// Observation is one dated row of named numeric fields as returned by a source.
type Observation struct {
	Date   time.Time          `json:"date"`
	Fields map[string]float64 `json:"fields"`
}

// Series is an ordered set of observations for one dataset.
type Series []Observation

// Sorted returns a copy ordered by date. Later duplicates replace earlier ones.
func (s Series) Sorted() Series {
	byDate := make(map[time.Time]Observation, len(s))
	for _, obs := range s {
		byDate[obs.Date.UTC()] = obs
	}
	out := make(Series, 0, len(byDate))
	for date, obs := range byDate {
		obs.Date = date
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// PositioningFromSeries decodes COT report rows.
func PositioningFromSeries(s Series) ([]PositioningRecord, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("positioning series: %w", ErrDataUnavailable)
	}
	sorted := s.Sorted()
	out := make([]PositioningRecord, 0, len(sorted))
	for _, obs := range sorted {
		for _, name := range requiredPositioningFields {
			if _, ok := obs.Fields[name]; !ok {
				return nil, fmt.Errorf("positioning row %s missing %q: %w", obs.Date.Format("2006-01-02"), name, ErrDataUnavailable)
			}
		}
		f := obs.Fields
		out = append(out, PositioningRecord{
			Date:            obs.Date,
			OpenInterest:    f[FieldOpenInterest],
			Commercial:      TraderPosition{Long: f[FieldProducerLongs], Short: f[FieldProducerShorts]},
			SwapDealer:      TraderPosition{Long: f[FieldSwapLongs], Short: f[FieldSwapShorts], Spread: f[FieldSwapSpreads]},
			MoneyManager:    TraderPosition{Long: f[FieldMoneyManagerLongs], Short: f[FieldMoneyManagerShorts], Spread: f[FieldMoneyManagerSpreads]},
			OtherReportable: TraderPosition{Long: f[FieldOtherLongs], Short: f[FieldOtherShorts], Spread: f[FieldOtherSpreads]},
			NonReportable:   TraderPosition{Long: f[FieldNonReportableLongs], Short: f[FieldNonReportableShorts]},
		})
	}
	return out, nil
}

// PricesFromSeries extracts one price field. Rows without the field are skipped.
func PricesFromSeries(s Series, field string) ([]PriceRecord, error) {
	if field == "" {
		field = DefaultPriceField
	}
	sorted := s.Sorted()
	out := make([]PriceRecord, 0, len(sorted))
	for _, obs := range sorted {
		v, ok := obs.Fields[field]
		if !ok || IsMissing(v) {
			continue
		}
		out = append(out, PriceRecord{Date: obs.Date, Price: v})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("price series has no %q values: %w", field, ErrDataUnavailable)
	}
	return out, nil
}
