package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"cot-sentiment/internal/domain"
)

// Align joins prices onto the positioning dates. Positioning cadence is
// authoritative: prices on other dates are dropped and positioning dates
// without a price are filled by time-weighted linear interpolation between
// the surrounding known prices. Nulls before the first or after the last
// known price stay NaN.
func Align(positioning []domain.PositioningRecord, prices []domain.PriceRecord) (Frame, error) {
	if len(positioning) == 0 {
		return Frame{}, fmt.Errorf("align: empty positioning series: %w", domain.ErrDataUnavailable)
	}
	if len(prices) == 0 {
		return Frame{}, fmt.Errorf("align: empty price series: %w", domain.ErrDataUnavailable)
	}

	records := append([]domain.PositioningRecord(nil), positioning...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	priceByDate := make(map[time.Time]float64, len(prices))
	for _, p := range prices {
		if domain.IsMissing(p.Price) {
			continue
		}
		priceByDate[dateKey(p.Date)] = p.Price
	}

	n := len(records)
	dates := make([]time.Time, n)
	raw := make([]float64, n)
	matched := 0
	for i, rec := range records {
		dates[i] = dateKey(rec.Date)
		if i > 0 && dates[i].Equal(dates[i-1]) {
			return Frame{}, fmt.Errorf("align: duplicate positioning date %s", dates[i].Format("2006-01-02"))
		}
		raw[i] = math.NaN()
		if p, ok := priceByDate[dates[i]]; ok {
			raw[i] = p
			matched++
		}
	}
	if matched == 0 {
		return Frame{}, fmt.Errorf("align: %d positioning dates %s..%s, %d price dates: %w",
			n, dates[0].Format("2006-01-02"), dates[n-1].Format("2006-01-02"), len(prices), domain.ErrAlignmentFailure)
	}

	cols := positioningColumns(records)
	cols = append(cols, column{name: ColPrice, values: InterpolateTime(dates, raw)})
	return newFrame("aligned", dates, cols)
}

// InterpolateTime fills NaN gaps by linear interpolation on elapsed time
// between the nearest known neighbours. Trailing gaps carry the last known
// value forward; leading gaps stay NaN.
func InterpolateTime(dates []time.Time, values []float64) []float64 {
	out := append([]float64(nil), values...)
	prev := -1
	for i := range out {
		if math.IsNaN(out[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := dates[i].Sub(dates[prev]).Hours()
			for j := prev + 1; j < i; j++ {
				frac := dates[j].Sub(dates[prev]).Hours() / span
				out[j] = out[prev] + (out[i]-out[prev])*frac
			}
		}
		prev = i
	}
	if prev >= 0 {
		for j := prev + 1; j < len(out); j++ {
			out[j] = out[prev]
		}
	}
	return out
}

func positioningColumns(records []domain.PositioningRecord) []column {
	type accessor struct {
		name string
		get  func(domain.PositioningRecord) float64
	}
	accessors := []accessor{
		{ColOpenInterest, func(r domain.PositioningRecord) float64 { return r.OpenInterest }},
		{ColCommercialLong, func(r domain.PositioningRecord) float64 { return r.Commercial.Long }},
		{ColCommercialShort, func(r domain.PositioningRecord) float64 { return r.Commercial.Short }},
		{ColSwapLong, func(r domain.PositioningRecord) float64 { return r.SwapDealer.Long }},
		{ColSwapShort, func(r domain.PositioningRecord) float64 { return r.SwapDealer.Short }},
		{ColSwapSpread, func(r domain.PositioningRecord) float64 { return r.SwapDealer.Spread }},
		{ColMoneyManagerLong, func(r domain.PositioningRecord) float64 { return r.MoneyManager.Long }},
		{ColMoneyManagerShort, func(r domain.PositioningRecord) float64 { return r.MoneyManager.Short }},
		{ColMoneyManagerSpread, func(r domain.PositioningRecord) float64 { return r.MoneyManager.Spread }},
		{ColOtherLong, func(r domain.PositioningRecord) float64 { return r.OtherReportable.Long }},
		{ColOtherShort, func(r domain.PositioningRecord) float64 { return r.OtherReportable.Short }},
		{ColOtherSpread, func(r domain.PositioningRecord) float64 { return r.OtherReportable.Spread }},
		{ColNonReportableLong, func(r domain.PositioningRecord) float64 { return r.NonReportable.Long }},
		{ColNonReportableShort, func(r domain.PositioningRecord) float64 { return r.NonReportable.Short }},
	}
	cols := make([]column, 0, len(accessors)+1)
	for _, a := range accessors {
		values := make([]float64, len(records))
		for i := range records {
			values[i] = a.get(records[i])
		}
		cols = append(cols, column{name: a.name, values: values})
	}
	return cols
}

func dateKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
