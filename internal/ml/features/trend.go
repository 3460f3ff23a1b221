package features

import "math"

const (
	ColPriceUpOIUp     = "price_up_oi_up"
	ColPriceUpOIDown   = "price_up_oi_down"
	ColPriceDownOIUp   = "price_down_oi_up"
	ColPriceDownOIDown = "price_down_oi_down"
)

// TrendColumns lists the one-period price/open-interest direction flags.
func TrendColumns() []string {
	return []string{ColPriceUpOIUp, ColPriceUpOIDown, ColPriceDownOIUp, ColPriceDownOIDown}
}

// Trends adds 1/0 flags comparing price and open interest with the previous
// row. The first row and rows touching a missing value are NaN. An unchanged
// value counts as down.
func Trends(f Frame) (Frame, error) {
	price, err := f.mustColumn(ColPrice)
	if err != nil {
		return Frame{}, err
	}
	oi, err := f.mustColumn(ColOpenInterest)
	if err != nil {
		return Frame{}, err
	}

	n := f.Len()
	upUp, upDown := nanSeries(n), nanSeries(n)
	downUp, downDown := nanSeries(n), nanSeries(n)
	for i := 1; i < n; i++ {
		if math.IsNaN(price[i]) || math.IsNaN(price[i-1]) || math.IsNaN(oi[i]) || math.IsNaN(oi[i-1]) {
			continue
		}
		priceUp := price[i] > price[i-1]
		oiUp := oi[i] > oi[i-1]
		upUp[i] = flag(priceUp && oiUp)
		upDown[i] = flag(priceUp && !oiUp)
		downUp[i] = flag(!priceUp && oiUp)
		downDown[i] = flag(!priceUp && !oiUp)
	}

	return f.with("trends",
		column{name: ColPriceUpOIUp, values: upUp},
		column{name: ColPriceUpOIDown, values: upDown},
		column{name: ColPriceDownOIUp, values: downUp},
		column{name: ColPriceDownOIDown, values: downDown},
	)
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
