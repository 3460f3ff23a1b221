package features

import "math"

// Derive adds the net commercial position, the net small-trader
// (non-reportable) position and the commercial net as a share of open
// interest. The share is NaN where open interest is zero or missing.
func Derive(f Frame) (Frame, error) {
	oi, err := f.mustColumn(ColOpenInterest)
	if err != nil {
		return Frame{}, err
	}
	cl, err := f.mustColumn(ColCommercialLong)
	if err != nil {
		return Frame{}, err
	}
	cs, err := f.mustColumn(ColCommercialShort)
	if err != nil {
		return Frame{}, err
	}
	sl, err := f.mustColumn(ColNonReportableLong)
	if err != nil {
		return Frame{}, err
	}
	ss, err := f.mustColumn(ColNonReportableShort)
	if err != nil {
		return Frame{}, err
	}

	n := f.Len()
	netCP := make([]float64, n)
	netST := make([]float64, n)
	pct := make([]float64, n)
	for i := 0; i < n; i++ {
		netCP[i] = cl[i] - cs[i]
		netST[i] = sl[i] - ss[i]
		if oi[i] == 0 || math.IsNaN(oi[i]) {
			pct[i] = math.NaN()
			continue
		}
		pct[i] = netCP[i] / oi[i]
	}

	return f.with("derived",
		column{name: ColNetCommercial, values: netCP},
		column{name: ColNetSmallTrader, values: netST},
		column{name: ColCommercialOIPercent, values: pct},
	)
}
