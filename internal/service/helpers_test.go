package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"cot-sentiment/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeRedis struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type fakeSource struct {
	series map[string]domain.Series
	errs   map[string]error
	calls  map[string]int
	starts map[string]*time.Time
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series: make(map[string]domain.Series),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
		starts: make(map[string]*time.Time),
	}
}

func (f *fakeSource) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	f.calls[dataset]++
	f.starts[dataset] = start
	if err := f.errs[dataset]; err != nil {
		return nil, err
	}
	s, ok := f.series[dataset]
	if !ok {
		return nil, domain.ErrDataUnavailable
	}
	return s, nil
}

type fakeRegistry map[string]domain.Commodity

func (r fakeRegistry) Get(symbol string) (domain.Commodity, bool) {
	c, ok := r[symbol]
	return c, ok
}

func (r fakeRegistry) List() []domain.Commodity {
	out := make([]domain.Commodity, 0, len(r))
	for _, c := range r {
		out = append(out, c)
	}
	return out
}

var gold = domain.Commodity{
	Symbol:             "GC",
	Name:               "Gold",
	PositioningDataset: "CFTC/GC_FO_ALL",
	PriceDataset:       "CHRIS/CME_GC1",
	PriceField:         "Last",
}

// cotSeries returns n weekly COT rows and daily prices over the same span,
// shaped like the vendor responses. price maps a day offset to a price.
func cotSeries(n int, price func(d int) float64) (domain.Series, domain.Series) {
	start := time.Date(2020, 1, 7, 0, 0, 0, 0, time.UTC)
	positioning := make(domain.Series, 0, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		positioning = append(positioning, domain.Observation{
			Date: start.AddDate(0, 0, 7*i),
			Fields: map[string]float64{
				domain.FieldOpenInterest:        50000 + 3000*math.Sin(x/3) + 100*x,
				domain.FieldProducerLongs:       20000 + 2500*math.Cos(x/4),
				domain.FieldProducerShorts:      25000 + 1500*math.Sin(x/5),
				domain.FieldNonReportableLongs:  8000 + 900*math.Sin(x/2.5),
				domain.FieldNonReportableShorts: 7000 + 600*math.Cos(x/3.5),
			},
		})
	}
	prices := make(domain.Series, 0, 7*n)
	for d := 0; d < 7*n; d++ {
		if d%7 == 5 || d%7 == 6 {
			continue
		}
		prices = append(prices, domain.Observation{
			Date:   start.AddDate(0, 0, d),
			Fields: map[string]float64{"Last": price(d), "Volume": 1000},
		})
	}
	return positioning, prices
}

func wavyPrice(d int) float64 {
	x := float64(d)
	return 100 + 10*math.Sin(x/9) + 0.05*x
}
