package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cot-sentiment/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const nasdaqBaseURL = "https://data.nasdaq.com/api/v3"

// NasdaqProvider fetches time-series datasets (CFTC reports, CHRIS futures)
// from the Nasdaq Data Link v3 API, formerly Quandl.
type NasdaqProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewNasdaqProvider creates a provider. Anonymous access is limited to a
// handful of calls per ten minutes; keyed access is throttled to 10/s.
func NewNasdaqProvider(tracer trace.Tracer, baseURL, apiKey string) *NasdaqProvider {
	if baseURL == "" {
		baseURL = nasdaqBaseURL
	}
	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 5)
	if apiKey == "" {
		limiter = rate.NewLimiter(rate.Every(30*time.Second), 2)
	}
	return &NasdaqProvider{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: limiter,
	}
}

type nasdaqResponse struct {
	Dataset struct {
		DatasetCode  string   `json:"dataset_code"`
		DatabaseCode string   `json:"database_code"`
		ColumnNames  []string `json:"column_names"`
		Data         [][]any  `json:"data"`
	} `json:"dataset"`
	QuandlError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"quandl_error"`
}

// FetchSeries downloads a dataset such as "CFTC/GC_FO_ALL" in ascending
// date order, optionally starting at start.
func (p *NasdaqProvider) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	ctx, span := p.tracer.Start(ctx, "nasdaq.fetch-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	code := strings.Trim(strings.TrimSpace(dataset), "/")
	if strings.Count(code, "/") != 1 {
		return nil, fmt.Errorf("invalid dataset code %q, want DATABASE/DATASET", dataset)
	}

	q := url.Values{}
	q.Set("order", "asc")
	if p.apiKey != "" {
		q.Set("api_key", p.apiKey)
	}
	if start != nil {
		q.Set("start_date", start.UTC().Format("2006-01-02"))
	}
	u := fmt.Sprintf("%s/datasets/%s.json?%s", p.baseURL, code, q.Encode())

	body, err := p.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", code, err)
	}

	series, err := parseNasdaqDataset(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", code, err)
	}
	span.SetAttributes(attribute.Int("rows", len(series)))
	if len(series) == 0 {
		return nil, fmt.Errorf("dataset %s returned no rows: %w", code, domain.ErrDataUnavailable)
	}
	return series, nil
}

func (p *NasdaqProvider) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("nasdaq data link: dataset not found: %w", domain.ErrDataUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nasdaq data link API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// parseNasdaqDataset converts the column/row layout into observations. The
// first column is the date; null cells are left out of the field map.
func parseNasdaqDataset(body []byte) (domain.Series, error) {
	var raw nasdaqResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.QuandlError != nil {
		return nil, fmt.Errorf("%s: %s", raw.QuandlError.Code, raw.QuandlError.Message)
	}
	cols := raw.Dataset.ColumnNames
	if len(cols) < 2 {
		return nil, fmt.Errorf("expected a date column and at least one value column, got %v", cols)
	}

	out := make(domain.Series, 0, len(raw.Dataset.Data))
	for i, row := range raw.Dataset.Data {
		if len(row) == 0 {
			continue
		}
		ds, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row %d: date is %T", i, row[0])
		}
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		fields := make(map[string]float64, len(cols)-1)
		for j := 1; j < len(row) && j < len(cols); j++ {
			if v, ok := row[j].(float64); ok {
				fields[cols[j]] = v
			}
		}
		out = append(out, domain.Observation{Date: date, Fields: fields})
	}
	return out.Sorted(), nil
}
