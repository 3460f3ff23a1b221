package provider

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"cot-sentiment/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestParquetPath(t *testing.T) {
	got := ParquetPath("data", "CFTC/GC_FO_ALL")
	if got != filepath.Join("data", "CFTC_GC_FO_ALL.parquet") {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)
	series := domain.Series{
		{Date: d2, Fields: map[string]float64{"Last": 2050.5, "Volume": math.NaN()}},
		{Date: d1, Fields: map[string]float64{"Last": 2040, "Volume": 1000}},
	}

	path, err := WriteParquetSeries(dir, "CHRIS/CME_GC1", series)
	if err != nil {
		t.Fatalf("WriteParquetSeries: %v", err)
	}
	if path != ParquetPath(dir, "CHRIS/CME_GC1") {
		t.Fatalf("unexpected path %s", path)
	}

	src := NewParquetSource(trace.NewNoopTracerProvider().Tracer("test"), dir)
	got, err := src.FetchSeries(context.Background(), "CHRIS/CME_GC1", nil)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(got) != 2 || !got[0].Date.Equal(d1) {
		t.Fatalf("unexpected series %+v", got)
	}
	if got[0].Fields["Last"] != 2040 || got[0].Fields["Volume"] != 1000 {
		t.Fatalf("unexpected first row %+v", got[0].Fields)
	}
	if _, ok := got[1].Fields["Volume"]; ok {
		t.Fatal("missing values must not be written")
	}

	later, err := src.FetchSeries(context.Background(), "CHRIS/CME_GC1", &d2)
	if err != nil {
		t.Fatalf("FetchSeries with start: %v", err)
	}
	if len(later) != 1 || later[0].Fields["Last"] != 2050.5 {
		t.Fatalf("expected only rows from start, got %+v", later)
	}
}

func TestParquetSourceMissingFile(t *testing.T) {
	src := NewParquetSource(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir())
	if _, err := src.FetchSeries(context.Background(), "CFTC/GC_FO_ALL", nil); !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestParquetUpsertMergesCells(t *testing.T) {
	dir := t.TempDir()
	src := NewParquetSource(trace.NewNoopTracerProvider().Tracer("test"), dir)
	ctx := context.Background()
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)

	n, err := src.UpsertSeries(ctx, "CHRIS/CME_GC1", domain.Series{
		{Date: d1, Fields: map[string]float64{"Last": 2040, "Volume": 1000}},
	})
	if err != nil || n != 2 {
		t.Fatalf("first upsert: n=%d err=%v", n, err)
	}

	n, err = src.UpsertSeries(ctx, "CHRIS/CME_GC1", domain.Series{
		{Date: d1, Fields: map[string]float64{"Last": 2041, "Settle": math.NaN()}},
		{Date: d2, Fields: map[string]float64{"Last": 2050}},
	})
	if err != nil || n != 2 {
		t.Fatalf("second upsert: n=%d err=%v", n, err)
	}

	got, err := src.FetchSeries(ctx, "CHRIS/CME_GC1", nil)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got)
	}
	if got[0].Fields["Last"] != 2041 || got[0].Fields["Volume"] != 1000 {
		t.Fatalf("expected replaced Last and kept Volume, got %+v", got[0].Fields)
	}
	if got[1].Fields["Last"] != 2050 {
		t.Fatalf("unexpected second row %+v", got[1].Fields)
	}
}
