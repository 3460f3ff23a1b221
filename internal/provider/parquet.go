package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cot-sentiment/internal/domain"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SeriesPoint is one (date, field, value) cell of a dataset in long format.
type SeriesPoint struct {
	Dataset string  `parquet:"name=dataset, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date    string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Field   string  `parquet:"name=field, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value   float64 `parquet:"name=value, type=DOUBLE, encoding=PLAIN"`
}

// ParquetSource reads datasets previously written by WriteParquetSeries,
// one file per dataset under dir.
type ParquetSource struct {
	dir    string
	tracer trace.Tracer
}

func NewParquetSource(tracer trace.Tracer, dir string) *ParquetSource {
	return &ParquetSource{dir: dir, tracer: tracer}
}

// ParquetPath maps a dataset code like "CFTC/GC_FO_ALL" to its file.
func ParquetPath(dir, dataset string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(strings.TrimSpace(dataset))
	return filepath.Join(dir, name+".parquet")
}

func (s *ParquetSource) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	_, span := s.tracer.Start(ctx, "parquet.fetch-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	path := ParquetPath(s.dir, dataset)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no parquet file for %s at %s: %w", dataset, path, domain.ErrDataUnavailable)
	}

	points, err := readParquetPoints(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	byDate := make(map[string]map[string]float64)
	for _, pt := range points {
		fields, ok := byDate[pt.Date]
		if !ok {
			fields = make(map[string]float64)
			byDate[pt.Date] = fields
		}
		fields[pt.Field] = pt.Value
	}

	out := make(domain.Series, 0, len(byDate))
	for ds, fields := range byDate {
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			return nil, fmt.Errorf("read %s: bad date %q: %w", path, ds, err)
		}
		if start != nil && date.Before(start.UTC()) {
			continue
		}
		out = append(out, domain.Observation{Date: date, Fields: fields})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parquet file %s holds no rows for %s: %w", path, dataset, domain.ErrDataUnavailable)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out.Sorted(), nil
}

func readParquetPoints(path string) ([]SeriesPoint, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(SeriesPoint), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	points := make([]SeriesPoint, n)
	if n == 0 {
		return points, nil
	}
	if err := pr.Read(&points); err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return points, nil
}

// WriteParquetSeries replaces the dataset's file with series in long format.
func WriteParquetSeries(dir, dataset string, series domain.Series) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create parquet dir: %w", err)
	}
	path := ParquetPath(dir, dataset)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(SeriesPoint), 4)
	if err != nil {
		return "", fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP

	for _, obs := range series.Sorted() {
		names := make([]string, 0, len(obs.Fields))
		for name := range obs.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		date := obs.Date.UTC().Format("2006-01-02")
		for _, name := range names {
			v := obs.Fields[name]
			if domain.IsMissing(v) {
				continue
			}
			if err := pw.Write(SeriesPoint{Dataset: dataset, Date: date, Field: name, Value: v}); err != nil {
				return "", fmt.Errorf("failed to write parquet data: %w", err)
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		return "", fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return path, nil
}

// UpsertSeries merges series into the dataset's file cell by cell and returns
// how many non-missing cells were written from series.
func (s *ParquetSource) UpsertSeries(ctx context.Context, dataset string, series domain.Series) (int, error) {
	ctx, span := s.tracer.Start(ctx, "parquet.upsert-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	existing, err := s.FetchSeries(ctx, dataset, nil)
	if err != nil && !errors.Is(err, domain.ErrDataUnavailable) {
		return 0, err
	}

	byDate := make(map[time.Time]map[string]float64, len(existing)+len(series))
	for _, obs := range existing {
		byDate[obs.Date.UTC()] = obs.Fields
	}
	cells := 0
	for _, obs := range series {
		date := obs.Date.UTC()
		fields, ok := byDate[date]
		if !ok {
			fields = make(map[string]float64, len(obs.Fields))
			byDate[date] = fields
		}
		for name, v := range obs.Fields {
			if domain.IsMissing(v) {
				continue
			}
			fields[name] = v
			cells++
		}
	}

	merged := make(domain.Series, 0, len(byDate))
	for date, fields := range byDate {
		merged = append(merged, domain.Observation{Date: date, Fields: fields})
	}
	if _, err := WriteParquetSeries(s.dir, dataset, merged); err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("cells", cells))
	return cells, nil
}
