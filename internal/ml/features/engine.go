package features

import (
	"context"
	"fmt"
	"time"

	"cot-sentiment/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const featureSpecVersion = "cot-v1"

// Config drives one pipeline build.
type Config struct {
	Windows       []int
	Horizons      []int
	Features      []string
	TrendFeatures bool
	Trim          TrimMode
}

func DefaultConfig() Config {
	return Config{
		Windows:  []int{26, 52},
		Horizons: []int{2, 4, 6, 8, 12},
		Trim:     TrimGlobal,
	}
}

// Result keeps every intermediate frame next to the final dataset.
type Result struct {
	Aligned  Frame
	Derived  Frame
	Indexed  Frame
	Labels   map[int][]float64
	Dataset  *Dataset
	Windows  []int
	Horizons []int
	BuiltAt  time.Time
}

type Engine struct {
	now    func() time.Time
	tracer trace.Tracer
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now, tracer: noop.NewTracerProvider().Tracer("features")}
}

// WithTracer returns a copy of the engine that opens one span per stage.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	c := *e
	c.tracer = tracer
	return &c
}

func FeatureSpecVersion() string {
	return featureSpecVersion
}

// FeatureColumns resolves the feature selection for cfg: explicit columns
// when given, otherwise every rolling index plus the trend flags if enabled.
func FeatureColumns(cfg Config) []string {
	if len(cfg.Features) > 0 {
		return append([]string(nil), cfg.Features...)
	}
	cols := IndexColumns(cfg.Windows)
	if cfg.TrendFeatures {
		cols = append(cols, TrendColumns()...)
	}
	return cols
}

// Build runs align, derive, indices, labels and assemble. It is a pure
// function of its inputs apart from the BuiltAt stamp.
func (e *Engine) Build(ctx context.Context, positioning []domain.PositioningRecord, prices []domain.PriceRecord, cfg Config) (*Result, error) {
	windows, err := NormalizeWindows(cfg.Windows)
	if err != nil {
		return nil, err
	}
	horizons, err := NormalizeHorizons(cfg.Horizons)
	if err != nil {
		return nil, err
	}
	cfg.Windows = windows
	cfg.Horizons = horizons

	aligned, err := e.frameStage(ctx, "align", func() (Frame, error) {
		return Align(positioning, prices)
	})
	if err != nil {
		return nil, err
	}
	derived, err := e.frameStage(ctx, "derive", func() (Frame, error) {
		f, err := Derive(aligned)
		if err != nil {
			return f, fmt.Errorf("derive: %w", err)
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	indexed, err := e.frameStage(ctx, "indices", func() (Frame, error) {
		return Indices(derived, windows)
	})
	if err != nil {
		return nil, err
	}
	if cfg.TrendFeatures {
		indexed, err = e.frameStage(ctx, "trends", func() (Frame, error) {
			f, err := Trends(indexed)
			if err != nil {
				return f, fmt.Errorf("trends: %w", err)
			}
			return f, nil
		})
		if err != nil {
			return nil, err
		}
	}

	_, span := e.tracer.Start(ctx, "features.labels", trace.WithAttributes(attribute.IntSlice("horizons", horizons)))
	price, _ := indexed.Column(ColPrice)
	labels, err := BuildLabels(price, horizons)
	endStage(span, err)
	if err != nil {
		return nil, err
	}

	_, span = e.tracer.Start(ctx, "features.assemble", trace.WithAttributes(attribute.String("trim", string(cfg.Trim))))
	ds, err := Assemble(indexed, labels, AssembleOptions{
		Features: FeatureColumns(cfg),
		Trim:     cfg.Trim,
	})
	if err == nil {
		span.SetAttributes(
			attribute.Int("rows", ds.Len()),
			attribute.Int("features", len(ds.Features)),
		)
	}
	endStage(span, err)
	if err != nil {
		return nil, err
	}

	return &Result{
		Aligned:  aligned,
		Derived:  derived,
		Indexed:  indexed,
		Labels:   labels,
		Dataset:  ds,
		Windows:  windows,
		Horizons: horizons,
		BuiltAt:  e.now().UTC(),
	}, nil
}

func (e *Engine) frameStage(ctx context.Context, name string, run func() (Frame, error)) (Frame, error) {
	_, span := e.tracer.Start(ctx, "features."+name)
	f, err := run()
	if err == nil {
		span.SetAttributes(
			attribute.Int("version", f.Version),
			attribute.Int("rows", f.Len()),
			attribute.Int("columns", len(f.Columns())),
		)
	}
	endStage(span, err)
	return f, err
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
