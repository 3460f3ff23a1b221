package service

import (
	"context"
	"fmt"
	"time"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/logger"
	"cot-sentiment/internal/ml/evaluation"
	"cot-sentiment/internal/ml/features"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type CommodityRegistry interface {
	Get(symbol string) (domain.Commodity, bool)
	List() []domain.Commodity
}

type Evaluator interface {
	EvaluateAll(ctx context.Context, ds *features.Dataset, horizons []int) ([]domain.HorizonResult, error)
	Classifier() string
	SplitRatio() float64
}

// PipelineService runs fetch, feature build and evaluation for a commodity.
type PipelineService struct {
	tracer    trace.Tracer
	source    SeriesSource
	registry  CommodityRegistry
	engine    *features.Engine
	evaluator Evaluator
	cfg       features.Config
	log       *logrus.Entry
	now       func() time.Time
}

func NewPipelineService(
	tracer trace.Tracer,
	source SeriesSource,
	registry CommodityRegistry,
	evaluator Evaluator,
	cfg features.Config,
) *PipelineService {
	return &PipelineService{
		tracer:    tracer,
		source:    source,
		registry:  registry,
		engine:    features.NewEngine(nil).WithTracer(tracer),
		evaluator: evaluator,
		cfg:       cfg,
		log:       logger.Component("pipeline"),
		now:       time.Now,
	}
}

func (s *PipelineService) Commodities() []domain.Commodity {
	return s.registry.List()
}

// Run looks the symbol up in the registry and runs the pipeline for it.
func (s *PipelineService) Run(ctx context.Context, symbol string) (*domain.RunReport, error) {
	c, ok := s.registry.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommodity, symbol)
	}
	return s.RunCommodity(ctx, c)
}

// RunCommodity fetches both series, builds the dataset and evaluates every
// horizon. Per-horizon failures are reported on the result, not returned.
func (s *PipelineService) RunCommodity(ctx context.Context, c domain.Commodity) (*domain.RunReport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("symbol", c.Symbol),
		attribute.String("classifier", s.evaluator.Classifier()),
	))
	defer span.End()

	log := s.log.WithField("symbol", c.Symbol)
	report, err := s.run(ctx, c, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("pipeline run failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("rows", report.Rows),
		attribute.Int("succeeded", report.Succeeded()),
	)
	return report, nil
}

func (s *PipelineService) run(ctx context.Context, c domain.Commodity, log *logrus.Entry) (*domain.RunReport, error) {
	// The start date only bounds prices. Earlier positioning rows fill the
	// rolling windows before the first priced week.
	positioningSeries, err := s.source.FetchSeries(ctx, c.PositioningDataset, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch positioning %s: %w", c.PositioningDataset, err)
	}
	priceSeries, err := s.source.FetchSeries(ctx, c.PriceDataset, c.StartDate)
	if err != nil {
		return nil, fmt.Errorf("fetch prices %s: %w", c.PriceDataset, err)
	}

	positioning, err := domain.PositioningFromSeries(positioningSeries)
	if err != nil {
		return nil, fmt.Errorf("decode positioning %s: %w", c.PositioningDataset, err)
	}
	prices, err := domain.PricesFromSeries(priceSeries, c.PriceField)
	if err != nil {
		return nil, fmt.Errorf("decode prices %s: %w", c.PriceDataset, err)
	}
	log.WithFields(logrus.Fields{
		"positioning_rows": len(positioning),
		"price_rows":       len(prices),
	}).Info("series fetched")

	res, err := s.build(ctx, positioning, prices)
	if err != nil {
		return nil, err
	}
	ds := res.Dataset
	for _, fs := range ds.Summary() {
		log.WithFields(logrus.Fields{
			"feature": fs.Name,
			"mean":    fs.Mean,
			"std":     fs.Std,
			"min":     fs.Min,
			"max":     fs.Max,
		}).Debug("feature summary")
	}

	results, err := s.evaluator.EvaluateAll(ctx, ds, res.Horizons)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	for _, r := range results {
		entry := log.WithField("horizon", r.Horizon)
		if r.Failed {
			entry.Warn(r.Error)
			continue
		}
		entry.WithFields(logrus.Fields{
			"f1":       r.F1,
			"accuracy": r.Accuracy,
		}).Info("horizon evaluated")
	}

	report := &domain.RunReport{
		Symbol:      c.Symbol,
		Name:        c.Name,
		Classifier:  s.evaluator.Classifier(),
		FeatureSpec: features.FeatureSpecVersion(),
		TrimMode:    string(ds.Trim),
		Windows:     res.Windows,
		Features:    ds.Features,
		Rows:        ds.Len(),
		SplitRatio:  s.evaluator.SplitRatio(),
		Results:     results,
		GeneratedAt: s.now().UTC(),
	}
	if n := len(ds.Dates); n > 0 {
		from, to := ds.Dates[0], ds.Dates[n-1]
		report.From = &from
		report.To = &to
	}
	return report, nil
}

// build wraps the feature engine in a span. The engine opens a child span
// per frame stage.
func (s *PipelineService) build(ctx context.Context, positioning []domain.PositioningRecord, prices []domain.PriceRecord) (*features.Result, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.build-features", trace.WithAttributes(
		attribute.String("feature_spec", features.FeatureSpecVersion()),
	))
	defer span.End()

	res, err := s.engine.Build(ctx, positioning, prices, s.cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("rows", res.Dataset.Len()),
		attribute.Int("features", len(res.Dataset.Features)),
	)
	return res, nil
}

var _ Evaluator = (*evaluation.Service)(nil)
