package service

import (
	"context"
	"fmt"
	"time"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/logger"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SeriesSink stores a dataset so a local SeriesSource can serve it later.
type SeriesSink interface {
	UpsertSeries(ctx context.Context, dataset string, series domain.Series) (int, error)
}

// SyncResult counts what was copied for one dataset.
type SyncResult struct {
	Dataset string
	Rows    int
	Cells   int
}

// SyncService copies a commodity's two datasets from a remote source into
// a sink.
type SyncService struct {
	tracer   trace.Tracer
	source   SeriesSource
	sink     SeriesSink
	registry CommodityRegistry
	log      *logrus.Entry
}

func NewSyncService(tracer trace.Tracer, source SeriesSource, sink SeriesSink, registry CommodityRegistry) *SyncService {
	return &SyncService{
		tracer:   tracer,
		source:   source,
		sink:     sink,
		registry: registry,
		log:      logger.Component("sync"),
	}
}

func (s *SyncService) Sync(ctx context.Context, symbol string) ([]SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync.commodity", trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	c, ok := s.registry.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommodity, symbol)
	}

	results := make([]SyncResult, 0, 2)
	for _, target := range []struct {
		dataset string
		start   *time.Time
	}{
		{c.PositioningDataset, nil},
		{c.PriceDataset, c.StartDate},
	} {
		res, err := s.syncDataset(ctx, target.dataset, target.start)
		if err != nil {
			return results, err
		}
		s.log.WithFields(logrus.Fields{
			"symbol":  c.Symbol,
			"dataset": target.dataset,
			"rows":    res.Rows,
			"cells":   res.Cells,
		}).Info("dataset synced")
		results = append(results, res)
	}
	return results, nil
}

func (s *SyncService) syncDataset(ctx context.Context, dataset string, start *time.Time) (SyncResult, error) {
	series, err := s.source.FetchSeries(ctx, dataset, start)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch %s: %w", dataset, err)
	}
	cells, err := s.sink.UpsertSeries(ctx, dataset, series)
	if err != nil {
		return SyncResult{}, fmt.Errorf("store %s: %w", dataset, err)
	}
	return SyncResult{Dataset: dataset, Rows: len(series), Cells: cells}, nil
}
