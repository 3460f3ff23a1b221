package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cot-sentiment/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createSeriesTable = `
CREATE TABLE IF NOT EXISTS series_observations (
    dataset     TEXT             NOT NULL,
    obs_date    DATE             NOT NULL,
    field       TEXT             NOT NULL,
    value       DOUBLE PRECISION NOT NULL,
    updated_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
    PRIMARY KEY (dataset, obs_date, field)
);

CREATE INDEX IF NOT EXISTS idx_series_observations_dataset_date
    ON series_observations (dataset, obs_date);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SeriesRepository stores provider series in long format so runs can be
// repeated without the vendor API.
type SeriesRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSeriesRepository(pool PgxPool, tracer trace.Tracer) *SeriesRepository {
	return &SeriesRepository{pool: pool, tracer: tracer}
}

func (r *SeriesRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "series-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSeriesTable)
	return err
}

// UpsertSeries writes every non-missing cell and returns how many were sent.
func (r *SeriesRepository) UpsertSeries(ctx context.Context, dataset string, series domain.Series) (int, error) {
	_, span := r.tracer.Start(ctx, "series-repo.upsert-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	batch := &pgx.Batch{}
	for _, obs := range series {
		names := make([]string, 0, len(obs.Fields))
		for name := range obs.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := obs.Fields[name]
			if domain.IsMissing(v) {
				continue
			}
			batch.Queue(
				`INSERT INTO series_observations (dataset, obs_date, field, value)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (dataset, obs_date, field) DO UPDATE SET
				     value = EXCLUDED.value,
				     updated_at = now()`,
				dataset, obs.Date.UTC(), name, v,
			)
		}
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert %s cell %d: %w", dataset, i, err)
		}
	}
	span.SetAttributes(attribute.Int("cells", batch.Len()))
	return batch.Len(), nil
}

// FetchSeries returns the stored dataset from start onwards, oldest first.
func (r *SeriesRepository) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	_, span := r.tracer.Start(ctx, "series-repo.fetch-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	from := time.Time{}
	if start != nil {
		from = start.UTC()
	}
	rows, err := r.pool.Query(ctx,
		`SELECT obs_date, field, value
		 FROM series_observations
		 WHERE dataset = $1 AND obs_date >= $2
		 ORDER BY obs_date ASC`,
		dataset, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out     domain.Series
		current *domain.Observation
	)
	for rows.Next() {
		var (
			date  time.Time
			field string
			value float64
		)
		if err := rows.Scan(&date, &field, &value); err != nil {
			return nil, err
		}
		if current == nil || !current.Date.Equal(date) {
			out = append(out, domain.Observation{Date: date.UTC(), Fields: make(map[string]float64)})
			current = &out[len(out)-1]
		}
		current.Fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no stored rows for %s: %w", dataset, domain.ErrDataUnavailable)
	}
	return out, nil
}
