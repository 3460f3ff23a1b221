package service

import (
	"context"
	"encoding/json"
	"time"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SeriesSource fetches one dataset from start onwards. A nil start means
// the full history.
type SeriesSource interface {
	FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SourceService puts a Redis read-through cache in front of a SeriesSource.
// Without a Redis client every call goes to the source.
type SourceService struct {
	tracer trace.Tracer
	source SeriesSource
	redis  RedisClient
	ttl    time.Duration
	log    *logrus.Entry
}

func NewSourceService(tracer trace.Tracer, source SeriesSource, redisClient RedisClient, ttl time.Duration) *SourceService {
	return &SourceService{
		tracer: tracer,
		source: source,
		redis:  redisClient,
		ttl:    ttl,
		log:    logger.Component("source"),
	}
}

func (s *SourceService) FetchSeries(ctx context.Context, dataset string, start *time.Time) (domain.Series, error) {
	ctx, span := s.tracer.Start(ctx, "source-service.fetch-series", trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	key := seriesCacheKey(dataset, start)
	if s.redis != nil {
		cached, err := s.getSeriesCache(ctx, key)
		if err != nil {
			s.log.WithError(err).Warnf("redis cache read failed for %s", key)
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
	}

	series, err := s.source.FetchSeries(ctx, dataset, start)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if err := s.setSeriesCache(ctx, key, series); err != nil {
			s.log.WithError(err).Warnf("redis cache write failed for %s", key)
		}
	}
	return series, nil
}

func seriesCacheKey(dataset string, start *time.Time) string {
	from := "all"
	if start != nil {
		from = start.UTC().Format("2006-01-02")
	}
	return "series:" + dataset + ":" + from
}

func (s *SourceService) setSeriesCache(ctx context.Context, key string, series domain.Series) error {
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, s.ttl).Err()
}

func (s *SourceService) getSeriesCache(ctx context.Context, key string) (domain.Series, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var series domain.Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}
	return series, nil
}
