package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/ml/features"
	"cot-sentiment/internal/ml/models/xgboost"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultSplitRatio = 0.8

type Config struct {
	SplitRatio float64
}

// Service fits one classifier per horizon on a chronological split.
// Horizons never share state.
type Service struct {
	tracer  trace.Tracer
	trainer Trainer
	cfg     Config
}

func NewService(tracer trace.Tracer, trainer Trainer, cfg Config) *Service {
	if cfg.SplitRatio <= 0 || cfg.SplitRatio >= 1 {
		cfg.SplitRatio = DefaultSplitRatio
	}
	if trainer == nil {
		trainer, _ = NewTrainer(ClassifierLogReg, TrainerOptions{})
	}
	return &Service{tracer: tracer, trainer: trainer, cfg: cfg}
}

func (s *Service) Classifier() string {
	return s.trainer.Name()
}

func (s *Service) SplitRatio() float64 {
	return s.cfg.SplitRatio
}

// SplitIndex returns floor(n * ratio): rows before it train, the rest test.
func SplitIndex(n int, ratio float64) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(float64(n) * ratio))
}

// Evaluate trains on the earliest rows of one horizon and scores the rest.
func (s *Service) Evaluate(ctx context.Context, ds *features.Dataset, horizon int, splitRatio float64) (domain.HorizonResult, error) {
	_, span := s.tracer.Start(ctx, "evaluation.horizon", trace.WithAttributes(
		attribute.Int("horizon", horizon),
		attribute.String("classifier", s.trainer.Name()),
	))
	defer span.End()

	result, err := s.evaluate(ds, horizon, splitRatio)
	if err != nil {
		span.RecordError(err)
		if IsHorizonFailure(err) {
			span.SetAttributes(attribute.Bool("skipped", true))
		} else {
			span.SetStatus(codes.Error, err.Error())
		}
		return result, err
	}
	span.SetAttributes(
		attribute.Float64("f1", result.F1),
		attribute.Float64("accuracy", result.Accuracy),
	)
	return result, nil
}

func (s *Service) evaluate(ds *features.Dataset, horizon int, splitRatio float64) (domain.HorizonResult, error) {
	result := domain.HorizonResult{Horizon: horizon}
	if splitRatio <= 0 || splitRatio >= 1 {
		return result, fmt.Errorf("split ratio must be in (0,1), got %v", splitRatio)
	}
	if ds == nil {
		return result, fmt.Errorf("horizon %d: no dataset: %w", horizon, domain.ErrInsufficientHistory)
	}

	x, y, _, err := ds.ForHorizon(horizon)
	if err != nil {
		return result, err
	}
	n := len(x)
	split := SplitIndex(n, splitRatio)
	if split == 0 || split == n {
		return result, fmt.Errorf("horizon %d: %d rows leave an empty side at split %v: %w",
			horizon, n, splitRatio, domain.ErrInsufficientHistory)
	}

	trainX, trainY := x[:split], y[:split]
	testX, testY := x[split:], y[split:]
	result.TrainRows = len(trainX)
	result.TestRows = len(testX)

	if classCount(trainY) < 2 {
		return result, fmt.Errorf("horizon %d: %d training rows: %w", horizon, len(trainY), domain.ErrDegenerateTrainingSet)
	}

	model, err := s.trainer.Train(trainX, trainY, ds.Features)
	if errors.Is(err, xgboost.ErrSingleClass) {
		return result, fmt.Errorf("horizon %d: %v: %w", horizon, err, domain.ErrDegenerateTrainingSet)
	}
	if err != nil {
		return result, fmt.Errorf("horizon %d: train %s: %w", horizon, s.trainer.Name(), err)
	}

	m := computeMetrics(testY, model.PredictBatch(testX))
	result.F1 = m.F1
	result.Accuracy = m.Accuracy
	result.Precision = m.Precision
	result.Recall = m.Recall
	result.AUC = m.AUC
	if cm, ok := model.(coefficientModel); ok {
		result.Coefficients = cm.Coefficients()
	}
	return result, nil
}

// EvaluateAll runs every horizon in order. A failing horizon is reported on
// its result and the remaining horizons still run. Only a cancelled context
// stops the loop early.
func (s *Service) EvaluateAll(ctx context.Context, ds *features.Dataset, horizons []int) ([]domain.HorizonResult, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.all", trace.WithAttributes(
		attribute.Int("horizons", len(horizons)),
		attribute.Int("rows", ds.Len()),
	))
	defer span.End()

	results := make([]domain.HorizonResult, 0, len(horizons))
	for _, h := range horizons {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.Evaluate(ctx, ds, h, s.cfg.SplitRatio)
		if err != nil {
			res.Failed = true
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// IsHorizonFailure reports whether err comes from the horizon's data (too
// little history or one class) rather than from the classifier itself.
func IsHorizonFailure(err error) bool {
	return errors.Is(err, domain.ErrInsufficientHistory) || errors.Is(err, domain.ErrDegenerateTrainingSet)
}

func classCount(labels []float64) int {
	seen := make(map[float64]struct{}, 2)
	for _, v := range labels {
		seen[v] = struct{}{}
	}
	return len(seen)
}
