package job

import (
	"context"
	"time"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/logger"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PipelineRunner interface {
	Run(ctx context.Context, symbol string) (*domain.RunReport, error)
}

// EvaluationJob re-runs the pipeline for a fixed set of symbols once a week,
// after the COT release has been published.
type EvaluationJob struct {
	tracer  trace.Tracer
	runner  PipelineRunner
	symbols []string
	weekday time.Weekday
	hour    int
	log     *logrus.Entry
	now     func() time.Time
}

func NewEvaluationJob(tracer trace.Tracer, runner PipelineRunner, symbols []string, weekday time.Weekday, hourUTC int) *EvaluationJob {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 0
	}
	return &EvaluationJob{
		tracer:  tracer,
		runner:  runner,
		symbols: symbols,
		weekday: weekday,
		hour:    hourUTC,
		log:     logger.Component("evaluation-job"),
		now:     time.Now,
	}
}

func (j *EvaluationJob) Start(ctx context.Context) {
	if j.runner == nil || len(j.symbols) == 0 {
		j.log.Info("evaluation job disabled: no symbols configured")
		<-ctx.Done()
		return
	}
	for {
		next := nextWeeklyRunUTC(j.now().UTC(), j.weekday, j.hour)
		wait := next.Sub(j.now())
		if wait < time.Second {
			wait = time.Second
		}
		j.log.WithField("next_run", next.Format(time.RFC3339)).Info("evaluation job scheduled")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

// runOnce runs every symbol and returns how many produced a report.
func (j *EvaluationJob) runOnce(ctx context.Context) int {
	ctx, span := j.tracer.Start(ctx, "evaluation-job.run-once",
		trace.WithAttributes(attribute.Int("symbols", len(j.symbols))))
	defer span.End()

	ok := 0
	for _, symbol := range j.symbols {
		if ctx.Err() != nil {
			break
		}
		report, err := j.runner.Run(ctx, symbol)
		if err != nil {
			j.log.WithError(err).WithField("symbol", symbol).Error("scheduled run failed")
			continue
		}
		ok++
		j.log.WithFields(logrus.Fields{
			"symbol":    symbol,
			"rows":      report.Rows,
			"horizons":  len(report.Results),
			"succeeded": report.Succeeded(),
		}).Info("scheduled run finished")
	}
	return ok
}

// nextWeeklyRunUTC returns the first weekday/hour slot strictly after now.
func nextWeeklyRunUTC(now time.Time, weekday time.Weekday, hour int) time.Time {
	now = now.UTC()
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	run = run.AddDate(0, 0, days)
	if !run.After(now) {
		run = run.AddDate(0, 0, 7)
	}
	return run
}
