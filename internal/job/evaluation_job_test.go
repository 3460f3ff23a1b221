package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cot-sentiment/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (s *stubRunner) Run(ctx context.Context, symbol string) (*domain.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, symbol)
	if s.fail[symbol] {
		return nil, errors.New("fetch failed")
	}
	return &domain.RunReport{Symbol: symbol, Results: []domain.HorizonResult{{Horizon: 2}}}, nil
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestNextWeeklyRunUTC(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	wed := time.Date(2024, 3, 6, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		now     time.Time
		weekday time.Weekday
		hour    int
		want    time.Time
	}{
		{"later this week", wed, time.Saturday, 6, time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC)},
		{"later today", wed, time.Wednesday, 12, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)},
		{"earlier today rolls a week", wed, time.Wednesday, 6, time.Date(2024, 3, 13, 6, 0, 0, 0, time.UTC)},
		{"exact slot rolls a week", time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC), time.Saturday, 6, time.Date(2024, 3, 16, 6, 0, 0, 0, time.UTC)},
		{"earlier weekday", wed, time.Monday, 0, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := nextWeeklyRunUTC(tt.now, tt.weekday, tt.hour); !got.Equal(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	runner := &stubRunner{fail: map[string]bool{"SI": true}}
	job := NewEvaluationJob(trace.NewNoopTracerProvider().Tracer("test"), runner, []string{"GC", "SI", "HG"}, time.Saturday, 6)

	if ok := job.runOnce(context.Background()); ok != 2 {
		t.Fatalf("expected 2 successful runs, got %d", ok)
	}
	if runner.count() != 3 {
		t.Fatalf("expected every symbol attempted, got %v", runner.calls)
	}
}

func TestNewEvaluationJobClampsHour(t *testing.T) {
	job := NewEvaluationJob(trace.NewNoopTracerProvider().Tracer("test"), &stubRunner{}, nil, time.Saturday, 30)
	if job.hour != 0 {
		t.Fatalf("expected hour clamped to 0, got %d", job.hour)
	}
}

func TestStartRunsWhenSlotArrives(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	job := NewEvaluationJob(trace.NewNoopTracerProvider().Tracer("test"), runner, []string{"GC"}, time.Saturday, 6)
	// One second before the slot, so the minimum wait fires it.
	job.now = func() time.Time { return time.Date(2024, 3, 9, 5, 59, 59, 500_000_000, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for runner.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
	if runner.count() == 0 {
		t.Fatal("expected the job to run")
	}
}

func TestStartDisabledWithoutSymbols(t *testing.T) {
	job := NewEvaluationJob(trace.NewNoopTracerProvider().Tracer("test"), &stubRunner{}, nil, time.Saturday, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job.Start(ctx)
}
