package evaluation

import (
	"math"
	"testing"
)

func TestComputeMetrics(t *testing.T) {
	labels := []float64{1, 1, 0, 0, 1}
	probs := []float64{0.9, 0.2, 0.6, 0.1, 0.8}
	m := computeMetrics(labels, probs)

	// tp=2 fp=1 tn=1 fn=1
	if m.Accuracy != 0.6 {
		t.Fatalf("expected accuracy 0.6, got %v", m.Accuracy)
	}
	if math.Abs(m.Precision-2.0/3.0) > 1e-12 || math.Abs(m.Recall-2.0/3.0) > 1e-12 {
		t.Fatalf("unexpected precision/recall %v %v", m.Precision, m.Recall)
	}
	if math.Abs(m.F1-2.0/3.0) > 1e-12 {
		t.Fatalf("expected F1 2/3, got %v", m.F1)
	}
	if m.N != 5 {
		t.Fatalf("expected n=5, got %d", m.N)
	}
}

func TestComputeMetricsNoPositivePredictions(t *testing.T) {
	m := computeMetrics([]float64{1, 0}, []float64{0.1, 0.2})
	if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Fatalf("expected zero precision/recall/f1, got %+v", m)
	}
	if empty := computeMetrics(nil, nil); empty.AUC != 0.5 || empty.N != 0 {
		t.Fatalf("unexpected empty metrics %+v", empty)
	}
}

func TestComputeAUC(t *testing.T) {
	if got := computeAUC([]float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}); got != 1 {
		t.Fatalf("expected perfect AUC, got %v", got)
	}
	if got := computeAUC([]float64{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}); got != 0 {
		t.Fatalf("expected inverted AUC 0, got %v", got)
	}
	if got := computeAUC([]float64{0, 1}, []float64{0.5, 0.5}); got != 0.5 {
		t.Fatalf("expected tied AUC 0.5, got %v", got)
	}
	if got := computeAUC([]float64{1, 1}, []float64{0.3, 0.4}); got != 0.5 {
		t.Fatalf("expected 0.5 for single class, got %v", got)
	}
	// one of the four up/down pairs is ordered correctly
	if got := computeAUC([]float64{1, 0, 1, 0}, []float64{0.1, 0.35, 0.4, 0.8}); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("expected AUC 0.25, got %v", got)
	}
	// unsorted input with a tie across classes
	if got := computeAUC([]float64{1, 0, 0, 1}, []float64{0.9, 0.5, 0.2, 0.5}); math.Abs(got-0.875) > 1e-12 {
		t.Fatalf("expected AUC 0.875, got %v", got)
	}
}
