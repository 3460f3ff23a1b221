package features

import (
	"math"
	"testing"
	"time"
)

func testFrame(t *testing.T, feature []float64) Frame {
	t.Helper()
	dates := make([]time.Time, len(feature))
	for i := range dates {
		dates[i] = day(2024, 1, 1).AddDate(0, 0, 7*i)
	}
	f, err := newFrame("test", dates, []column{{name: "f", values: feature}})
	if err != nil {
		t.Fatalf("newFrame: %v", err)
	}
	return f
}

func TestAssembleGlobalTrim(t *testing.T) {
	nan := math.NaN()
	f := testFrame(t, []float64{nan, 1, 2, 3, 4, 5, 6, 7})
	labels, err := BuildLabels([]float64{1, 2, 3, 2, 1, 2, 3, 4}, []int{1, 3})
	if err != nil {
		t.Fatalf("BuildLabels: %v", err)
	}

	ds, err := Assemble(f, labels, AssembleOptions{Features: []string{"f"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// row 0 is warm-up, rows 5..7 are the tail for max horizon 3
	if ds.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", ds.Len())
	}
	if ds.X[0][0] != 1 || ds.X[3][0] != 4 {
		t.Fatalf("unexpected rows %v", ds.X)
	}
	x, y, _, err := ds.ForHorizon(1)
	if err != nil {
		t.Fatalf("ForHorizon: %v", err)
	}
	if len(x) != 4 || len(y) != 4 {
		t.Fatalf("global trim must give every horizon the same rows, got %d", len(x))
	}
}

func TestAssemblePerHorizonTrim(t *testing.T) {
	f := testFrame(t, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	labels, err := BuildLabels([]float64{1, 2, 3, 2, 1, 2, 3, 4}, []int{1, 3})
	if err != nil {
		t.Fatalf("BuildLabels: %v", err)
	}
	ds, err := Assemble(f, labels, AssembleOptions{Features: []string{"f"}, Trim: TrimPerHorizon})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ds.Len() != 8 {
		t.Fatalf("expected every row kept, got %d", ds.Len())
	}
	x1, _, _, _ := ds.ForHorizon(1)
	x3, y3, dates3, _ := ds.ForHorizon(3)
	if len(x1) != 7 || len(x3) != 5 {
		t.Fatalf("expected 7 and 5 labelled rows, got %d and %d", len(x1), len(x3))
	}
	for i, v := range y3 {
		if math.IsNaN(v) {
			t.Fatalf("ForHorizon returned NaN label at %d", i)
		}
	}
	if !dates3[4].Equal(day(2024, 1, 1).AddDate(0, 0, 28)) {
		t.Fatalf("unexpected last date %s", dates3[4])
	}
	if _, _, _, err := ds.ForHorizon(2); err == nil {
		t.Fatal("expected error for unknown horizon")
	}
}

func TestAssembleErrors(t *testing.T) {
	f := testFrame(t, []float64{1, 2})
	labels := map[int][]float64{1: {1, math.NaN()}}
	if _, err := Assemble(f, labels, AssembleOptions{}); err == nil {
		t.Fatal("expected error without features")
	}
	if _, err := Assemble(f, labels, AssembleOptions{Features: []string{"missing"}}); err == nil {
		t.Fatal("expected error for unknown column")
	}
	if _, err := Assemble(f, map[int][]float64{1: {1}}, AssembleOptions{Features: []string{"f"}}); err == nil {
		t.Fatal("expected error for label length mismatch")
	}
}

func TestDatasetSummary(t *testing.T) {
	f := testFrame(t, []float64{2, 4, 4, 4, 5, 5, 7, 9, 0})
	labels := map[int][]float64{1: {1, 0, 1, 0, 1, 0, 1, 0, math.NaN()}}
	ds, err := Assemble(f, labels, AssembleOptions{Features: []string{"f"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	summary := ds.Summary()
	if len(summary) != 1 {
		t.Fatalf("expected one summary, got %d", len(summary))
	}
	s := summary[0]
	if s.Mean != 5 || s.Std != 2 || s.Min != 2 || s.Max != 9 {
		t.Fatalf("unexpected summary %+v", s)
	}
}
