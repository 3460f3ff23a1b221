package evaluation

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes predictions against true labels at a 0.5 threshold.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AUC       float64 `json:"auc"`
	Brier     float64 `json:"brier"`
	N         int     `json:"n"`
}

func computeMetrics(labels []float64, probs []float64) Metrics {
	n := len(labels)
	if n == 0 || len(probs) != n {
		return Metrics{AUC: 0.5}
	}
	var tp, fp, tn, fn, brier float64
	for i := 0; i < n; i++ {
		y := labels[i]
		p := clamp01(probs[i])
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && y == 1:
			tp++
		case pred == 1 && y == 0:
			fp++
		case pred == 0 && y == 0:
			tn++
		case pred == 0 && y == 1:
			fn++
		}
		d := p - y
		brier += d * d
	}

	m := Metrics{
		Accuracy: (tp + tn) / float64(n),
		Brier:    brier / float64(n),
		AUC:      computeAUC(labels, probs),
		N:        n,
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// computeAUC integrates the ROC curve over every distinct score, so tied
// scores share one step. A single-class label set yields 0.5.
func computeAUC(labels []float64, probs []float64) float64 {
	scores := make([]float64, len(labels))
	up := make([]bool, len(labels))
	ups := 0
	for i := range labels {
		scores[i] = clamp01(probs[i])
		up[i] = labels[i] >= 0.5
		if up[i] {
			ups++
		}
	}
	if ups == 0 || ups == len(labels) {
		return 0.5
	}
	stat.SortWeightedLabeled(scores, up, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, up, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
