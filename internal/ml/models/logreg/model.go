package logreg

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrainOptions configures gradient descent. C is the inverse L2
// regularization strength; the per-sample penalty applied is 1/(C*n).
type TrainOptions struct {
	LearningRate float64
	Epochs       int
	C            float64
}

type Model struct {
	featureNames []string
	weights      []float64
	bias         float64
	means        []float64
	stds         []float64
	opts         TrainOptions
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LearningRate: 0.05,
		Epochs:       600,
		C:            1.0,
	}
}

func Train(samples [][]float64, labels []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	if !hasBothClasses(labels) {
		return nil, errors.New("logistic regression requires two classes")
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultTrainOptions().Epochs
	}
	if opts.C <= 0 {
		opts.C = DefaultTrainOptions().C
	}

	featCount := len(samples[0])
	n := float64(len(samples))
	l2 := 1 / (opts.C * n)

	means := make([]float64, featCount)
	stds := make([]float64, featCount)
	col := make([]float64, len(samples))
	for j := 0; j < featCount; j++ {
		for i := range samples {
			col[i] = samples[i][j]
		}
		means[j], stds[j] = stat.PopMeanStdDev(col, nil)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	normalized := make([][]float64, len(samples))
	for i := range samples {
		normalized[i] = normalize(samples[i], means, stds)
	}

	weights := make([]float64, featCount)
	bias := 0.0
	grads := make([]float64, featCount)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grads {
			grads[j] = 0
		}
		gradBias := 0.0
		for i, x := range normalized {
			err := sigmoid(floats.Dot(weights, x)+bias) - labels[i]
			floats.AddScaled(grads, err, x)
			gradBias += err
		}
		for j := range weights {
			grads[j] = grads[j]/n + l2*weights[j]
			weights[j] -= opts.LearningRate * grads[j]
		}
		bias -= opts.LearningRate * (gradBias / n)
	}

	if len(featureNames) != featCount {
		featureNames = defaultFeatureNames(featCount)
	}

	return &Model{
		featureNames: append([]string(nil), featureNames...),
		weights:      weights,
		bias:         bias,
		means:        means,
		stds:         stds,
		opts:         opts,
	}, nil
}

func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || len(sample) != len(m.weights) {
		return 0.5
	}
	x := normalize(sample, m.means, m.stds)
	return sigmoid(floats.Dot(m.weights, x) + m.bias)
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	probs := make([]float64, len(samples))
	for i := range samples {
		probs[i] = m.PredictProb(samples[i])
	}
	return probs
}

// Coefficients returns the weights on standardized features keyed by name,
// plus the intercept under "intercept".
func (m *Model) Coefficients() map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m.weights)+1)
	for i, name := range m.featureNames {
		out[name] = m.weights[i]
	}
	out["intercept"] = m.bias
	return out
}

func hasBothClasses(labels []float64) bool {
	var pos, neg bool
	for _, v := range labels {
		if v >= 0.5 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

func sigmoid(x float64) float64 {
	if x > 35 {
		return 1
	}
	if x < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}

func defaultFeatureNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "f" + strconv.Itoa(i)
	}
	return out
}
