package xgboost

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

// ErrSingleClass is returned when the training labels are all up or all down.
var ErrSingleClass = errors.New("xgboost: training labels need both up and down rows")

// Options sizes the boosted ensemble. Zero fields take the defaults.
type Options struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultOptions() Options {
	return Options{
		Rounds:       40,
		LearningRate: 0.08,
		MaxDepth:     4,
	}
}

// Validate rejects negative sizes and a learning rate above 1.
func (o Options) Validate() error {
	if o.Rounds < 0 {
		return fmt.Errorf("xgboost: rounds must be positive, got %d", o.Rounds)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("xgboost: max depth must be positive, got %d", o.MaxDepth)
	}
	if o.LearningRate < 0 || o.LearningRate > 1 || math.IsNaN(o.LearningRate) {
		return fmt.Errorf("xgboost: learning rate must be in (0,1], got %v", o.LearningRate)
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Rounds == 0 {
		o.Rounds = d.Rounds
	}
	if o.LearningRate == 0 {
		o.LearningRate = d.LearningRate
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = d.MaxDepth
	}
	return o
}

// Classifier scores the probability that price is higher at the horizon.
// boo fits one tree set per class; up is the position of the up class in
// its softmax output.
type Classifier struct {
	boost *boo.MultiClass
	up    int
	opts  Options
}

// Train fits the ensemble. Labels at or above 0.5 are up rows.
func Train(samples [][]float64, labels []float64, featureNames []string, opts Options) (*Classifier, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, fmt.Errorf("xgboost: %d samples for %d labels", len(samples), len(labels))
	}
	width := len(samples[0])
	if width == 0 {
		return nil, errors.New("xgboost: empty feature vectors")
	}

	classes := make([]int, len(labels))
	ups := 0
	for i, v := range labels {
		if len(samples[i]) != width {
			return nil, fmt.Errorf("xgboost: row %d has %d features, want %d", i, len(samples[i]), width)
		}
		if v >= 0.5 {
			classes[i] = 1
			ups++
		}
	}
	if ups == 0 || ups == len(labels) {
		return nil, fmt.Errorf("%w: %d of %d up", ErrSingleClass, ups, len(labels))
	}

	keys := featureNames
	if len(keys) != width {
		keys = make([]string, width)
		for i := range keys {
			keys[i] = "f" + strconv.Itoa(i)
		}
	}

	xo := boo.DefaultXOptions()
	xo.Rounds = opts.Rounds
	xo.LearningRate = opts.LearningRate
	xo.MaxDepth = opts.MaxDepth
	xo.Verbose = false
	xo.EarlyStop = 0

	boost := boo.NewMultiClass(&utils.DataBunch{Data: samples, Labels: classes, Keys: keys}, xo)
	if boost == nil {
		return nil, errors.New("xgboost: booster returned no model")
	}
	up := -1
	for i, c := range boost.ClassLabels() {
		if c == 1 {
			up = i
		}
	}
	if up < 0 {
		return nil, errors.New("xgboost: booster has no up class")
	}
	return &Classifier{boost: boost, up: up, opts: opts}, nil
}

// Options returns the settings the ensemble was trained with, defaults
// filled in.
func (c *Classifier) Options() Options {
	return c.opts
}

// UpProbability scores one row. A NaN score is no signal, 0.5.
func (c *Classifier) UpProbability(sample []float64) float64 {
	probs := c.boost.PredictSingle(sample)
	if c.up >= len(probs) || math.IsNaN(probs[c.up]) {
		return 0.5
	}
	return math.Min(1, math.Max(0, probs[c.up]))
}

func (c *Classifier) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = c.UpProbability(s)
	}
	return out
}
