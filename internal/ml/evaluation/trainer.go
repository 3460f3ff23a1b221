package evaluation

import (
	"fmt"
	"strings"

	"cot-sentiment/internal/ml/models/logreg"
	"cot-sentiment/internal/ml/models/xgboost"
)

const (
	ClassifierLogReg  = "logreg"
	ClassifierXGBoost = "xgboost"
)

// Model scores samples with the probability of the positive class.
type Model interface {
	PredictBatch(samples [][]float64) []float64
}

// Trainer fits one classifier strategy.
type Trainer interface {
	Name() string
	Train(samples [][]float64, labels []float64, featureNames []string) (Model, error)
}

type coefficientModel interface {
	Coefficients() map[string]float64
}

type LogRegTrainer struct {
	Options logreg.TrainOptions
}

func (t LogRegTrainer) Name() string { return ClassifierLogReg }

func (t LogRegTrainer) Train(samples [][]float64, labels []float64, featureNames []string) (Model, error) {
	model, err := logreg.Train(samples, labels, featureNames, t.Options)
	if err != nil {
		return nil, err
	}
	return model, nil
}

type XGBoostTrainer struct {
	Options xgboost.Options
}

func (t XGBoostTrainer) Name() string { return ClassifierXGBoost }

func (t XGBoostTrainer) Train(samples [][]float64, labels []float64, featureNames []string) (Model, error) {
	model, err := xgboost.Train(samples, labels, featureNames, t.Options)
	if err != nil {
		return nil, err
	}
	return model, nil
}

// TrainerOptions carries the per-classifier settings. Zero fields take each
// classifier's defaults; settings for the other classifier are ignored.
type TrainerOptions struct {
	C       float64
	XGBoost xgboost.Options
}

// NewTrainer resolves a classifier by name.
func NewTrainer(name string, opts TrainerOptions) (Trainer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ClassifierLogReg:
		lr := logreg.DefaultTrainOptions()
		if opts.C > 0 {
			lr.C = opts.C
		}
		return LogRegTrainer{Options: lr}, nil
	case ClassifierXGBoost:
		if err := opts.XGBoost.Validate(); err != nil {
			return nil, err
		}
		return XGBoostTrainer{Options: opts.XGBoost}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", name)
	}
}
