package domain

import (
	"math"
	"time"
)

// TraderPosition holds the contract counts reported for one trader category.
type TraderPosition struct {
	Long   float64 `json:"long"`
	Short  float64 `json:"short"`
	Spread float64 `json:"spread"`
}

// Net returns longs minus shorts.
func (p TraderPosition) Net() float64 {
	return p.Long - p.Short
}

// PositioningRecord is one weekly Commitment of Traders report row.
type PositioningRecord struct {
	Date            time.Time      `json:"date"`
	OpenInterest    float64        `json:"open_interest"`
	Commercial      TraderPosition `json:"commercial"`
	SwapDealer      TraderPosition `json:"swap_dealer"`
	MoneyManager    TraderPosition `json:"money_manager"`
	OtherReportable TraderPosition `json:"other_reportable"`
	NonReportable   TraderPosition `json:"non_reportable"`
}

// PriceRecord is one settlement or last price observation.
type PriceRecord struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Commodity describes where a commodity's two series come from.
type Commodity struct {
	Symbol             string     `json:"symbol" yaml:"symbol"`
	Name               string     `json:"name" yaml:"name"`
	PositioningDataset string     `json:"positioning_dataset" yaml:"positioningDataset"`
	PriceDataset       string     `json:"price_dataset" yaml:"priceDataset"`
	PriceField         string     `json:"price_field" yaml:"priceField"`
	StartDate          *time.Time `json:"start_date,omitempty" yaml:"-"`
}

// HorizonResult is the evaluation outcome for one label horizon.
type HorizonResult struct {
	Horizon      int                `json:"horizon"`
	F1           float64            `json:"f1"`
	Accuracy     float64            `json:"accuracy"`
	Precision    float64            `json:"precision"`
	Recall       float64            `json:"recall"`
	AUC          float64            `json:"auc"`
	TrainRows    int                `json:"train_rows"`
	TestRows     int                `json:"test_rows"`
	Coefficients map[string]float64 `json:"coefficients,omitempty"`
	Failed       bool               `json:"failed"`
	Error        string             `json:"error,omitempty"`
}

// RunReport is what one pipeline run hands to the reporting side.
type RunReport struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Classifier  string          `json:"classifier"`
	FeatureSpec string          `json:"feature_spec"`
	TrimMode    string          `json:"trim_mode"`
	Windows     []int           `json:"windows"`
	Features    []string        `json:"features"`
	Rows        int             `json:"rows"`
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	SplitRatio  float64         `json:"split_ratio"`
	Results     []HorizonResult `json:"results"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Succeeded counts horizons that produced metrics.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed {
			n++
		}
	}
	return n
}

// IsMissing reports whether v carries no value.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
