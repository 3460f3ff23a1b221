package domain

import "errors"

var (
	// ErrDataUnavailable means a source returned an empty or partial series.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrAlignmentFailure means positioning and price series share no dates.
	ErrAlignmentFailure = errors.New("no overlap between positioning and price series")
	// ErrInsufficientHistory means no usable rows remain for a horizon.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateTrainingSet means the training labels hold a single class.
	ErrDegenerateTrainingSet = errors.New("training labels contain a single class")
)
