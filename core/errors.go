package vj

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptySampleSet is returned when a training step receives no positive or no negative samples.
	ErrEmptySampleSet = errors.New("empty sample set")
	// ErrNoFeatures is returned when the boosting step receives an empty feature subset.
	ErrNoFeatures = errors.New("no features provided")
	// ErrNoWeakClassifier is returned when no feature of the subset does better than chance.
	ErrNoWeakClassifier = errors.New("no weak classifier better than chance")
	// ErrInvalidConfig is returned when the training rates are out of range.
	ErrInvalidConfig = errors.New("invalid trainer configuration")
	// ErrMissingStages is returned when a cascade to encode or decode has no stages.
	ErrMissingStages = errors.New("cascade has no stages")
	// ErrStageCount is returned when the declared stage count differs from the stage list length.
	ErrStageCount = errors.New("cascade stage count mismatch")
	// ErrEmptyStage is returned when a persisted stage holds no weak classifiers.
	ErrEmptyStage = errors.New("stage record has no classifiers")
	// ErrInvalidClassifier is returned when a persisted weak classifier cannot vote.
	ErrInvalidClassifier = errors.New("invalid weak classifier record")
	// ErrVotingStageEncode is returned when encoding a stage which depends on a runtime trained model.
	ErrVotingStageEncode = errors.New("voting stages cannot be encoded")
)

// ConvergenceError reports a training run which could not build the next cascade layer.
type ConvergenceError struct {
	Layer             int
	Retries           int
	FalsePositiveRate float64
	DetectionRate     float64
	Reason            string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("training cannot converge at layer %d after %d retries (fpr %.6f, dr %.6f): %s",
		e.Layer, e.Retries, e.FalsePositiveRate, e.DetectionRate, e.Reason)
}
