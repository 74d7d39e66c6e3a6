package vj

import (
	"context"
	"io"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// TrainerConfig holds the cascade training parameters.
type TrainerConfig struct {
	// MaxFalsePositiveRate is the highest false positive rate ratio accepted per layer.
	MaxFalsePositiveRate float64
	// MinDetectionRate is the lowest detection rate ratio accepted per layer.
	MinDetectionRate float64
	// TargetFalsePositiveRate is the false positive rate of the final cascade.
	TargetFalsePositiveRate float64
	// MaxRetries bounds the number of consecutive retries of a single layer. Zero means unbounded.
	MaxRetries int
	// MaxLayers bounds the number of cascade layers. Zero means unbounded.
	MaxLayers int
	// MaxRelaxSteps bounds the threshold relaxation search of a candidate stage.
	MaxRelaxSteps int
	// RelaxStep is the threshold decrement, relative to the absolute learned threshold.
	RelaxStep float64
	// Seed initializes the random source used for drawing the feature subsets.
	Seed int64
}

// DefaultTrainerConfig returns the default training parameters.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MaxFalsePositiveRate:    0.5,
		MinDetectionRate:        0.99,
		TargetFalsePositiveRate: 0.001,
		MaxRetries:              50,
		MaxRelaxSteps:           10000,
		RelaxStep:               0.02,
		Seed:                    1,
	}
}

// Validate checks that the rates are usable.
func (cfg TrainerConfig) Validate() error {
	switch {
	case cfg.MaxFalsePositiveRate <= 0 || cfg.MaxFalsePositiveRate >= 1:
		return errors.Wrapf(ErrInvalidConfig, "max false positive rate %v must be in (0, 1)", cfg.MaxFalsePositiveRate)
	case cfg.MinDetectionRate <= 0 || cfg.MinDetectionRate > 1:
		return errors.Wrapf(ErrInvalidConfig, "min detection rate %v must be in (0, 1]", cfg.MinDetectionRate)
	case cfg.TargetFalsePositiveRate < 0 || cfg.TargetFalsePositiveRate >= 1:
		return errors.Wrapf(ErrInvalidConfig, "target false positive rate %v must be in [0, 1)", cfg.TargetFalsePositiveRate)
	case cfg.RelaxStep <= 0:
		return errors.Wrapf(ErrInvalidConfig, "relaxation step %v must be positive", cfg.RelaxStep)
	case cfg.MaxRelaxSteps <= 0:
		return errors.Wrapf(ErrInvalidConfig, "relaxation step limit %d must be positive", cfg.MaxRelaxSteps)
	}
	return nil
}

// LayerReport describes a layer appended to the cascade.
type LayerReport struct {
	Layer             int
	Features          int
	Classifiers       int
	OriginalThreshold float64
	Threshold         float64
	Rates             Rates
	Negatives         int
	Retries           int
	Elapsed           time.Duration
}

// Trainer grows a cascade layer by layer until the target false positive rate is reached.
type Trainer struct {
	cfg     TrainerConfig
	learner StageLearner
	logger  *log.Logger
	rand    *rand.Rand

	// OnLayer, if set, is called after every layer appended to the cascade.
	OnLayer func(LayerReport)
}

// candidate is the outcome of a threshold relaxation search. The threshold
// lives on the stage copy only, the learned stage is never modified.
type candidate struct {
	stage      *Stage
	original   float64
	rates      Rates
	features   int
	relaxSteps int
}

// NewTrainer creates a cascade trainer. A nil logger discards the training log.
func NewTrainer(cfg TrainerConfig, learner StageLearner, logger *log.Logger) *Trainer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Trainer{
		cfg:     cfg,
		learner: learner,
		logger:  logger,
		rand:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Train builds the cascade from the candidate feature pool and the labeled samples.
// The detection and false positive rates are always measured over the full
// positive and negative sets, while every new layer is learned against the
// negatives the cascade built so far still accepts.
func (t *Trainer) Train(ctx context.Context, features []HaarFeature, positives, negatives []*Sample) (*Cascade, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(positives) == 0 || len(negatives) == 0 {
		return nil, errors.Wrapf(ErrEmptySampleSet, "%d positives, %d negatives", len(positives), len(negatives))
	}
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	var (
		cascade = &Cascade{}
		current = Rates{DetectionRate: 1, FalsePositiveRate: 1}
		hard    = negatives
		layer   = 1
		retries = 0
	)

	t.logger.Printf("starting training: %d features, %d positives, %d negatives",
		len(features), len(positives), len(negatives))

	for current.FalsePositiveRate > t.cfg.TargetFalsePositiveRate {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "training interrupted at layer %d (fpr %.6f, dr %.6f)",
				layer, current.FalsePositiveRate, current.DetectionRate)
		}
		if t.cfg.MaxLayers > 0 && cascade.Len() >= t.cfg.MaxLayers {
			return nil, &ConvergenceError{
				Layer:             layer,
				Retries:           retries,
				FalsePositiveRate: current.FalsePositiveRate,
				DetectionRate:     current.DetectionRate,
				Reason:            "layer limit reached",
			}
		}

		start := time.Now()
		maxFeatures := min(10*layer+10, 200)
		t.logger.Printf("computing stage %d (max %d features)", layer, maxFeatures)

		cand, ok, err := t.buildLayer(ctx, layer, maxFeatures, features, cascade, positives, negatives, hard, current)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", layer)
		}
		if !ok {
			retries++
			if t.cfg.MaxRetries > 0 && retries >= t.cfg.MaxRetries {
				return nil, &ConvergenceError{
					Layer:             layer,
					Retries:           retries,
					FalsePositiveRate: current.FalsePositiveRate,
					DetectionRate:     current.DetectionRate,
					Reason:            "no feature subset met the layer bounds",
				}
			}
			t.logger.Printf("stage %d: retrying (%d)", layer, retries)
			continue
		}

		cascade.Add(cand.stage)
		current = cand.rates

		// Bootstrap the hard negatives for the next layer.
		hard = nil
		if current.FalsePositiveRate > t.cfg.TargetFalsePositiveRate {
			hard = cascade.Misclassified(negatives)
		}

		report := LayerReport{
			Layer:             layer,
			Features:          cand.features,
			Classifiers:       len(cand.stage.Classifiers),
			OriginalThreshold: cand.original,
			Threshold:         cand.stage.Threshold,
			Rates:             current,
			Negatives:         len(hard),
			Retries:           retries,
			Elapsed:           time.Since(start),
		}
		t.logger.Printf("finished stage %d in %s: %d classifiers, fpr %.6f, dr %.6f, threshold %.4f -> %.4f, %d hard negatives",
			layer, report.Elapsed, report.Classifiers, current.FalsePositiveRate, current.DetectionRate,
			cand.original, cand.stage.Threshold, len(hard))
		if t.OnLayer != nil {
			t.OnLayer(report)
		}

		retries = 0
		layer++
	}
	return cascade, nil
}

// buildLayer grows the feature subset one feature at a time until the relaxed
// stage brings the false positive rate under the layer bound. It returns false
// when the layer has to be retried from scratch.
func (t *Trainer) buildLayer(
	ctx context.Context,
	layer, maxFeatures int,
	features []HaarFeature,
	cascade *Cascade,
	positives, negatives, hard []*Sample,
	prior Rates,
) (candidate, bool, error) {
	var (
		best  candidate
		rates = prior
		bound = t.cfg.MaxFalsePositiveRate * prior.FalsePositiveRate
	)

	for n := 1; rates.FalsePositiveRate > bound; n++ {
		if n > maxFeatures || n > len(features) {
			return candidate{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return candidate{}, false, err
		}

		offset := t.rand.Intn(len(features) - n + 1)
		stage, err := t.learner.Learn(features[offset:offset+n], positives, hard)
		if errors.Is(err, ErrNoWeakClassifier) {
			t.logger.Printf("stage %d, %d features: no usable weak classifier, discarding", layer, n)
			return candidate{}, false, nil
		}
		if err != nil {
			return candidate{}, false, err
		}

		cand, ok := t.relax(stage, cascade, positives, negatives, prior.DetectionRate)
		if !ok {
			t.logger.Printf("stage %d, %d features: threshold relaxation diverged from %v, discarding",
				layer, n, stage.Threshold)
			return candidate{}, false, nil
		}
		cand.features = n
		t.logger.Printf("stage %d, %d features: fpr %.6f (bound %.6f), dr %.6f, threshold %.4f -> %.4f",
			layer, n, cand.rates.FalsePositiveRate, bound, cand.rates.DetectionRate, cand.original, cand.stage.Threshold)

		best, rates = cand, cand.rates
	}
	return best, true, nil
}

// relax lowers the stage threshold by a fixed step until the cascade extended
// with the stage keeps enough of the positives. Every step trades a higher
// false positive rate for a higher detection rate. It returns false when the
// search diverges or runs out of steps.
func (t *Trainer) relax(stage *Stage, cascade *Cascade, positives, negatives []*Sample, priorDR float64) (candidate, bool) {
	var (
		original  = stage.Threshold
		threshold = original
		decrement = math.Abs(original) * t.cfg.RelaxStep
		target    = t.cfg.MinDetectionRate * priorDR
	)

	for step := 0; ; step++ {
		if !finite(threshold) || !finite(decrement) || step >= t.cfg.MaxRelaxSteps {
			return candidate{}, false
		}
		trial := stage.WithThreshold(threshold)
		rates := cascade.Evaluate(trial, positives, negatives)
		if rates.DetectionRate >= target {
			return candidate{
				stage:      trial,
				original:   original,
				rates:      rates,
				relaxSteps: step + 1,
			}, true
		}
		// A zero step would evaluate the very same threshold until the step limit.
		if decrement == 0 {
			return candidate{}, false
		}
		threshold -= decrement
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
