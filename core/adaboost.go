package vj

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// StageLearner trains a stage from a feature subset and labeled samples.
type StageLearner interface {
	Learn(features []HaarFeature, positives, negatives []*Sample) (*Stage, error)
}

// AdaBoost is a discrete AdaBoost learner using decision stumps as weak classifiers.
type AdaBoost struct {
	// Rounds is the number of boosting rounds. Zero means one round per feature.
	Rounds int
}

// stump is the best single feature split found in a boosting round.
type stump struct {
	feature   int
	threshold float64
	polarity  int
	err       float64
}

// Learn implements the StageLearner interface.
// The returned stage threshold is half of the sum of the weak classifier weights.
func (ab *AdaBoost) Learn(features []HaarFeature, positives, negatives []*Sample) (*Stage, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if len(positives) == 0 {
		return nil, errors.Wrap(ErrEmptySampleSet, "adaboost needs positive samples")
	}

	samples := make([]*Sample, 0, len(positives)+len(negatives))
	samples = append(samples, positives...)
	samples = append(samples, negatives...)
	labels := make([]bool, len(samples))
	for i := range positives {
		labels[i] = true
	}

	weights := make([]float64, len(samples))
	for i := range samples {
		switch {
		case len(negatives) == 0:
			weights[i] = 1 / float64(len(positives))
		case labels[i]:
			weights[i] = 1 / (2 * float64(len(positives)))
		default:
			weights[i] = 1 / (2 * float64(len(negatives)))
		}
	}

	// The feature responses never change between rounds, only the sample
	// weights do, so the values and their sort order are computed once.
	values := make([][]float64, len(features))
	orders := make([][]int, len(features))
	for f, feat := range features {
		vals := make([]float64, len(samples))
		idx := make([]int, len(samples))
		for i, s := range samples {
			vals[i] = feat.Value(s.Window)
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
		values[f] = vals
		orders[f] = idx
	}

	rounds := ab.Rounds
	if rounds <= 0 {
		rounds = len(features)
	}

	var (
		classifiers []WeakClassifier
		alphaSum    float64
	)
	for t := 0; t < rounds; t++ {
		normalize(weights)

		best := stump{err: math.Inf(1)}
		for f := range features {
			st := bestStump(values[f], orders[f], labels, weights)
			if st.err < best.err {
				st.feature = f
				best = st
			}
		}
		if best.err >= 0.5 {
			break
		}

		e := math.Max(best.err, 1e-10)
		beta := e / (1 - e)
		alpha := math.Log(1 / beta)

		wc := WeakClassifier{
			Feature:   features[best.feature],
			Threshold: best.threshold,
			Polarity:  best.polarity,
			Alpha:     alpha,
		}
		classifiers = append(classifiers, wc)
		alphaSum += alpha

		// Lower the weight of the correctly classified samples.
		p := float64(best.polarity)
		for i, v := range values[best.feature] {
			predicted := p*v < p*best.threshold
			if predicted == labels[i] {
				weights[i] *= beta
			}
		}
	}

	if len(classifiers) == 0 {
		return nil, ErrNoWeakClassifier
	}
	return NewStage(classifiers, 0.5*alphaSum), nil
}

// bestStump finds the threshold and polarity with the lowest weighted error
// for a single feature, scanning the samples in increasing response order.
func bestStump(vals []float64, order []int, labels []bool, weights []float64) stump {
	var totalPos, totalNeg float64
	for i, w := range weights {
		if labels[i] {
			totalPos += w
		} else {
			totalNeg += w
		}
	}

	best := stump{err: math.Inf(1)}
	var belowPos, belowNeg float64

	for k := 0; k <= len(order); k++ {
		// The first k samples in response order lie under the threshold.
		if k > 0 {
			i := order[k-1]
			if labels[i] {
				belowPos += weights[i]
			} else {
				belowNeg += weights[i]
			}
		}

		var threshold float64
		switch {
		case k == 0:
			threshold = vals[order[0]] - 1
		case k == len(order):
			threshold = vals[order[k-1]] + 1
		default:
			lo, hi := vals[order[k-1]], vals[order[k]]
			if lo == hi {
				continue
			}
			threshold = (lo + hi) / 2
		}

		// Polarity 1 labels the samples under the threshold as faces.
		if e := belowNeg + (totalPos - belowPos); e < best.err {
			best = stump{threshold: threshold, polarity: 1, err: e}
		}
		if e := belowPos + (totalNeg - belowNeg); e < best.err {
			best = stump{threshold: threshold, polarity: -1, err: e}
		}
	}
	return best
}

func normalize(weights []float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}
