package vj_test

import (
	"context"
	"math"
	"testing"

	vj "github.com/esimov/vjcascade/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLearner returns the edge stage of the next scripted threshold and
// records the feature subsets and the negatives it was called with.
type scriptedLearner struct {
	thresholds []float64
	subsets    [][]vj.HaarFeature
	negatives  [][]*vj.Sample
}

func (sl *scriptedLearner) Learn(features []vj.HaarFeature, _, negatives []*vj.Sample) (*vj.Stage, error) {
	i := min(len(sl.subsets), len(sl.thresholds)-1)
	sl.subsets = append(sl.subsets, features)
	sl.negatives = append(sl.negatives, negatives)
	return edgeStage(sl.thresholds[i]), nil
}

// constantLearner always returns the same stage.
type constantLearner struct {
	stage *vj.Stage
	calls int
}

func (cl *constantLearner) Learn([]vj.HaarFeature, []*vj.Sample, []*vj.Sample) (*vj.Stage, error) {
	cl.calls++
	return cl.stage, nil
}

func testConfig() vj.TrainerConfig {
	cfg := vj.DefaultTrainerConfig()
	cfg.MaxFalsePositiveRate = 0.7
	cfg.TargetFalsePositiveRate = 0.01
	cfg.MaxRetries = 3
	return cfg
}

func featurePool() []vj.HaarFeature {
	return vj.GenerateFeatures(vj.BaseSize, 6)
}

func TestTrainer_SingleLayerWithAdaBoost(t *testing.T) {
	positives := faceSet()
	negatives := append(nonFaceSet(), uniformSample(128), stepSample(12, 0, 255))
	features := []vj.HaarFeature{edgeFeature, edgeFeature, edgeFeature}

	trainer := vj.NewTrainer(testConfig(), &vj.AdaBoost{}, nil)
	cascade, err := trainer.Train(context.Background(), features, positives, negatives)
	require.NoError(t, err)
	require.Equal(t, 1, cascade.Len())

	for _, p := range positives {
		assert.True(t, cascade.IsFace(p.Window))
	}
	for _, n := range negatives {
		assert.False(t, cascade.IsFace(n.Window))
	}
}

func TestTrainer_BootstrapsHardNegatives(t *testing.T) {
	positives := faceSet()
	negatives := nonFaceSet()
	learner := &scriptedLearner{thresholds: []float64{0.5, 0.7, 0.9}}

	var reports []vj.LayerReport
	trainer := vj.NewTrainer(testConfig(), learner, nil)
	trainer.OnLayer = func(r vj.LayerReport) {
		reports = append(reports, r)
	}

	cascade, err := trainer.Train(context.Background(), featurePool(), positives, negatives)
	require.NoError(t, err)
	require.Equal(t, 3, cascade.Len())

	// Every layer is learned against the negatives the previous layers still accept.
	require.Len(t, learner.negatives, 3)
	assert.Equal(t, negatives, learner.negatives[0])
	assert.Equal(t, negatives[1:], learner.negatives[1])
	assert.Equal(t, negatives[2:], learner.negatives[2])

	require.Len(t, reports, 3)
	expected := []float64{2.0 / 3, 1.0 / 3, 0}
	for i, r := range reports {
		assert.Equal(t, i+1, r.Layer)
		assert.Equal(t, 1, r.Features)
		assert.InDelta(t, expected[i], r.Rates.FalsePositiveRate, 1e-9)
		assert.Equal(t, 1.0, r.Rates.DetectionRate)
		if i > 0 {
			assert.LessOrEqual(t, r.Rates.FalsePositiveRate, reports[i-1].Rates.FalsePositiveRate)
		}
	}
	assert.Zero(t, reports[2].Negatives)
}

func TestTrainer_RelaxesThresholdUntilDetectionRate(t *testing.T) {
	// The learned stage wants a strong edge response the positives do not have:
	// only the threshold relaxation makes the stage accept them.
	stage := edgeStage(0.5)
	stage.Classifiers[0].Alpha = 2
	stage.Threshold = 4
	learner := &constantLearner{stage: stage}

	cfg := testConfig()
	cfg.MaxFalsePositiveRate = 0.9
	cfg.TargetFalsePositiveRate = 0.5

	trainer := vj.NewTrainer(cfg, learner, nil)
	cascade, err := trainer.Train(context.Background(), featurePool(), faceSet(), []*vj.Sample{stepSample(3, 255, 0), uniformSample(7)})
	require.NoError(t, err)
	require.Equal(t, 1, cascade.Len())

	got := cascade.Stages()[0]
	assert.LessOrEqual(t, got.Threshold, 2.0)
	assert.Greater(t, got.Threshold, 2.0-4*0.02-1e-9)
	assert.Equal(t, 4.0, stage.Threshold, "the learned stage must not be mutated")
}

func TestTrainer_ConvergenceFailure(t *testing.T) {
	// A stage accepting everything never lowers the false positive rate.
	learner := &constantLearner{stage: vj.NewStage(nil, 0)}
	features := featurePool()[:5]

	trainer := vj.NewTrainer(testConfig(), learner, nil)
	_, err := trainer.Train(context.Background(), features, faceSet(), nonFaceSet())
	require.Error(t, err)

	var cerr *vj.ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Layer)
	assert.Equal(t, 3, cerr.Retries)
	assert.Equal(t, 1.0, cerr.FalsePositiveRate)
	assert.Equal(t, 3*len(features), learner.calls)
}

func TestTrainer_DivergentThresholdIsDiscarded(t *testing.T) {
	for _, threshold := range []float64{math.NaN(), math.Inf(1)} {
		learner := &constantLearner{stage: vj.NewStage(nil, threshold)}

		trainer := vj.NewTrainer(testConfig(), learner, nil)
		_, err := trainer.Train(context.Background(), featurePool(), faceSet(), nonFaceSet())

		var cerr *vj.ConvergenceError
		require.ErrorAs(t, err, &cerr)
		// Every retry discards the layer at its very first subset.
		assert.Equal(t, 3, learner.calls)
	}
}

func TestTrainer_RelaxationStepLimit(t *testing.T) {
	stage := edgeStage(0.5)
	stage.Threshold = 1e6
	learner := &constantLearner{stage: stage}

	cfg := testConfig()
	cfg.MaxRelaxSteps = 10
	cfg.MaxRetries = 1

	trainer := vj.NewTrainer(cfg, learner, nil)
	_, err := trainer.Train(context.Background(), featurePool(), faceSet(), nonFaceSet())

	var cerr *vj.ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, learner.calls)
}

func TestTrainer_LayerLimit(t *testing.T) {
	learner := &scriptedLearner{thresholds: []float64{0.5, 0.7, 0.9}}
	cfg := testConfig()
	cfg.MaxLayers = 2

	trainer := vj.NewTrainer(cfg, learner, nil)
	_, err := trainer.Train(context.Background(), featurePool(), faceSet(), nonFaceSet())

	var cerr *vj.ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Layer)
	assert.InDelta(t, 1.0/3, cerr.FalsePositiveRate, 1e-9)
}

func TestTrainer_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := vj.NewTrainer(testConfig(), &vj.AdaBoost{}, nil)
	_, err := trainer.Train(ctx, featurePool(), faceSet(), nonFaceSet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_InvalidInput(t *testing.T) {
	trainer := vj.NewTrainer(testConfig(), &vj.AdaBoost{}, nil)

	_, err := trainer.Train(context.Background(), featurePool(), faceSet(), nil)
	assert.ErrorIs(t, err, vj.ErrEmptySampleSet)

	_, err = trainer.Train(context.Background(), nil, faceSet(), nonFaceSet())
	assert.ErrorIs(t, err, vj.ErrNoFeatures)

	cfg := testConfig()
	cfg.MaxFalsePositiveRate = 1
	_, err = vj.NewTrainer(cfg, &vj.AdaBoost{}, nil).Train(context.Background(), featurePool(), faceSet(), nonFaceSet())
	assert.ErrorIs(t, err, vj.ErrInvalidConfig)
}

func TestTrainer_SeededSubsetsAreReproducible(t *testing.T) {
	run := func(seed int64) [][]vj.HaarFeature {
		learner := &constantLearner{stage: vj.NewStage(nil, 0)}
		recorder := &recordingLearner{StageLearner: learner}

		cfg := testConfig()
		cfg.Seed = seed
		vj.NewTrainer(cfg, recorder, nil).Train(context.Background(), featurePool(), faceSet(), nonFaceSet())
		return recorder.subsets
	}

	first, second := run(5), run(5)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, run(6))
}

func TestThresholdRelaxation_RatesMoveTogether(t *testing.T) {
	stage := edgeStage(0.5)
	stage.Classifiers = append(stage.Classifiers,
		vj.WeakClassifier{Feature: edgeFeature, Threshold: 0.7, Polarity: -1, Alpha: 1},
		vj.WeakClassifier{Feature: edgeFeature, Threshold: 0.9, Polarity: -1, Alpha: 1},
	)
	stage.Threshold = 3
	cascade := vj.NewCascade()
	positives := append(faceSet(), stepSample(8, 255, 0), stepSample(10, 255, 0))
	negatives := append(nonFaceSet(), stepSample(5, 255, 0))

	prev := cascade.Evaluate(stage, positives, negatives)
	decrement := math.Abs(stage.Threshold) * 0.02
	for th := stage.Threshold - decrement; th > -1; th -= decrement {
		rates := cascade.Evaluate(stage.WithThreshold(th), positives, negatives)
		require.GreaterOrEqual(t, rates.DetectionRate, prev.DetectionRate)
		require.GreaterOrEqual(t, rates.FalsePositiveRate, prev.FalsePositiveRate)
		prev = rates
	}
	assert.Equal(t, vj.Rates{DetectionRate: 1, FalsePositiveRate: 1}, prev)
}

type recordingLearner struct {
	vj.StageLearner
	subsets [][]vj.HaarFeature
}

func (rl *recordingLearner) Learn(features []vj.HaarFeature, positives, negatives []*vj.Sample) (*vj.Stage, error) {
	rl.subsets = append(rl.subsets, features)
	return rl.StageLearner.Learn(features, positives, negatives)
}
