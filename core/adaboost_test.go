package vj_test

import (
	"testing"

	vj "github.com/esimov/vjcascade/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaBoost_SeparatesEdges(t *testing.T) {
	features := []vj.HaarFeature{
		{Type: vj.EdgeVertical, Width: vj.BaseSize, Height: vj.BaseSize},
		edgeFeature,
		{Type: vj.Diagonal, Width: vj.BaseSize, Height: vj.BaseSize},
	}
	positives := faceSet()
	negatives := append(nonFaceSet(), uniformSample(128), stepSample(12, 0, 255))

	stage, err := (&vj.AdaBoost{}).Learn(features, positives, negatives)
	require.NoError(t, err)
	require.NotEmpty(t, stage.Classifiers)
	assert.Equal(t, edgeFeature, stage.Classifiers[0].Feature)

	var alphaSum float64
	for _, wc := range stage.Classifiers {
		alphaSum += wc.Alpha
	}
	assert.InDelta(t, alphaSum/2, stage.Threshold, 1e-9)

	for _, p := range positives {
		assert.True(t, stage.IsFace(p.Window))
	}
	for _, n := range negatives {
		assert.False(t, stage.IsFace(n.Window))
	}
}

func TestAdaBoost_Rounds(t *testing.T) {
	features := []vj.HaarFeature{edgeFeature, edgeFeature, edgeFeature, edgeFeature}

	stage, err := (&vj.AdaBoost{Rounds: 2}).Learn(features, faceSet(), nonFaceSet())
	require.NoError(t, err)
	assert.Len(t, stage.Classifiers, 2)

	stage, err = (&vj.AdaBoost{}).Learn(features, faceSet(), nonFaceSet())
	require.NoError(t, err)
	assert.Len(t, stage.Classifiers, len(features))
}

func TestAdaBoost_Errors(t *testing.T) {
	ab := &vj.AdaBoost{}

	_, err := ab.Learn(nil, faceSet(), nonFaceSet())
	assert.ErrorIs(t, err, vj.ErrNoFeatures)

	_, err = ab.Learn([]vj.HaarFeature{edgeFeature}, nil, nonFaceSet())
	assert.ErrorIs(t, err, vj.ErrEmptySampleSet)

	// Identical positives and negatives cannot be told apart.
	same := []*vj.Sample{uniformSample(50), uniformSample(50)}
	_, err = ab.Learn([]vj.HaarFeature{edgeFeature}, same, same)
	assert.ErrorIs(t, err, vj.ErrNoWeakClassifier)
}

func TestAdaBoost_WithoutNegatives(t *testing.T) {
	stage, err := (&vj.AdaBoost{}).Learn([]vj.HaarFeature{edgeFeature}, faceSet(), nil)
	require.NoError(t, err)
	for _, p := range faceSet() {
		assert.True(t, stage.IsFace(p.Window))
	}
}
