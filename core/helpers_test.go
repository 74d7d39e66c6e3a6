package vj_test

import (
	vj "github.com/esimov/vjcascade/core"
)

// grayIntegral builds the integral image of a rows×cols grayscale image
// whose pixel intensities are given by fn.
func grayIntegral(rows, cols int, fn func(row, col int) uint8) *vj.IntegralImage {
	pix := make([]uint8, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			pix[row*cols+col] = fn(row, col)
		}
	}
	return vj.NewIntegralImageFromGray(rows, cols, pix)
}

// stepSample returns a base sized sample whose columns left of boundary have
// the light intensity and the remaining ones the dark intensity.
func stepSample(boundary int, light, dark uint8) *vj.Sample {
	ii := grayIntegral(vj.BaseSize, vj.BaseSize, func(_, col int) uint8 {
		if col < boundary {
			return light
		}
		return dark
	})
	return vj.NewSample("", ii)
}

// uniformSample returns a base sized sample of constant intensity.
func uniformSample(v uint8) *vj.Sample {
	return vj.NewSample("", grayIntegral(vj.BaseSize, vj.BaseSize, func(_, _ int) uint8 { return v }))
}

// edgeFeature spans the whole base window, comparing its left and right halves.
var edgeFeature = vj.HaarFeature{Type: vj.EdgeHorizontal, Width: vj.BaseSize, Height: vj.BaseSize}

// edgeStage accepts the windows whose left/right edge response exceeds min.
func edgeStage(min float64) *vj.Stage {
	return vj.NewStage([]vj.WeakClassifier{{
		Feature:   edgeFeature,
		Threshold: min,
		Polarity:  -1,
		Alpha:     1,
	}}, 1)
}

// faceSet returns the positive samples: a centered vertical step edge with various contrasts.
func faceSet() []*vj.Sample {
	return []*vj.Sample{
		stepSample(12, 255, 0),
		stepSample(12, 200, 50),
		stepSample(12, 180, 20),
	}
}

// nonFaceSet returns negative samples with a decreasing edge response.
func nonFaceSet() []*vj.Sample {
	return []*vj.Sample{
		stepSample(3, 255, 0),
		stepSample(6, 255, 0),
		stepSample(9, 255, 0),
	}
}
