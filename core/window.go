package vj

import "math"

// BaseSize is the side length of the training window. Haar features are
// defined in this coordinate space and scaled up to the scanned window size.
const BaseSize = 24

// Window is a square region of an integral image.
type Window struct {
	Integral *IntegralImage
	Row      int
	Col      int
	Size     int
}

// FullWindow returns the window covering the top-left square of the integral image.
func FullWindow(ii *IntegralImage) Window {
	return Window{Integral: ii, Size: min(ii.Rows, ii.Cols)}
}

// Scale returns the ratio between the window size and the base training size.
func (w Window) Scale() float64 {
	return float64(w.Size) / BaseSize
}

// Sum returns the intensity sum of a rectangle given relative to the window origin.
func (w Window) Sum(row, col, h, width int) int64 {
	return w.Integral.RectSum(w.Row+row, w.Col+col, h, width)
}

// Mean returns the mean intensity of the window.
func (w Window) Mean() float64 {
	n := float64(w.Size * w.Size)
	if n == 0 {
		return 0
	}
	return float64(w.Integral.RectSum(w.Row, w.Col, w.Size, w.Size)) / n
}

// StdDev returns the intensity standard deviation of the window.
func (w Window) StdDev() float64 {
	return math.Sqrt(w.Integral.Variance(w.Row, w.Col, w.Size, w.Size))
}

// Sample is a labeled training window. The core never looks at Path,
// it only travels along for reporting.
type Sample struct {
	Path   string
	Window Window
}

// NewSample wraps the integral image of a training image into a sample.
func NewSample(path string, ii *IntegralImage) *Sample {
	return &Sample{Path: path, Window: FullWindow(ii)}
}
