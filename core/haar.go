package vj

import "fmt"

// FeatureType identifies the rectangle layout of a Haar-like feature.
type FeatureType int

// The supported Haar-like feature layouts.
const (
	// EdgeHorizontal compares the left half against the right half.
	EdgeHorizontal FeatureType = iota + 1
	// EdgeVertical compares the top half against the bottom half.
	EdgeVertical
	// LineHorizontal compares the two outer columns against the middle column.
	LineHorizontal
	// LineVertical compares the two outer rows against the middle row.
	LineVertical
	// Diagonal compares the two diagonals of a 2x2 checkerboard.
	Diagonal
)

// blocks returns the number of equally sized rectangles the feature is
// divided into, horizontally and vertically.
func (ft FeatureType) blocks() (nx, ny int) {
	switch ft {
	case EdgeHorizontal:
		return 2, 1
	case EdgeVertical:
		return 1, 2
	case LineHorizontal:
		return 3, 1
	case LineVertical:
		return 1, 3
	case Diagonal:
		return 2, 2
	}
	return 0, 0
}

// HaarFeature is a Haar-like rectangle feature placed inside the base training window.
type HaarFeature struct {
	Type   FeatureType `json:"type"`
	Row    int         `json:"row"`
	Col    int         `json:"col"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
}

// Key returns a string which identifies the feature type and placement.
func (f HaarFeature) Key() string {
	return fmt.Sprintf("%d:%d:%d:%d:%d", f.Type, f.Row, f.Col, f.Width, f.Height)
}

// Value computes the feature response over the window. The feature is scaled
// to the window size and the response is normalized by the area and by the
// window standard deviation, so the lighting conditions cancel out.
func (f HaarFeature) Value(w Window) float64 {
	nx, ny := f.Type.blocks()
	if nx == 0 {
		return 0
	}
	s := w.Scale()
	r0 := int(float64(f.Row) * s)
	c0 := int(float64(f.Col) * s)
	uw := int(float64(f.Width/nx) * s)
	uh := int(float64(f.Height/ny) * s)
	if uw < 1 || uh < 1 {
		return 0
	}

	var v int64
	switch f.Type {
	case EdgeHorizontal:
		v = w.Sum(r0, c0, uh, uw) - w.Sum(r0, c0+uw, uh, uw)
	case EdgeVertical:
		v = w.Sum(r0, c0, uh, uw) - w.Sum(r0+uh, c0, uh, uw)
	case LineHorizontal:
		v = w.Sum(r0, c0, uh, uw) + w.Sum(r0, c0+2*uw, uh, uw) - 2*w.Sum(r0, c0+uw, uh, uw)
	case LineVertical:
		v = w.Sum(r0, c0, uh, uw) + w.Sum(r0+2*uh, c0, uh, uw) - 2*w.Sum(r0+uh, c0, uh, uw)
	case Diagonal:
		v = w.Sum(r0, c0, uh, uw) + w.Sum(r0+uh, c0+uw, uh, uw) -
			w.Sum(r0, c0+uw, uh, uw) - w.Sum(r0+uh, c0, uh, uw)
	}

	norm := w.StdDev()
	if norm < 1 {
		norm = 1
	}
	return float64(v) / (float64(uw*uh*nx*ny) * norm)
}

// GenerateFeatures enumerates every feature of every type fitting into a square
// window of the given size. The step is applied both to the feature positions
// and to the growth of the feature dimensions; a step of 1 yields the full pool.
func GenerateFeatures(size, step int) []HaarFeature {
	if step < 1 {
		step = 1
	}
	var features []HaarFeature

	for _, ft := range []FeatureType{EdgeHorizontal, EdgeVertical, LineHorizontal, LineVertical, Diagonal} {
		nx, ny := ft.blocks()
		for w := nx; w <= size; w += nx * step {
			for h := ny; h <= size; h += ny * step {
				for row := 0; row+h <= size; row += step {
					for col := 0; col+w <= size; col += step {
						features = append(features, HaarFeature{
							Type:   ft,
							Row:    row,
							Col:    col,
							Width:  w,
							Height: h,
						})
					}
				}
			}
		}
	}
	return features
}
