package vj

import (
	"image"

	"github.com/disintegration/imaging"
)

// GrayscaleFunc converts the red, green and blue channels of a pixel into an intensity value.
type GrayscaleFunc func(r, g, b int) int

// Grayscale selects the grayscale conversion algorithm.
type Grayscale int

// The supported grayscale conversion algorithms.
const (
	Luminosity Grayscale = iota
	Average
	Lightness
	Desaturation
)

// Func returns the conversion function of the algorithm.
func (gs Grayscale) Func() GrayscaleFunc {
	switch gs {
	case Average:
		return func(r, g, b int) int {
			return (r + g + b) / 3
		}
	case Lightness:
		return func(r, g, b int) int {
			return (max(r, g, b) + min(r, g, b)) / 2
		}
	case Desaturation:
		return func(r, g, b int) int {
			return max(r, g, b)
		}
	default:
		return func(r, g, b int) int {
			return int(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
		}
	}
}

// String returns the name of the algorithm.
func (gs Grayscale) String() string {
	switch gs {
	case Average:
		return "average"
	case Lightness:
		return "lightness"
	case Desaturation:
		return "desaturation"
	default:
		return "luminosity"
	}
}

// UnpackRGB decodes a packed 0xRRGGBB value into its color channels.
func UnpackRGB(v int) (r, g, b int) {
	return (v & 0x00ff0000) >> 16, (v & 0x0000ff00) >> 8, v & 0x000000ff
}

// PackRGB encodes the color channels into a single 0xRRGGBB value.
func PackRGB(r, g, b int) int {
	return (r&0xff)<<16 | (g&0xff)<<8 | b&0xff
}

// GridFromImage converts an image of any type into a pixel grid.
func GridFromImage(img image.Image) *PixelGrid {
	src := imaging.Clone(img)
	rows, cols := src.Bounds().Dy(), src.Bounds().Dx()

	grid := &PixelGrid{
		Rows: rows,
		Cols: cols,
		Pix:  make([]int, rows*cols),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			i := row*src.Stride + col*4
			grid.Pix[row*cols+col] = PackRGB(int(src.Pix[i]), int(src.Pix[i+1]), int(src.Pix[i+2]))
		}
	}
	return grid
}
