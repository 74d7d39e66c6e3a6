package vj

// PixelGrid holds the raw pixel values of an image or image region.
// Every value is a packed 0xRRGGBB color, stored in row-major order.
type PixelGrid struct {
	Rows int
	Cols int
	Pix  []int
}

// At returns the packed color at the given row and column.
func (pg *PixelGrid) At(row, col int) int {
	return pg.Pix[row*pg.Cols+col]
}

// IntegralImage holds the running sum and the squared running sum of a grayscale image.
// The value stored at (row, col) is the sum of all the intensities with
// a row index lower or equal to row and a column index lower or equal to col.
type IntegralImage struct {
	Rows  int
	Cols  int
	Sum   []int64
	SqSum []int64
}

// NewIntegralImage builds the integral and squared integral image of the pixel grid.
// The gray function converts the decoded color channels into an intensity value.
func NewIntegralImage(grid *PixelGrid, gray GrayscaleFunc) *IntegralImage {
	ii := newIntegralImage(grid.Rows, grid.Cols)
	if ii.Empty() {
		return ii
	}
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			r, g, b := UnpackRGB(grid.At(row, col))
			ii.accumulate(row, col, int64(gray(r, g, b)))
		}
	}
	return ii
}

// NewIntegralImageFromGray builds the integral image from an already converted
// grayscale pixel array, like the one returned by imaging.Grayscale.
func NewIntegralImageFromGray(rows, cols int, pix []uint8) *IntegralImage {
	ii := newIntegralImage(rows, cols)
	if ii.Empty() {
		return ii
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ii.accumulate(row, col, int64(pix[row*cols+col]))
		}
	}
	return ii
}

func newIntegralImage(rows, cols int) *IntegralImage {
	if rows <= 0 || cols <= 0 {
		return &IntegralImage{}
	}
	return &IntegralImage{
		Rows:  rows,
		Cols:  cols,
		Sum:   make([]int64, rows*cols),
		SqSum: make([]int64, rows*cols),
	}
}

// accumulate stores the running sums of the pixel at (row, col). The cells above
// and to the left must already be filled, otherwise the result is meaningless.
func (ii *IntegralImage) accumulate(row, col int, g int64) {
	idx := row*ii.Cols + col
	sum, sq := g, g*g

	if row > 0 {
		sum += ii.Sum[idx-ii.Cols]
		sq += ii.SqSum[idx-ii.Cols]
	}
	if col > 0 {
		sum += ii.Sum[idx-1]
		sq += ii.SqSum[idx-1]
	}
	// Remove the top-left block which was counted twice.
	if row > 0 && col > 0 {
		sum -= ii.Sum[idx-ii.Cols-1]
		sq -= ii.SqSum[idx-ii.Cols-1]
	}
	ii.Sum[idx] = sum
	ii.SqSum[idx] = sq
}

// Empty reports whether the image has no pixels.
func (ii *IntegralImage) Empty() bool {
	return ii.Rows <= 0 || ii.Cols <= 0
}

// At returns the integral value at (row, col).
func (ii *IntegralImage) At(row, col int) int64 {
	return ii.Sum[row*ii.Cols+col]
}

// SqAt returns the squared integral value at (row, col).
func (ii *IntegralImage) SqAt(row, col int) int64 {
	return ii.SqSum[row*ii.Cols+col]
}

// RectSum returns the sum of the intensities inside the rectangle with the
// top-left corner at (row, col) and the given height and width.
func (ii *IntegralImage) RectSum(row, col, h, w int) int64 {
	return rectSum(ii.Sum, ii.Cols, row, col, h, w)
}

// RectSqSum returns the sum of the squared intensities inside the rectangle.
func (ii *IntegralImage) RectSqSum(row, col, h, w int) int64 {
	return rectSum(ii.SqSum, ii.Cols, row, col, h, w)
}

// Variance returns the intensity variance of the rectangle.
func (ii *IntegralImage) Variance(row, col, h, w int) float64 {
	n := float64(h * w)
	if n == 0 {
		return 0
	}
	mean := float64(ii.RectSum(row, col, h, w)) / n
	v := float64(ii.RectSqSum(row, col, h, w))/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

func rectSum(data []int64, stride, row, col, h, w int) int64 {
	if h <= 0 || w <= 0 {
		return 0
	}
	r2, c2 := row+h-1, col+w-1

	sum := data[r2*stride+c2]
	if row > 0 {
		sum -= data[(row-1)*stride+c2]
	}
	if col > 0 {
		sum -= data[r2*stride+col-1]
	}
	if row > 0 && col > 0 {
		sum += data[(row-1)*stride+col-1]
	}
	return sum
}
