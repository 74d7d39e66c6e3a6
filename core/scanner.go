package vj

import (
	"image"
	"sync"
)

// ScanParams contains the sliding window settings.
type ScanParams struct {
	// MinSize is the window size of the first scale. Defaults to BaseSize.
	MinSize int
	// MaxSize is the largest window size scanned. Zero means as large as the image allows.
	MaxSize int
	// StrideDivisor divides the window size to obtain the stride of a scale.
	// 2 is the sparse scan, 4 the dense one. Defaults to 2.
	StrideDivisor int
	// Workers is the number of goroutines scanning the window rows.
	Workers int
}

// Detection is an accepted window in image coordinates. Col is the x axis and Row the y axis.
type Detection struct {
	Col  int `json:"x"`
	Row  int `json:"y"`
	Size int `json:"size"`
}

// Rect returns the detection as an image rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.Col, d.Row, d.Col+d.Size, d.Row+d.Size)
}

func (p ScanParams) withDefaults() ScanParams {
	if p.MinSize <= 0 {
		p.MinSize = BaseSize
	}
	if p.StrideDivisor <= 0 {
		p.StrideDivisor = 2
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	return p
}

// scale is a window size and its stride.
type scale struct {
	size   int
	stride int
}

// scales returns the window sizes fitting the image, doubling from MinSize.
func (p ScanParams) scales(rows, cols int) []scale {
	var out []scale
	for size := p.MinSize; size <= rows && size <= cols; size *= 2 {
		if p.MaxSize > 0 && size > p.MaxSize {
			break
		}
		out = append(out, scale{size: size, stride: max(size/p.StrideDivisor, 1)})
	}
	return out
}

// Positions returns every window the scanner visits over the integral image.
func Positions(ii *IntegralImage, p ScanParams) []Window {
	p = p.withDefaults()
	var windows []Window
	for _, sc := range p.scales(ii.Rows, ii.Cols) {
		for row := 0; row <= ii.Rows-sc.size; row += sc.stride {
			for col := 0; col <= ii.Cols-sc.size; col += sc.stride {
				windows = append(windows, Window{Integral: ii, Row: row, Col: col, Size: sc.size})
			}
		}
	}
	return windows
}

// Detect slides the windows over the integral image and returns the ones the classifier accepts.
// Overlapping detections are not merged. With more than one worker the order
// of the detections is not defined.
func Detect(ii *IntegralImage, c Classifier, p ScanParams) []Detection {
	p = p.withDefaults()
	if ii.Empty() {
		return nil
	}

	type job struct {
		row int
		sc  scale
	}

	scanRow := func(j job) []Detection {
		var dets []Detection
		for col := 0; col <= ii.Cols-j.sc.size; col += j.sc.stride {
			w := Window{Integral: ii, Row: j.row, Col: col, Size: j.sc.size}
			if c.IsFace(w) {
				dets = append(dets, Detection{Col: col, Row: j.row, Size: j.sc.size})
			}
		}
		return dets
	}

	var jobs []job
	for _, sc := range p.scales(ii.Rows, ii.Cols) {
		for row := 0; row <= ii.Rows-sc.size; row += sc.stride {
			jobs = append(jobs, job{row: row, sc: sc})
		}
	}

	if p.Workers == 1 {
		var dets []Detection
		for _, j := range jobs {
			dets = append(dets, scanRow(j)...)
		}
		return dets
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		dets   []Detection
		jobsCh = make(chan job)
	)
	for i := 0; i < p.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobsCh {
				if found := scanRow(j); len(found) > 0 {
					mu.Lock()
					dets = append(dets, found...)
					mu.Unlock()
				}
			}
		}()
	}
	for _, j := range jobs {
		jobsCh <- j
	}
	close(jobsCh)
	wg.Wait()

	return dets
}

// DetectImage converts the image into an integral image using the luminosity
// grayscale conversion and runs the scanner over it.
func DetectImage(img image.Image, c Classifier, p ScanParams) []Detection {
	ii := NewIntegralImage(GridFromImage(img), Luminosity.Func())
	return Detect(ii, c, p)
}
