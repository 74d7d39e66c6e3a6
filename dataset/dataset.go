// Package dataset loads the positive and negative training samples from image directories.
package dataset

import (
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	vj "github.com/esimov/vjcascade/core"
	"github.com/pkg/errors"
)

// extensions lists the supported sample image formats.
var extensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// ListImages returns the sorted paths of the image files found in dir.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sample directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, x := range extensions {
			if ext == x {
				paths = append(paths, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir loads every image of the directory as a sample resized to size×size.
func LoadDir(dir string, size int) ([]*vj.Sample, error) {
	paths, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	samples := make([]*vj.Sample, 0, len(paths))
	for _, path := range paths {
		s, err := LoadSample(path, size)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// LoadSample decodes the image file and converts it into a size×size sample.
func LoadSample(path string, size int) (*vj.Sample, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding sample %s", path)
	}
	return FromImage(path, img, size), nil
}

// FromImage resizes the image to size×size, converts it to grayscale and
// builds the integral image of the sample.
func FromImage(name string, img image.Image, size int) *vj.Sample {
	resized := imaging.Resize(img, size, size, imaging.Lanczos)
	return vj.NewSample(name, integral(imaging.Grayscale(resized)))
}

// RandomCrops cuts n random square windows out of a background image. The
// windows are at least size pixels wide and are resized to size×size.
func RandomCrops(name string, img image.Image, n, size int, rng *rand.Rand) []*vj.Sample {
	b := img.Bounds()
	maxSide := min(b.Dx(), b.Dy())
	if maxSide < size {
		return nil
	}

	samples := make([]*vj.Sample, 0, n)
	for i := 0; i < n; i++ {
		side := size + rng.Intn(maxSide-size+1)
		x := b.Min.X + rng.Intn(b.Dx()-side+1)
		y := b.Min.Y + rng.Intn(b.Dy()-side+1)

		crop := imaging.Crop(img, image.Rect(x, y, x+side, y+side))
		samples = append(samples, FromImage(name, crop, size))
	}
	return samples
}

// LoadBackgrounds cuts perImage random windows out of every image in dir.
func LoadBackgrounds(dir string, size, perImage int, rng *rand.Rand) ([]*vj.Sample, error) {
	paths, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	var samples []*vj.Sample
	for _, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding background %s", path)
		}
		samples = append(samples, RandomCrops(path, img, perImage, size, rng)...)
	}
	return samples, nil
}

// integral builds the integral image from a grayscale NRGBA image, where the
// three color channels hold the same value.
func integral(gray *image.NRGBA) *vj.IntegralImage {
	rows, cols := gray.Bounds().Dy(), gray.Bounds().Dx()
	pix := make([]uint8, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			pix[row*cols+col] = gray.Pix[row*gray.Stride+col*4]
		}
	}
	return vj.NewIntegralImageFromGray(rows, cols, pix)
}
