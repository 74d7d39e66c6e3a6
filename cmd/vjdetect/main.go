package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/disintegration/imaging"
	vj "github.com/esimov/vjcascade/core"
	"github.com/esimov/vjcascade/utils"
	"github.com/fogleman/gg"
	"golang.org/x/image/bmp"
	"golang.org/x/term"
)

const banner = `
┬  ┬ ┬┌┬┐┌─┐┌┬┐┌─┐┌─┐┌┬┐
└┐┌┘ │ ││├┤  │ ├┤ │   │
 └┘ └┘─┴┘└─┘ ┴ └─┘└─┘ ┴

Viola-Jones cascade face detector.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

// faceDetector contains the detector settings.
type faceDetector struct {
	cascadeFile  string
	destination  string
	grayscale    vj.Grayscale
	params       vj.ScanParams
	iouThreshold float64
}

func main() {
	var (
		// Flags
		source       = flag.String("in", pipeName, "Source image")
		destination  = flag.String("out", pipeName, "Destination image")
		cascadeFile  = flag.String("cf", "", "JSON cascade file")
		minSize      = flag.Int("min", vj.BaseSize, "Minimum size of face")
		maxSize      = flag.Int("max", 0, "Maximum size of face (0 = image size)")
		stride       = flag.Int("stride", 2, "Stride divisor of the sliding window (2 = sparse, 4 = dense)")
		grayscale    = flag.Int("gray", int(vj.Luminosity), "Grayscale algorithm: 0 luminosity|1 average|2 lightness|3 desaturation")
		iouThreshold = flag.Float64("iou", 0.2, "Merge detections overlapping over this IoU (0 = keep all)")
		workers      = flag.Int("conc", runtime.NumCPU(), "Number of concurrent scanning workers")
		jsonf        = flag.String("json", "", "Output the detections into a json file")
	)

	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, banner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(*source) == 0 || len(*cascadeFile) == 0 {
		log.Fatal("Usage: vjdetect -in input.jpg -out out.png -cf cascade.json")
	}

	start := time.Now()

	det := &faceDetector{
		cascadeFile: *cascadeFile,
		destination: *destination,
		grayscale:   vj.Grayscale(*grayscale),
		params: vj.ScanParams{
			MinSize:       *minSize,
			MaxSize:       *maxSize,
			StrideDivisor: *stride,
			Workers:       utils.Max(*workers, 1),
		},
		iouThreshold: *iouThreshold,
	}

	var dst io.Writer
	if det.destination != "empty" {
		if det.destination == pipeName {
			if term.IsTerminal(int(os.Stdout.Fd())) {
				log.Fatalln("`-` should be used with a pipe for stdout")
			}
			dst = os.Stdout
		} else {
			ext := filepath.Ext(det.destination)
			if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".bmp" {
				log.Fatalf("Output file type not supported: %v", ext)
			}
			fn, err := os.OpenFile(det.destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
			if err != nil {
				log.Fatalf("Unable to open output file: %v", err)
			}
			defer fn.Close()
			dst = fn
		}
	}

	ind := utils.NewProgressIndicator("Detecting faces...", time.Millisecond*100)
	ind.Start()

	src, faces, err := det.detectFaces(*source)
	if err != nil {
		stopFailed(ind)
		log.Fatalf("Detection error: %s", utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	if det.destination != "empty" {
		if err := encodeImage(dst, drawFaces(src, faces)); err != nil {
			stopFailed(ind)
			log.Fatalf("Error encoding the output image: %v", err)
		}
	}

	var out io.Writer
	if *jsonf != "" {
		if *jsonf == pipeName {
			out = os.Stdout
		} else {
			f, err := os.Create(*jsonf)
			if err != nil {
				stopFailed(ind)
				log.Fatalf("Could not create the json file: %v", err)
			}
			defer f.Close()
			out = f
		}
	}
	ind.StopMsg = fmt.Sprintf("Detecting faces... %sfinished ✔%s", utils.SuccessColor, utils.DefaultColor)
	ind.Stop()

	if len(faces) > 0 {
		log.Printf("\n%s face(s) detected", utils.DecorateText(fmt.Sprint(len(faces)), utils.SuccessMessage))
		if out != nil {
			if err := json.NewEncoder(out).Encode(faces); err != nil {
				log.Fatalf("Error encoding the json file: %s", err)
			}
		}
	} else {
		log.Printf("\n%s", utils.DecorateText("no detected faces!", utils.ErrorMessage))
	}

	log.Printf("\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(start)), utils.SuccessMessage))
}

// stopFailed stops the spinner with the failure message. It has to run
// before any log.Fatal call, which would leave the spinner line on screen.
func stopFailed(ind *utils.ProgressIndicator) {
	ind.StopMsg = fmt.Sprintf("Detecting faces... %sfailed ✗%s\n", utils.ErrorColor, utils.DefaultColor)
	ind.Stop()
}

// detectFaces runs the sliding window detector over the source image.
func (fd *faceDetector) detectFaces(source string) (image.Image, []vj.Detection, error) {
	var srcFile io.Reader
	if source == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		srcFile = os.Stdin
	} else {
		file, err := os.Open(source)
		if err != nil {
			return nil, nil, err
		}
		defer file.Close()
		srcFile = file
	}

	src, err := imaging.Decode(srcFile)
	if err != nil {
		return nil, nil, err
	}
	if src.Bounds().Empty() {
		return nil, nil, errors.New("the source image is empty")
	}

	contentType, err := utils.DetectFileContentType(fd.cascadeFile)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "text/plain; charset=utf-8" {
		return nil, nil, errors.New("the provided cascade classifier is not a JSON file")
	}

	cf, err := os.Open(fd.cascadeFile)
	if err != nil {
		return nil, nil, err
	}
	defer cf.Close()

	cascade, err := vj.ReadCascade(cf)
	if err != nil {
		return nil, nil, err
	}

	ii := vj.NewIntegralImage(vj.GridFromImage(src), fd.grayscale.Func())
	faces := vj.Detect(ii, cascade, fd.params)
	if fd.iouThreshold > 0 {
		faces = clusterDetections(faces, fd.iouThreshold)
	}
	return src, faces, nil
}

// drawFaces marks the detected faces with a rectangle.
func drawFaces(src image.Image, faces []vj.Detection) image.Image {
	dc := gg.NewContext(src.Bounds().Dx(), src.Bounds().Dy())
	dc.DrawImage(src, 0, 0)

	for _, face := range faces {
		dc.DrawRectangle(float64(face.Col), float64(face.Row), float64(face.Size), float64(face.Size))
	}
	dc.SetLineWidth(2.0)
	dc.SetStrokeStyle(gg.NewSolidPattern(color.RGBA{R: 255, G: 0, B: 0, A: 255}))
	dc.Stroke()

	return dc.Image()
}

func encodeImage(dst io.Writer, img image.Image) error {
	switch d := dst.(type) {
	case *os.File:
		switch filepath.Ext(d.Name()) {
		case "", ".jpg", ".jpeg":
			return jpeg.Encode(dst, img, &jpeg.Options{Quality: 100})
		case ".png":
			return png.Encode(dst, img)
		case ".bmp":
			return bmp.Encode(dst, img)
		default:
			return errors.New("unsupported image format")
		}
	default:
		return jpeg.Encode(dst, img, &jpeg.Options{Quality: 100})
	}
}
