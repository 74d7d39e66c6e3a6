package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	vj "github.com/esimov/vjcascade/core"
	"github.com/esimov/vjcascade/dataset"
	"github.com/esimov/vjcascade/utils"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const banner = `
┬  ┬ ┬┌┬┐┬─┐┌─┐┬┌┐┌
└┐┌┘ │ │ ├┬┘├─┤││││
 └┘ └┘ ┴ ┴└─┴ ┴┴┘└┘

Viola-Jones cascade trainer.
    Version: %s

`

// pipeName is the file name that indicates stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

func main() {
	var (
		// Flags
		posDir      = flag.String("pos", "", "Directory of positive (face) samples")
		negDir      = flag.String("neg", "", "Directory of negative (non-face) samples")
		bgDir       = flag.String("bg", "", "Directory of background images to crop negatives from")
		crops       = flag.Int("crops", 20, "Number of negative windows cropped from each background image")
		destination = flag.String("out", pipeName, "Destination of the JSON cascade")
		maxFPR      = flag.Float64("maxfpr", 0.5, "Maximum false positive rate ratio per stage")
		minDR       = flag.Float64("mindr", 0.99, "Minimum detection rate ratio per stage")
		targetFPR   = flag.Float64("target", 0.001, "Target false positive rate of the cascade")
		retries     = flag.Int("retries", 50, "Maximum number of retries of a single stage (0 = unbounded)")
		layers      = flag.Int("layers", 0, "Maximum number of stages (0 = unbounded)")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "Seed of the feature subset sampling")
		step        = flag.Int("step", 2, "Feature enumeration step")
		rounds      = flag.Int("rounds", 0, "Boosting rounds per stage (0 = one per feature)")
		timeout     = flag.Duration("timeout", 0, "Abort the training after this duration (0 = no limit)")
		verbose     = flag.Bool("v", false, "Print the training log")
	)

	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, banner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(*posDir) == 0 || (len(*negDir) == 0 && len(*bgDir) == 0) {
		log.Fatal("Usage: vjtrain -pos faces/ -neg nonfaces/ -out cascade.json")
	}

	var out io.Writer
	if *destination == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			log.Fatalln("`-` should be used with a pipe for stdout")
		}
		out = os.Stdout
	} else {
		f, err := os.Create(*destination)
		if err != nil {
			log.Fatalf("Unable to create the cascade file: %v", err)
		}
		defer f.Close()
		out = f
	}

	positives, err := dataset.LoadDir(*posDir, vj.BaseSize)
	if err != nil {
		log.Fatalf(utils.DecorateText("Error loading the positive samples: %v", utils.ErrorMessage), err)
	}
	negatives, err := loadNegatives(*negDir, *bgDir, *crops, *seed)
	if err != nil {
		log.Fatalf(utils.DecorateText("Error loading the negative samples: %v", utils.ErrorMessage), err)
	}
	features := vj.GenerateFeatures(vj.BaseSize, utils.Max(*step, 1))

	log.Printf("%d positives, %d negatives, %d features",
		len(positives), len(negatives), len(features))

	cfg := vj.DefaultTrainerConfig()
	cfg.MaxFalsePositiveRate = *maxFPR
	cfg.MinDetectionRate = *minDR
	cfg.TargetFalsePositiveRate = *targetFPR
	cfg.MaxRetries = *retries
	cfg.MaxLayers = *layers
	cfg.Seed = *seed

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "vjtrain: ", log.Ltime)
	}
	trainer := vj.NewTrainer(cfg, &vj.AdaBoost{Rounds: *rounds}, logger)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	var ind *utils.ProgressIndicator
	if !*verbose {
		ind = utils.NewProgressIndicator("Training stage 1...", time.Millisecond*100)
		ind.Start()
	}
	trainer.OnLayer = func(r vj.LayerReport) {
		msg := fmt.Sprintf("stage %d: %d classifiers, fpr %s, dr %s",
			r.Layer, r.Classifiers, utils.FormatRate(r.Rates.FalsePositiveRate), utils.FormatRate(r.Rates.DetectionRate))
		if ind != nil {
			ind.SetMessage(fmt.Sprintf("Training stage %d (%s)...", r.Layer+1, utils.DecorateText(msg, utils.StatusMessage)))
		}
	}

	cascade, err := trainer.Train(ctx, features, positives, negatives)
	if err != nil {
		if ind != nil {
			ind.StopMsg = fmt.Sprintf("Training... %sfailed ✗%s\n", utils.ErrorColor, utils.DefaultColor)
			ind.Stop()
		}
		var cerr *vj.ConvergenceError
		if errors.As(err, &cerr) {
			log.Fatalf(utils.DecorateText("Training failed at stage %d, reached fpr %s and dr %s: %v", utils.ErrorMessage),
				cerr.Layer, utils.FormatRate(cerr.FalsePositiveRate), utils.FormatRate(cerr.DetectionRate), err)
		}
		log.Fatalf(utils.DecorateText("Training failed: %v", utils.ErrorMessage), err)
	}
	if ind != nil {
		ind.StopMsg = fmt.Sprintf("Training... %sfinished ✔%s\n", utils.SuccessColor, utils.DefaultColor)
		ind.Stop()
	}

	if err := vj.WriteCascade(out, cascade); err != nil {
		log.Fatalf("Error writing the cascade: %v", err)
	}

	log.Printf("%s stage(s) trained in %s",
		utils.DecorateText(fmt.Sprint(cascade.Len()), utils.SuccessMessage),
		utils.DecorateText(utils.FormatTime(time.Since(start)), utils.SuccessMessage))
}

// loadNegatives reads the negative samples from the sample directory and crops
// additional random windows from the background images.
func loadNegatives(negDir, bgDir string, crops int, seed int64) ([]*vj.Sample, error) {
	var negatives []*vj.Sample
	if len(negDir) > 0 {
		samples, err := dataset.LoadDir(negDir, vj.BaseSize)
		if err != nil {
			return nil, err
		}
		negatives = append(negatives, samples...)
	}
	if len(bgDir) > 0 {
		rng := rand.New(rand.NewSource(seed))
		samples, err := dataset.LoadBackgrounds(bgDir, vj.BaseSize, crops, rng)
		if err != nil {
			return nil, err
		}
		negatives = append(negatives, samples...)
	}
	return negatives, nil
}
