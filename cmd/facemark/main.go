package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/esimov/facemark"
	"github.com/esimov/facemark/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┬─┐┬┌─
├┤ ├─┤│  ├┤ │││├─┤├┬┘├┴┐
└  ┴ ┴└─┘└─┘┴ ┴┴ ┴┴└─┴ ┴

Face landmark alignment library based on cascaded regression trees.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	dbPath     = flag.String("db", "", "Training database directory (image + .pts landmark pairs)")
	modelPath  = flag.String("model", "model.bin", "Model file to write after training or to read for alignment")
	paramsPath = flag.String("params", "", "Optional YAML file with the training hyperparameters")
	cascade    = flag.String("cc", "", "Pigo cascade classifier used to generate face rectangles")
	source     = flag.String("in", "", "Image to align landmarks on")
	output     = flag.String("out", pipeName, "Destination of the aligned landmarks (pts format)")
	rect       = flag.String("rect", "", "Face rectangle as x0,y0,x1,y1 (skips the face detector)")
	seed       = flag.Int64("seed", 1, "Random seed of the training run")
	maxSize    = flag.Int("maxsize", 0, "Scale down database images larger than this on load")
	stages     = flag.Int("stages", 0, "Override: number of cascade stages")
	trees      = flag.Int("trees", 0, "Override: number of trees per stage")
	treeDepth  = flag.Int("depth", 0, "Override: maximum tree depth")
	inits      = flag.Int("inits", 0, "Override: initializations per image")

	// spinner used to instantiate and call the progress indicator.
	spinner *utils.Spinner
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, fmt.Sprintf(HelpBanner, Version))
		flag.PrintDefaults()
	}
	flag.Parse()

	switch {
	case *dbPath != "":
		train()
	case *source != "":
		align()
	default:
		flag.Usage()
		log.Fatal(fmt.Sprintf("%s%s",
			utils.DecorateText("\nPlease provide a training database (-db) or an image to align (-in)!", utils.ErrorMessage),
			utils.DefaultColor,
		))
	}
}

// train fits a new alignment model on the database and saves it.
func train() {
	params, err := trainingParameters()
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Invalid training parameters: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	db, err := facemark.LoadDatabase(*dbPath, *maxSize)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the training database: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	// Generate the initial face rectangles with the pigo detector when
	// a classifier is provided, otherwise fall back to shape bounds.
	if *cascade != "" {
		detector, err := facemark.NewFaceDetectorFromFile(*cascade)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to load the cascade classifier: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		db.Rects = detector.TrainingRects(db, 0.5)
	}

	now := time.Now()
	spinner = utils.NewSpinner(spinnerText("is training the model..."), time.Millisecond*200, true)
	spinner.Start()

	tracker, err := facemark.Train(db, params, *seed)

	spinner.StopMsg = spinnerText("is training the model... ✔")
	spinner.Stop()

	if err != nil {
		log.Fatalf(
			utils.DecorateText("\nError training the model: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	for i, verr := range tracker.ValidationErrors {
		fmt.Fprintf(os.Stderr, "stage %02d: validation error %.6f\n", i+1, verr)
	}

	if err := tracker.SaveFile(*modelPath); err != nil {
		log.Fatalf(
			utils.DecorateText("\nError saving the model: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	fmt.Fprintf(os.Stderr, "\nThe trained model has been saved as: %s %s\n",
		utils.DecorateText(*modelPath, utils.SuccessMessage),
		utils.DefaultColor,
	)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// align applies a trained model to a single image and writes the
// resulting landmarks in pts format.
func align() {
	tracker, err := facemark.LoadTrackerFile(*modelPath)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the model: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	img, err := loadImage(*source)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the source image: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	faceRect, err := faceRectangle(img)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to obtain a face rectangle: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	shape := tracker.Predict(img, faceRect)

	if err := writeShape(shape, *output); err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to write the landmarks: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
}

// trainingParameters merges the YAML parameter file with the command
// line overrides on top of the defaults.
func trainingParameters() (facemark.AlgorithmParameters, error) {
	params := facemark.DefaultParameters()
	var err error

	if *paramsPath != "" {
		params, err = facemark.LoadParameters(*paramsPath)
		if err != nil {
			return params, err
		}
	}
	if *stages > 0 {
		params.NumCascades = *stages
	}
	if *trees > 0 {
		params.NumTrees = *trees
	}
	if *treeDepth > 0 {
		params.MaxTreeDepth = *treeDepth
	}
	if *inits > 0 {
		params.NumInitializationsPerImage = *inits
	}
	return params, params.Validate()
}

// loadImage reads the source image from a local file or URL and
// converts it to the grayscale training format.
func loadImage(src string) (*facemark.Image, error) {
	if utils.IsValidUrl(src) {
		tmp, err := utils.DownloadImage(src)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()
		src = tmp.Name()
	}

	file, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := facemark.DecodeImage(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// faceRectangle obtains the initial face rectangle either from the
// -rect flag or by running the pigo detector over the image.
func faceRectangle(img *facemark.Image) (facemark.Rect, error) {
	if *rect != "" {
		return parseRect(*rect)
	}
	if *cascade == "" {
		return facemark.Rect{}, fmt.Errorf("provide a cascade classifier (-cc) or an explicit rectangle (-rect)")
	}

	detector, err := facemark.NewFaceDetectorFromFile(*cascade)
	if err != nil {
		return facemark.Rect{}, err
	}

	rects := detector.Detect(img)
	if len(rects) == 0 {
		return facemark.Rect{}, fmt.Errorf("no face detected in the source image")
	}
	return rects[0], nil
}

// parseRect parses a rectangle given as x0,y0,x1,y1.
func parseRect(s string) (facemark.Rect, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return facemark.Rect{}, fmt.Errorf("the rectangle should be given as x0,y0,x1,y1")
	}

	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return facemark.Rect{}, err
		}
		vals[i] = v
	}
	return facemark.NewRect(
		facemark.Point{X: vals[0], Y: vals[1]},
		facemark.Point{X: vals[2], Y: vals[3]},
	), nil
}

// writeShape writes the aligned landmarks to a file or, with the pipe
// name, to stdout. A terminal gets a readable listing, a pipe gets the
// pts format so the output can feed back into a database.
func writeShape(shape facemark.Shape, out string) error {
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			for i, p := range shape {
				fmt.Printf("%s %8.2f %8.2f\n",
					utils.DecorateText(fmt.Sprintf("landmark %02d:", i), utils.StatusMessage), p.X, p.Y)
			}
			return nil
		}
		return writePts(os.Stdout, shape)
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer file.Close()
	return writePts(file, shape)
}

// writePts encodes a shape in the pts landmark format.
func writePts(dst *os.File, shape facemark.Shape) error {
	fmt.Fprintf(dst, "version: 1\nn_points: %d\n{\n", len(shape))
	for _, p := range shape {
		fmt.Fprintf(dst, "%.4f %.4f\n", p.X, p.Y)
	}
	_, err := fmt.Fprintf(dst, "}\n")
	return err
}

func spinnerText(msg string) string {
	return fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACEMARK", utils.StatusMessage),
		utils.DecorateText(msg, utils.DefaultMessage))
}
