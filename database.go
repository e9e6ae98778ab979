package facemark

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	// Registers the BMP format for image.Decode based loading.
	_ "golang.org/x/image/bmp"
)

// Database holds the index-aligned training inputs: grayscale images,
// ground truth landmark shapes and, optionally, face rectangles. The
// images are owned by the database; training samples reference them by
// index and never copy pixel data.
type Database struct {
	Images []*Image
	Shapes []Shape
	Rects  []Rect

	// Scales records the per-image resize factor applied on load, one
	// entry per image, 1 when the image was loaded unchanged.
	Scales []float64
}

// Validate fails fast on databases no training run can proceed with:
// missing entries, misaligned parallel sequences or shapes that do not
// agree on the landmark count.
func (db *Database) Validate() error {
	if len(db.Images) == 0 {
		return errors.New("the database contains no images")
	}
	if len(db.Shapes) != len(db.Images) {
		return errors.Errorf("images and shapes are misaligned: %d vs %d",
			len(db.Images), len(db.Shapes))
	}
	if len(db.Rects) > 0 && len(db.Rects) != len(db.Images) {
		return errors.Errorf("images and rects are misaligned: %d vs %d",
			len(db.Images), len(db.Rects))
	}

	numLandmarks := len(db.Shapes[0])
	if numLandmarks == 0 {
		return errors.New("the database shapes carry no landmarks")
	}
	for i, s := range db.Shapes {
		if len(s) != numLandmarks {
			return errors.Errorf("shape %d has %d landmarks, expected %d", i, len(s), numLandmarks)
		}
	}
	return nil
}

// NumLandmarks returns the landmark count shared by all shapes.
func (db *Database) NumLandmarks() int {
	if len(db.Shapes) == 0 {
		return 0
	}
	return len(db.Shapes[0])
}

// imageExtensions lists the file types the directory loader picks up.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// LoadDatabase reads a landmark database from a directory: every image
// file accompanied by a same-named .pts landmark file becomes one
// database entry. Images larger than maxImageSize on their longest edge
// are scaled down on load and the landmarks are scaled along with them.
// Pass maxImageSize <= 0 to keep the original resolution.
func LoadDatabase(dir string, maxImageSize int) (*Database, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading the database directory")
	}

	db := &Database{}
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}

		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		ptsPath := filepath.Join(dir, base+".pts")
		if _, err := os.Stat(ptsPath); err != nil {
			continue
		}

		shape, err := LoadShape(ptsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "loading the landmarks of %s", e.Name())
		}

		src, err := imaging.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "loading the image %s", e.Name())
		}

		scale := 1.0
		dx, dy := src.Bounds().Dx(), src.Bounds().Dy()
		longest := dx
		if dy > longest {
			longest = dy
		}
		if maxImageSize > 0 && longest > maxImageSize {
			scale = float64(maxImageSize) / float64(longest)
			src = imaging.Resize(src, int(float64(dx)*scale), int(float64(dy)*scale), imaging.Lanczos)

			for j := range shape {
				shape[j].X *= scale
				shape[j].Y *= scale
			}
		}

		db.Images = append(db.Images, ImageFromImage(src))
		db.Shapes = append(db.Shapes, shape)
		db.Scales = append(db.Scales, scale)
	}

	if len(db.Images) == 0 {
		return nil, errors.Errorf("no image/landmark pairs found in %s", dir)
	}
	return db, db.Validate()
}

// LoadShape parses a pts landmark file:
//
//	version: 1
//	n_points: 68
//	{
//	x0 y0
//	...
//	}
func LoadShape(path string) (Shape, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var shape Shape
	scanner := bufio.NewScanner(file)
	inBody := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "{":
			inBody = true
		case line == "}":
			inBody = false
		case inBody && line != "":
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed landmark line: %q", line)
			}
			x, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, err
			}
			y, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, err
			}
			shape = append(shape, Point{X: x, Y: y})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("no landmarks found in %s", path)
	}
	return shape, nil
}

// isImageFile checks for the supported image extensions.
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
