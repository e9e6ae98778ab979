package facemark

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabase_ValidateCatchesInconsistentInputs(t *testing.T) {
	assert := assert.New(t)

	assert.Error((&Database{}).Validate())

	db := &Database{
		Images: []*Image{gradientImage(8, 8), gradientImage(8, 8)},
		Shapes: []Shape{{{X: 1, Y: 1}}},
	}
	assert.Error(db.Validate(), "images and shapes are misaligned")

	db.Shapes = append(db.Shapes, Shape{{X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.Error(db.Validate(), "shapes disagree on the landmark count")

	db.Shapes[1] = Shape{{X: 3, Y: 3}}
	assert.NoError(db.Validate())
	assert.Equal(1, db.NumLandmarks())

	db.Rects = []Rect{UnitRect()}
	assert.Error(db.Validate(), "images and rects are misaligned")
}

func TestDatabase_LoadShapeParsesPtsFormat(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "face.pts")
	content := []byte(
		"version: 1\n" +
			"n_points: 3\n" +
			"{\n" +
			"12.5 40\n" +
			"100 35.25\n" +
			"55 90\n" +
			"}\n")
	assert.NoError(os.WriteFile(path, content, 0644))

	shape, err := LoadShape(path)
	assert.NoError(err)
	assert.Equal(Shape{{X: 12.5, Y: 40}, {X: 100, Y: 35.25}, {X: 55, Y: 90}}, shape)
}

func TestDatabase_LoadShapeRejectsMalformedFiles(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.pts")
	assert.NoError(os.WriteFile(empty, []byte("version: 1\n{\n}\n"), 0644))
	_, err := LoadShape(empty)
	assert.Error(err)

	malformed := filepath.Join(dir, "malformed.pts")
	assert.NoError(os.WriteFile(malformed, []byte("{\n12.5\n}\n"), 0644))
	_, err = LoadShape(malformed)
	assert.Error(err)

	notANumber := filepath.Join(dir, "nan.pts")
	assert.NoError(os.WriteFile(notANumber, []byte("{\nabc def\n}\n"), 0644))
	_, err = LoadShape(notANumber)
	assert.Error(err)
}

func TestDatabase_LoadPairsImagesWithLandmarks(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	writePNG := func(name string, size int) {
		img := image.NewGray(image.Rect(0, 0, size, size))
		for i := range img.Pix {
			img.Pix[i] = uint8(i % 256)
		}
		file, err := os.Create(filepath.Join(dir, name))
		assert.NoError(err)
		assert.NoError(png.Encode(file, img))
		assert.NoError(file.Close())
	}
	writePts := func(name string) {
		content := []byte("version: 1\nn_points: 2\n{\n10 20\n30 40\n}\n")
		assert.NoError(os.WriteFile(filepath.Join(dir, name), content, 0644))
	}

	writePNG("a.png", 64)
	writePts("a.pts")
	writePNG("b.png", 64)
	writePts("b.pts")
	// An image without landmarks is skipped, not an error.
	writePNG("orphan.png", 64)

	db, err := LoadDatabase(dir, 0)
	assert.NoError(err)
	assert.Len(db.Images, 2)
	assert.Len(db.Shapes, 2)
	assert.Equal(2, db.NumLandmarks())
	assert.Equal([]float64{1, 1}, db.Scales)
	assert.Equal(64, db.Images[0].Width)
}

func TestDatabase_LoadResizesOversizedImages(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	img := image.NewGray(image.Rect(0, 0, 100, 50))
	file, err := os.Create(filepath.Join(dir, "wide.png"))
	assert.NoError(err)
	assert.NoError(png.Encode(file, img))
	assert.NoError(file.Close())

	content := []byte("{\n80 40\n20 10\n}\n")
	assert.NoError(os.WriteFile(filepath.Join(dir, "wide.pts"), content, 0644))

	db, err := LoadDatabase(dir, 50)
	assert.NoError(err)
	assert.Len(db.Images, 1)
	assert.Equal(50, db.Images[0].Width)
	assert.Equal(25, db.Images[0].Height)
	assert.Equal([]float64{0.5}, db.Scales)

	// Landmarks are rescaled along with the image.
	assert.Equal(Shape{{X: 40, Y: 20}, {X: 10, Y: 5}}, db.Shapes[0])
}

func TestDatabase_LoadFailsOnEmptyDirectory(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadDatabase(t.TempDir(), 0)
	assert.Error(err)

	_, err = LoadDatabase(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(err)
}
