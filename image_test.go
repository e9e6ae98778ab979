package facemark

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func gradientImage(width, height int) *Image {
	pixels := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixels[y*width+x] = uint8(x % 256)
		}
	}
	return NewImage(pixels, width, height)
}

func TestImage_ExactLookupAtIntegerCoordinates(t *testing.T) {
	assert := assert.New(t)

	img := gradientImage(10, 10)

	assert.Equal(0.0, img.At(0, 0))
	assert.Equal(5.0, img.At(5, 3))
	assert.Equal(9.0, img.At(9, 9))
}

func TestImage_BilinearInterpolation(t *testing.T) {
	assert := assert.New(t)

	img := gradientImage(10, 10)

	// Halfway between column 2 and 3 on a horizontal gradient.
	assert.InDelta(2.5, img.At(2.5, 4), 1e-9)
	assert.InDelta(2.25, img.At(2.25, 4.75), 1e-9)
}

func TestImage_OutOfBoundsClampsToEdge(t *testing.T) {
	assert := assert.New(t)

	img := gradientImage(10, 10)

	assert.Equal(0.0, img.At(-100, -100))
	assert.Equal(9.0, img.At(1e6, 1e6))
	assert.Equal(0.0, img.At(0, 1e6))
	assert.Equal(9.0, img.At(1e6, 0))
}

func TestImage_SinglePixelImage(t *testing.T) {
	assert := assert.New(t)

	img := NewImage([]uint8{42}, 1, 1)

	assert.Equal(42.0, img.At(0, 0))
	assert.Equal(42.0, img.At(-5, 17))
}

func TestImage_FromImageConvertsToGrayscale(t *testing.T) {
	assert := assert.New(t)

	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = 0xff
		src.Pix[i+1] = 0xff
		src.Pix[i+2] = 0xff
		src.Pix[i+3] = 0xff
	}

	img := ImageFromImage(src)

	assert.Equal(4, img.Width)
	assert.Equal(4, img.Height)
	assert.Len(img.Pixels, 16)
	// White converts to the brightest gray value.
	assert.InDelta(255, float64(img.Pixels[0]), 1.0)
}
