package facemark

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// Image is an immutable grayscale pixel grid with constant time lookup
// at arbitrary, possibly fractional coordinates. Pixels are stored in
// row-major order, one byte per pixel, the same layout the pigo face
// detector consumes, so detector runs need no extra conversion.
type Image struct {
	Pixels []uint8
	Width  int
	Height int
}

// NewImage wraps an existing grayscale pixel buffer.
func NewImage(pixels []uint8, width, height int) *Image {
	return &Image{Pixels: pixels, Width: width, Height: height}
}

// ImageFromImage converts any image type to the grayscale training image.
func ImageFromImage(src image.Image) *Image {
	nrgba := imgToNRGBA(src)
	return &Image{
		Pixels: rgbToGrayscale(nrgba),
		Width:  nrgba.Bounds().Dx(),
		Height: nrgba.Bounds().Dy(),
	}
}

// DecodeImage decodes an image from the reader and converts it to the
// grayscale training format.
func DecodeImage(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return ImageFromImage(src), nil
}

// At returns the intensity at the given sub-pixel location using
// bilinear interpolation. Coordinates outside the image resolve to the
// clamped edge intensity instead of reading arbitrary memory.
func (im *Image) At(x, y float64) float64 {
	x0 := int(x)
	y0 := int(y)
	fx := x - float64(x0)
	fy := y - float64(y0)

	if x < 0 || im.Width == 1 {
		x0, fx = 0, 0
	} else if x0 >= im.Width-1 {
		x0, fx = im.Width-2, 1
	}
	if y < 0 || im.Height == 1 {
		y0, fy = 0, 0
	} else if y0 >= im.Height-1 {
		y0, fy = im.Height-2, 1
	}

	x1, y1 := x0, y0
	if im.Width > 1 {
		x1 = x0 + 1
	}
	if im.Height > 1 {
		y1 = y0 + 1
	}

	i00 := float64(im.Pixels[y0*im.Width+x0])
	i10 := float64(im.Pixels[y0*im.Width+x1])
	i01 := float64(im.Pixels[y1*im.Width+x0])
	i11 := float64(im.Pixels[y1*im.Width+x1])

	top := i00 + fx*(i10-i00)
	bottom := i01 + fx*(i11-i01)
	return top + fy*(bottom-top)
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := srcBounds.Dx() * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}

// rgbToGrayscale converts an image to grayscale mode and
// returns the pixel values as an one dimensional array.
func rgbToGrayscale(src *image.NRGBA) []uint8 {
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	gray := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			gray[y*width+x] = uint8(
				(0.299*float64(r) +
					0.587*float64(g) +
					0.114*float64(b)) / 256,
			)
		}
	}

	return gray
}
