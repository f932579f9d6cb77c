/*
Package gray provides the single-channel intensity grid that feature detection
works on: colour to luma conversion and a separable Gaussian blur.
*/
package gray

import (
	"image"
	"image/color"
	"math"
)

// Luma weights, in thousandths, of the red, green and blue channels. These are
// the Y row of the YIQ (and BT.601) conversion.
const (
	lumaRed   = 299
	lumaGreen = 587
	lumaBlue  = 114
)

// Luma converts a native Color type into an 8-bit intensity. Integer arithmetic
// keeps the result identical across platforms.
func Luma(gen color.Color) uint8 {
	r32, g32, b32, _ := gen.RGBA()
	r, g, b := r32>>8, g32>>8, b32>>8
	return uint8((lumaRed*r + lumaGreen*g + lumaBlue*b + 500) / 1000)
}

// FromImage returns an intensity copy of the provided image. The result always
// has its origin at (0,0), whatever the bounds of the source were.
func FromImage(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return out
	}

	switch src := img.(type) {
	case *image.Gray:
		for row := 0; row < height; row++ {
			start := src.PixOffset(bounds.Min.X, bounds.Min.Y+row)
			copy(out.Pix[row*out.Stride:row*out.Stride+width], src.Pix[start:start+width])
		}
	case *image.RGBA:
		for row := 0; row < height; row++ {
			start := src.PixOffset(bounds.Min.X, bounds.Min.Y+row)
			for column := 0; column < width; column++ {
				p := src.Pix[start+4*column : start+4*column+3 : start+4*column+3]
				out.Pix[row*out.Stride+column] = uint8((lumaRed*uint32(p[0]) +
					lumaGreen*uint32(p[1]) + lumaBlue*uint32(p[2]) + 500) / 1000)
			}
		}
	default:
		// Slow path. Handles YCbCr, paletted and NRGBA sources alike.
		for row := 0; row < height; row++ {
			for column := 0; column < width; column++ {
				out.Pix[row*out.Stride+column] = Luma(img.At(bounds.Min.X+column, bounds.Min.Y+row))
			}
		}
	}

	return out
}

// Kernel returns a normalized 1D Gaussian kernel of 2*radius+1 taps.
func Kernel(radius int, sigma float64) []float64 {
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for index := range kernel {
		x := float64(index - radius)
		kernel[index] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[index]
	}
	for index := range kernel {
		kernel[index] /= sum
	}
	return kernel
}

// reflect maps an out-of-range coordinate back into [0,size) by mirroring
// around the border pixel (gfedcb|abcdefgh|gfedcba).
func reflect(position, size int) int {
	if size == 1 {
		return 0
	}
	for position < 0 || position >= size {
		if position < 0 {
			position = -position
		}
		if position >= size {
			position = 2*size - 2 - position
		}
	}
	return position
}

// Blur applies a separable Gaussian blur with the given radius and sigma. The
// source must have its origin at (0,0), as returned by FromImage.
func Blur(src *image.Gray, radius int, sigma float64) *image.Gray {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}
	kernel := Kernel(radius, sigma)

	// Apply 1D kernel on rows.
	temp := make([]float64, width*height)
	for row := 0; row < height; row++ {
		line := src.Pix[row*src.Stride : row*src.Stride+width]
		for column := 0; column < width; column++ {
			var acc float64
			for tap, weight := range kernel {
				acc += weight * float64(line[reflect(column+tap-radius, width)])
			}
			temp[row*width+column] = acc
		}
	}

	// Apply 1D kernel on columns.
	for column := 0; column < width; column++ {
		for row := 0; row < height; row++ {
			var acc float64
			for tap, weight := range kernel {
				acc += weight * temp[reflect(row+tap-radius, height)*width+column]
			}
			out.Pix[row*out.Stride+column] = clamp(acc)
		}
	}

	return out
}

func clamp(value float64) uint8 {
	value = math.Round(value)
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return uint8(value)
}
