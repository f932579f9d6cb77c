package orbmatch

import (
	"image"
	"math"

	"github.com/artlens/orbmatch/gray"
	"github.com/nfnt/resize"
)

const (
	// blurRadius and blurSigma define the smoothing applied before sampling
	// the binary tests.
	blurRadius = 3
	blurSigma  = 2
)

// level is one layer of the scale pyramid.
type level struct {
	// img is the resampled intensity image.
	img *image.Gray

	// scale maps level coordinates back to level 0.
	scale float64

	// quota is the number of keypoints this level may contribute.
	quota int
}

// buildPyramid resamples the base image into up to levels layers, each
// scaleFactor times smaller than the previous one. Layers too small to hold
// a single keypoint are not created. The feature budget is split across the
// layers in proportion to their area ratio, like a geometric series.
func buildPyramid(base *image.Gray, levels int, scaleFactor float64, maxFeatures int) []level {
	bounds := base.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var pyramid []level
	for index := 0; index < levels; index++ {
		scale := math.Pow(scaleFactor, float64(index))
		levelWidth := int(math.Round(float64(width) / scale))
		levelHeight := int(math.Round(float64(height) / scale))
		if levelWidth <= 2*edgeMargin || levelHeight <= 2*edgeMargin {
			break
		}

		img := base
		if index > 0 {
			img = asGray(resize.Resize(uint(levelWidth), uint(levelHeight), base, resize.Bilinear))
		}
		pyramid = append(pyramid, level{img: img, scale: scale})
	}

	// Split the feature budget.
	if len(pyramid) == 0 {
		return nil
	}
	factor := 1 / scaleFactor
	perLevel := float64(maxFeatures) * (1 - factor) / (1 - math.Pow(factor, float64(len(pyramid))))
	remaining := maxFeatures
	for index := range pyramid[:len(pyramid)-1] {
		quota := int(math.Round(perLevel))
		if quota > remaining {
			quota = remaining
		}
		pyramid[index].quota = quota
		remaining -= quota
		perLevel *= factor
	}
	pyramid[len(pyramid)-1].quota = remaining

	return pyramid
}

// asGray returns the image as a zero-origin *image.Gray, converting only if
// the resampler returned something else.
func asGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	return gray.FromImage(img)
}

// downscale shrinks the image so that neither side exceeds maxDimension,
// keeping the aspect ratio. Images that already fit are returned unchanged.
func downscale(img *image.Gray, maxDimension int) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return img
	}
	if width >= height {
		return asGray(resize.Resize(uint(maxDimension), 0, img, resize.Bilinear))
	}
	return asGray(resize.Resize(0, uint(maxDimension), img, resize.Bilinear))
}
