package orbmatch

import (
	"image"
	"math"

	"github.com/artlens/orbmatch/gray"
)

// Extractor turns images into oriented keypoints with binary descriptors. It
// holds no mutable state and may be used from several goroutines.
type Extractor struct {
	options Options
}

// NewExtractor returns an extractor for the given options. Zero option fields
// take their default values.
func NewExtractor(options Options) *Extractor {
	options.applyDefaults()
	return &Extractor{options: options}
}

// Options returns the effective options of the extractor.
func (e *Extractor) Options() Options {
	return e.options
}

// Extract detects up to MaxFeatures keypoints in the image and describes each
// of them. Colour images are converted to intensity first. An empty or
// textureless image yields an empty set. For identical pixels and options,
// the result is identical.
func (e *Extractor) Extract(img image.Image) FeatureSet {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return FeatureSet{}
	}

	base := downscale(gray.FromImage(img), e.options.MaxDimension)
	pyramid := buildPyramid(base, e.options.Levels, e.options.ScaleFactor, e.options.MaxFeatures)

	features := FeatureSet{}
	for octave, layer := range pyramid {
		if layer.quota <= 0 {
			continue
		}

		corners := detectCorners(layer.img, e.options.FastThreshold, edgeMargin)
		if len(corners) == 0 {
			continue
		}
		corners = retainBest(layer.img, corners, layer.quota)

		smoothed := gray.Blur(layer.img, blurRadius, blurSigma)
		for _, c := range corners {
			angle := orientation(layer.img, c.x, c.y)
			degrees := angle * 180 / math.Pi
			if degrees < 0 {
				degrees += 360
			}

			features = append(features, Feature{
				Keypoint: Keypoint{
					X:        float64(c.x) * layer.scale,
					Y:        float64(c.y) * layer.scale,
					Size:     patchSize * layer.scale,
					Angle:    degrees,
					Response: c.response,
					Octave:   octave,
				},
				Descriptor: describe(smoothed, c.x, c.y, angle),
			})
		}
	}

	return features
}
