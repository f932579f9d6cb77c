package orbmatch

import (
	"image"
	"math"
	"math/rand"
)

const (
	// patchSize is the diameter of the patch a descriptor summarizes.
	patchSize = 31

	// halfPatch is the radius of the orientation patch.
	halfPatch = patchSize / 2

	// patternExtent bounds the unrotated test point coordinates.
	patternExtent = 13

	// patternSeed fixes the sampling pattern. Changing it invalidates every
	// stored descriptor.
	patternSeed = 0x0b5e55ed

	// edgeMargin is the minimum distance of a keypoint to the level border. It
	// covers the orientation patch, the rotated test points and the Harris
	// window.
	edgeMargin = 20
)

// pointPair is one binary test: bit = I(a) < I(b).
type pointPair struct {
	ax, ay, bx, by float64
}

// pattern holds the DescriptorBits binary tests of the descriptor.
var pattern = samplePattern(DescriptorBits, patternSeed)

// samplePattern draws test point pairs from an isotropic Gaussian around the
// patch centre, clipped to the pattern extent. The generator is seeded, so the
// pattern is the same in every process.
func samplePattern(n int, seed int64) []pointPair {
	random := rand.New(rand.NewSource(seed))
	sigma := float64(patchSize) / 5
	draw := func() float64 {
		value := math.Round(random.NormFloat64() * sigma)
		return math.Max(-patternExtent, math.Min(patternExtent, value))
	}

	pairs := make([]pointPair, 0, n)
	for len(pairs) < n {
		pair := pointPair{draw(), draw(), draw(), draw()}
		if pair.ax == pair.bx && pair.ay == pair.by {
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// circleExtent[dy] is the largest dx with dx*dx+dy*dy <= halfPatch^2.
var circleExtent = func() [halfPatch + 1]int {
	var extent [halfPatch + 1]int
	for dy := range extent {
		extent[dy] = int(math.Sqrt(float64(halfPatch*halfPatch - dy*dy)))
	}
	return extent
}()

// orientation returns the angle, in radians, of the vector from (x,y) to the
// intensity centroid of the surrounding circular patch.
func orientation(img *image.Gray, x, y int) float64 {
	stride := img.Stride
	var m01, m10 int
	for dy := -halfPatch; dy <= halfPatch; dy++ {
		extent := circleExtent[abs(dy)]
		row := (y + dy) * stride
		for dx := -extent; dx <= extent; dx++ {
			value := int(img.Pix[row+x+dx])
			m10 += dx * value
			m01 += dy * value
		}
	}
	return math.Atan2(float64(m01), float64(m10))
}

// describe computes the steered BRIEF descriptor at (x,y) on the smoothed
// level image, with the test pattern rotated by angle radians.
func describe(smoothed *image.Gray, x, y int, angle float64) Descriptor {
	sin, cos := math.Sincos(angle)
	stride := smoothed.Stride
	sample := func(px, py float64) uint8 {
		column := x + int(math.Round(px*cos-py*sin))
		row := y + int(math.Round(px*sin+py*cos))
		return smoothed.Pix[row*stride+column]
	}

	var descriptor Descriptor
	for index, pair := range pattern {
		if sample(pair.ax, pair.ay) < sample(pair.bx, pair.by) {
			descriptor.set(index)
		}
	}
	return descriptor
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
