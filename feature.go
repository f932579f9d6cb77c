package orbmatch

import (
	"fmt"
	"math/bits"
)

// DescriptorBits is the length of a binary descriptor.
const DescriptorBits = 256

// Descriptor is a 256-bit binary feature vector. Bit i is stored in word i/64
// at position i%64.
type Descriptor [DescriptorBits / 64]uint64

// Distance returns the Hamming distance between two descriptors, i.e. the
// number of differing bits.
func Distance(a, b Descriptor) int {
	return bits.OnesCount64(a[0]^b[0]) +
		bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) +
		bits.OnesCount64(a[3]^b[3])
}

// Bit reports whether bit i of the descriptor is set.
func (d Descriptor) Bit(i int) bool {
	return d[i/64]&(1<<uint(i%64)) != 0
}

// set sets bit i of the descriptor.
func (d *Descriptor) set(i int) {
	d[i/64] |= 1 << uint(i%64)
}

// String returns the descriptor as hexadecimal, word by word.
func (d Descriptor) String() string {
	return fmt.Sprintf("%016x%016x%016x%016x", d[0], d[1], d[2], d[3])
}

// Keypoint is a detected corner. Coordinates are in the pixel space of the
// original (level 0) image.
type Keypoint struct {
	X, Y float64

	// Size is the diameter of the described patch, in level 0 pixels.
	Size float64

	// Angle is the patch orientation in degrees, in [0,360).
	Angle float64

	// Response is the Harris corner response on the keypoint's level. It is
	// only comparable between keypoints of the same level.
	Response float64

	// Octave is the pyramid level the keypoint was detected on.
	Octave int
}

// Feature pairs a keypoint with its descriptor.
type Feature struct {
	Keypoint
	Descriptor Descriptor
}

// FeatureSet is the result of feature extraction on one image.
type FeatureSet []Feature

// Descriptors returns the descriptors of the set, in keypoint order.
func (set FeatureSet) Descriptors() []Descriptor {
	descriptors := make([]Descriptor, len(set))
	for index := range set {
		descriptors[index] = set[index].Descriptor
	}
	return descriptors
}
