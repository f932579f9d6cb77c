package orbmatch

import (
	"log/slog"
	"runtime"
)

const (
	// DefaultMaxFeatures is the default upper bound of keypoints kept per image.
	DefaultMaxFeatures = 2000

	// DefaultLevels is the default number of scale pyramid levels.
	DefaultLevels = 8

	// DefaultScaleFactor is the default size ratio between two pyramid levels.
	DefaultScaleFactor = 1.2

	// DefaultFastThreshold is the default intensity difference a circle pixel
	// needs to count as brighter or darker than the centre in the FAST test.
	DefaultFastThreshold = 20

	// DefaultRatio is the default factor of Lowe's ratio test. A match is good
	// if its distance is below Ratio times the distance of the runner-up.
	DefaultRatio = 0.75

	// DefaultMaxDistance is the Hamming distance up to which a match is
	// accepted against a reference that has a single descriptor, where no
	// ratio test is possible.
	DefaultMaxDistance = 64

	// DefaultMinScore is the score a best match needs before callers should
	// present it as a confident identification. Results below it are reported
	// as "no confident match".
	DefaultMinScore = 0.05

	// MaxAlternatives is the number of ranked candidates in a MatchResult.
	MaxAlternatives = 4
)

// Options configures feature extraction and matching. Zero fields take their
// default values.
type Options struct {
	// MaxFeatures is the maximum number of keypoints kept per image.
	MaxFeatures int

	// Levels is the number of scale pyramid levels.
	Levels int

	// ScaleFactor is the size ratio between two consecutive pyramid levels.
	// Must be greater than 1.
	ScaleFactor float64

	// FastThreshold is the FAST segment test threshold.
	FastThreshold int

	// MaxDimension, if non-zero, downscales images whose width or height
	// exceeds it before extraction. Keypoint coordinates are then in the
	// downscaled space.
	MaxDimension int

	// Ratio is the Lowe's ratio test factor.
	Ratio float64

	// MaxDistance is the acceptance distance for single-descriptor references.
	MaxDistance int

	// Workers bounds the parallelism of index building and ranking.
	Workers int

	// Logger receives build progress and skipped files. Not serialized.
	Logger *slog.Logger
}

// DefaultOptions returns the options with all defaults filled in.
func DefaultOptions() Options {
	var options Options
	options.applyDefaults()
	return options
}

// applyDefaults fills in default values for unset fields.
func (o *Options) applyDefaults() {
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = DefaultMaxFeatures
	}
	if o.Levels <= 0 {
		o.Levels = DefaultLevels
	}
	if o.ScaleFactor <= 1 {
		o.ScaleFactor = DefaultScaleFactor
	}
	if o.FastThreshold <= 0 {
		o.FastThreshold = DefaultFastThreshold
	}
	if o.Ratio <= 0 || o.Ratio > 1 {
		o.Ratio = DefaultRatio
	}
	if o.MaxDistance <= 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
