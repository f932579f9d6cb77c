package orbmatch

import (
	"image"
	"sort"
)

// circle holds the 16 offsets of the Bresenham circle of radius 3 used by the
// FAST segment test, in clockwise order starting at the top.
var circle = [16]image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3}}

const (
	// arcLength is the number of contiguous circle pixels that must all be
	// brighter or all be darker than the centre (FAST-9).
	arcLength = 9

	// harrisBlock is the window size of the Harris structure tensor.
	harrisBlock = 7

	// harrisK is the Harris detector free parameter.
	harrisK = 0.04
)

// corner is a FAST detection on a single level, in level pixel coordinates.
type corner struct {
	x, y     int
	score    int
	response float64
}

// fastScore runs the segment test on the pixel at (x,y). It returns 0 if the
// pixel is not a corner, otherwise the sum of the absolute differences beyond
// the threshold of the winning (brighter or darker) class.
func fastScore(img *image.Gray, x, y, threshold int) int {
	centre := int(img.Pix[y*img.Stride+x])
	var diffs [16]int
	for index, offset := range circle {
		diffs[index] = int(img.Pix[(y+offset.Y)*img.Stride+x+offset.X]) - centre
	}

	// Quick rejection: of the four compass pixels, at least two contiguous
	// ones must be in the same class for any arc of nine to exist.
	brighter, darker := 0, 0
	for index := 0; index < 16; index += 4 {
		if diffs[index] > threshold {
			brighter++
		} else if diffs[index] < -threshold {
			darker++
		}
	}
	if brighter < 2 && darker < 2 {
		return 0
	}

	bright := longestArc(diffs, func(diff int) bool { return diff > threshold })
	dark := longestArc(diffs, func(diff int) bool { return diff < -threshold })
	if bright < arcLength && dark < arcLength {
		return 0
	}

	sumBright, sumDark := 0, 0
	for _, diff := range diffs {
		if diff > threshold {
			sumBright += diff - threshold
		} else if diff < -threshold {
			sumDark += -diff - threshold
		}
	}
	if bright >= arcLength && (dark < arcLength || sumBright >= sumDark) {
		return sumBright
	}
	return sumDark
}

// longestArc returns the length of the longest run of circle pixels
// satisfying the predicate, wrapping around the circle.
func longestArc(diffs [16]int, in func(int) bool) int {
	longest, run := 0, 0
	for index := 0; index < 32; index++ {
		if in(diffs[index%16]) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest > 16 {
		longest = 16
	}
	return longest
}

// detectCorners runs FAST on every pixel at least border pixels away from the
// image edge and applies a 3x3 non-maximum suppression on the scores. Corners
// are returned in raster order.
func detectCorners(img *image.Gray, threshold, border int) []corner {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 2*border || height <= 2*border {
		return nil
	}

	scores := make([]int, width*height)
	for y := border; y < height-border; y++ {
		for x := border; x < width-border; x++ {
			scores[y*width+x] = fastScore(img, x, y, threshold)
		}
	}

	var corners []corner
	for y := border; y < height-border; y++ {
		for x := border; x < width-border; x++ {
			score := scores[y*width+x]
			if score == 0 || !isLocalMaximum(scores, width, x, y) {
				continue
			}
			corners = append(corners, corner{x: x, y: y, score: score})
		}
	}

	return corners
}

// isLocalMaximum reports whether the score at (x,y) wins against its eight
// neighbours. On a tie, the neighbour first in raster order wins.
func isLocalMaximum(scores []int, width, x, y int) bool {
	score := scores[y*width+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			neighbour := scores[(y+dy)*width+x+dx]
			earlier := dy < 0 || (dy == 0 && dx < 0)
			if neighbour > score || (earlier && neighbour == score) {
				return false
			}
		}
	}
	return true
}

// harrisResponse computes the Harris corner measure at (x,y) from Sobel
// gradients summed over a harrisBlock window. The caller guarantees that the
// window plus the Sobel radius lies inside the image.
func harrisResponse(img *image.Gray, x, y int) float64 {
	stride := img.Stride
	pix := img.Pix
	radius := harrisBlock / 2

	var a, b, c float64
	for row := y - radius; row <= y+radius; row++ {
		for column := x - radius; column <= x+radius; column++ {
			offset := row*stride + column
			dx := int(pix[offset-stride+1]) + 2*int(pix[offset+1]) + int(pix[offset+stride+1]) -
				int(pix[offset-stride-1]) - 2*int(pix[offset-1]) - int(pix[offset+stride-1])
			dy := int(pix[offset+stride-1]) + 2*int(pix[offset+stride]) + int(pix[offset+stride+1]) -
				int(pix[offset-stride-1]) - 2*int(pix[offset-stride]) - int(pix[offset-stride+1])
			a += float64(dx * dx)
			b += float64(dy * dy)
			c += float64(dx * dy)
		}
	}

	return a*b - c*c - harrisK*(a+b)*(a+b)
}

// retainBest scores the corners with the Harris measure and keeps the n
// strongest. Equal responses keep raster order, so the selection is
// reproducible.
func retainBest(img *image.Gray, corners []corner, n int) []corner {
	for index := range corners {
		corners[index].response = harrisResponse(img, corners[index].x, corners[index].y)
	}
	sort.SliceStable(corners, func(i, j int) bool {
		return corners[i].response > corners[j].response
	})
	if len(corners) > n {
		corners = corners[:n]
	}
	return corners
}
