package orbmatch

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// paintings are the labels of the reference fixtures, each with the seed of
// its synthetic texture.
var paintings = []struct {
	label string
	seed  int64
}{
	{"monalisa", 1503},
	{"the_last_supper", 1498},
	{"the_scream", 1893},
	{"the_starry_night", 1889},
}

// texturedImage paints a reproducible picture: a smooth, seed dependent
// background covered with overlapping rectangles and discs of random colours.
// The shapes give plenty of corners, the background keeps the corner patches
// of different shapes apart.
func texturedImage(seed int64, width, height int) *image.RGBA {
	random := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	fx, fy := 5+random.Float64()*6, 5+random.Float64()*6
	phase := random.Float64() * math.Pi
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 128 + 50*math.Sin(float64(x)/fx+phase)*math.Cos(float64(y)/fy-phase)
			img.SetRGBA(x, y, color.RGBA{uint8(v), uint8(v), uint8(v / 2), 255})
		}
	}

	randomColour := func() color.RGBA {
		return color.RGBA{uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)), 255}
	}
	for shape := 0; shape < 70; shape++ {
		c := randomColour()
		x0, y0 := random.Intn(width), random.Intn(height)
		w, h := 6+random.Intn(40), 6+random.Intn(40)
		if shape%3 == 0 {
			radius := w / 2
			for y := y0 - radius; y <= y0+radius; y++ {
				for x := x0 - radius; x <= x0+radius; x++ {
					if (x-x0)*(x-x0)+(y-y0)*(y-y0) <= radius*radius && image.Pt(x, y).In(img.Rect) {
						img.SetRGBA(x, y, c)
					}
				}
			}
			continue
		}
		for y := y0; y < y0+h && y < height; y++ {
			for x := x0; x < x0+w && x < width; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}

	return img
}

// solidImage returns a uniformly coloured image.
func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// rotate90 rotates the image a quarter turn clockwise.
func rotate90(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, height, width))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(height-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

// crop returns the part of the image inside the rectangle.
func crop(src *image.RGBA, rect image.Rectangle) image.Image {
	return src.SubImage(rect)
}

// writePNG encodes the image into dir/name.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
	return path
}

// paintingsDir writes the reference fixtures into a temporary directory.
func paintingsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range paintings {
		writePNG(t, dir, p.label+".png", texturedImage(p.seed, 320, 240))
	}
	return dir
}

// withBits returns a descriptor with the first n bits set.
func withBits(n int) Descriptor {
	var d Descriptor
	for i := 0; i < n; i++ {
		d.set(i)
	}
	return d
}
