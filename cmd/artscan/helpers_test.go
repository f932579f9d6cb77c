package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// shapes paints random rectangles over a plain canvas.
func shapes(seed int64) *image.RGBA {
	random := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 240, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 240; x++ {
			img.SetRGBA(x, y, color.RGBA{120, 120, 60, 255})
		}
	}
	for shape := 0; shape < 50; shape++ {
		c := color.RGBA{uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)), 255}
		x0, y0 := random.Intn(240), random.Intn(180)
		w, h := 6+random.Intn(30), 6+random.Intn(30)
		for y := y0; y < y0+h && y < 180; y++ {
			for x := x0; x < x0+w && x < 240; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
}

// referenceDir writes two references and returns the directory.
func referenceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "MonaLisa.png"), shapes(1503))
	writePNG(t, filepath.Join(dir, "the_scream.png"), shapes(1893))
	return dir
}

// run executes the root command with args, isolated from any config or
// .env file of the working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	args = append(args,
		"--config", filepath.Join(dir, "artscan.yaml"),
		"--env-file", filepath.Join(dir, ".env"),
		"--log-level", "error")

	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
