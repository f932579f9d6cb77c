package main

import (
	"encoding/json"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artlens/orbmatch"
)

func TestMatchCmdDirectory(t *testing.T) {
	dir := referenceDir(t)
	photo := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, photo, shapes(1893))

	out, err := run(t, "match", dir, photo)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !strings.Contains(out, "Match: the_scream") {
		t.Errorf("expected the_scream match, got:\n%s", out)
	}
	if !strings.Contains(out, "2. monalisa") {
		t.Errorf("expected monalisa as second candidate, got:\n%s", out)
	}
}

func TestMatchCmdSnapshotJSON(t *testing.T) {
	dir := referenceDir(t)
	snapshot := filepath.Join(t.TempDir(), "index.gob.gz")
	if _, err := run(t, "index", dir, "--snapshot", snapshot); err != nil {
		t.Fatalf("index: %v", err)
	}

	photo := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, photo, shapes(1503))

	out, err := run(t, "match", snapshot, photo, "--json")
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	var result orbmatch.MatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if result.Label != "monalisa" {
		t.Errorf("expected monalisa, got %q", result.Label)
	}
	if len(result.Alternatives) != 2 {
		t.Errorf("expected 2 alternatives, got %d", len(result.Alternatives))
	}
}

func TestMatchCmdNoMatch(t *testing.T) {
	dir := referenceDir(t)
	photo := filepath.Join(t.TempDir(), "gray.png")
	blank := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range blank.Pix {
		blank.Pix[i] = 128
	}
	writePNG(t, photo, blank)

	out, err := run(t, "match", dir, photo)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !strings.Contains(out, "No confident match") {
		t.Errorf("expected no confident match, got:\n%s", out)
	}
}

func TestMatchCmdErrors(t *testing.T) {
	dir := referenceDir(t)

	if _, err := run(t, "match", filepath.Join(t.TempDir(), "missing"), "photo.png"); err == nil {
		t.Error("expected error for a missing index source")
	}
	if _, err := run(t, "match", dir, filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for a missing photo")
	}
}
