package orbmatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Index holds the reference entries that queries are matched against, in
// the order they were added. An Index is immutable once built: it may be
// shared between goroutines and queried concurrently without locking.
type Index struct {
	// All references or, rather, the candidates for a query.
	entries []ReferenceEntry

	// labels maps a label to its position in entries.
	labels map[string]int

	// extractor is used on queries so they are described exactly like the
	// references.
	extractor *Extractor
}

// SkipReason explains why a reference file was left out of the index.
type SkipReason string

const (
	SkipDecode      SkipReason = "decode"
	SkipNoKeypoints SkipReason = "no-keypoints"
	SkipEmptyLabel  SkipReason = "empty-label"
)

// Skip is a reference file that could not be indexed. Skipped files do not
// fail a build.
type Skip struct {
	Path   string
	Reason SkipReason
	Err    error
}

// BuildReport summarizes an index build: which labels were indexed and which
// files were skipped.
type BuildReport struct {
	Dir     string
	Indexed []string
	Skipped []Skip
}

// NewIndex returns an index holding the given entries. Labels must be
// non-empty and unique. KeypointCount is set from the descriptors. Unlike
// BuildIndex, an empty entry list is accepted.
func NewIndex(options Options, entries ...ReferenceEntry) (*Index, error) {
	index := &Index{
		entries:   make([]ReferenceEntry, 0, len(entries)),
		labels:    make(map[string]int, len(entries)),
		extractor: NewExtractor(options),
	}

	for _, entry := range entries {
		if entry.Label == "" {
			return nil, fmt.Errorf("%w: empty label for %q", ErrConfiguration, entry.Path)
		}
		if position, ok := index.labels[entry.Label]; ok {
			return nil, fmt.Errorf("%w: %w: %q (%s and %s)", ErrConfiguration, ErrDuplicateLabel,
				entry.Label, index.entries[position].Path, entry.Path)
		}
		entry.KeypointCount = len(entry.Descriptors)
		index.labels[entry.Label] = len(index.entries)
		index.entries = append(index.entries, entry)
	}

	return index, nil
}

// BuildIndex reads every image file of the directory, extracts its features
// and indexes it under a label derived from its file name. Files are
// processed in name order.
//
// Files that cannot be decoded or have no keypoints are skipped and listed in
// the report. The build fails with an error wrapping ErrConfiguration if the
// directory cannot be read, if two files map to the same label, or if no file
// could be indexed. The report is returned in all cases but a read error.
func BuildIndex(ctx context.Context, dir string, options Options) (*Index, *BuildReport, error) {
	options.applyDefaults()
	logger := options.Logger

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrReferenceDir, err)
	}

	report := &BuildReport{Dir: dir}

	// Collect candidates and reject label collisions before doing any work.
	type candidate struct {
		label string
		path  string
	}
	var candidates []candidate
	seen := make(map[string]string)
	for _, file := range files {
		if file.IsDir() || !IsImageFile(file.Name()) {
			continue
		}
		path := filepath.Join(dir, file.Name())
		label := LabelFromFilename(file.Name())
		if label == "" {
			report.Skipped = append(report.Skipped, Skip{Path: path, Reason: SkipEmptyLabel})
			continue
		}
		if previous, ok := seen[label]; ok {
			return nil, report, fmt.Errorf("%w: %w: %q (%s and %s)", ErrConfiguration, ErrDuplicateLabel,
				label, previous, path)
		}
		seen[label] = path
		candidates = append(candidates, candidate{label: label, path: path})
	}

	// Extract in parallel. Every file gets its own outcome slot so that the
	// registration below follows the name order.
	type outcome struct {
		entry *ReferenceEntry
		skip  *Skip
	}
	outcomes := make([]outcome, len(candidates))
	extractor := NewExtractor(options)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(options.Workers)
	for position, c := range candidates {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			img, err := DecodeFile(c.path)
			if err != nil {
				outcomes[position].skip = &Skip{Path: c.path, Reason: SkipDecode, Err: err}
				return nil
			}

			features := extractor.Extract(img)
			if len(features) == 0 {
				outcomes[position].skip = &Skip{Path: c.path, Reason: SkipNoKeypoints}
				return nil
			}

			entry := NewReferenceEntry(c.label, c.path, features)
			outcomes[position].entry = &entry
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, report, fmt.Errorf("build index: %w", err)
	}

	var entries []ReferenceEntry
	for _, o := range outcomes {
		if o.skip != nil {
			logger.Warn("skipping reference image", "path", o.skip.Path, "reason", o.skip.Reason, "error", o.skip.Err)
			report.Skipped = append(report.Skipped, *o.skip)
			continue
		}
		logger.Debug("indexed reference image", "label", o.entry.Label, "keypoints", o.entry.KeypointCount)
		report.Indexed = append(report.Indexed, o.entry.Label)
		entries = append(entries, *o.entry)
	}

	if len(entries) == 0 {
		return nil, report, fmt.Errorf("%w: %w in %s", ErrConfiguration, ErrEmptyIndex, dir)
	}

	index, err := NewIndex(options, entries...)
	if err != nil {
		return nil, report, err
	}
	logger.Info("reference index built", "dir", dir, "references", index.Len(), "skipped", len(report.Skipped))

	return index, report, nil
}

// Len returns the number of references in the index.
func (index *Index) Len() int {
	return len(index.entries)
}

// Labels returns the labels of the index, in insertion order.
func (index *Index) Labels() []string {
	labels := make([]string, len(index.entries))
	for position := range index.entries {
		labels[position] = index.entries[position].Label
	}
	return labels
}

// Contains reports whether the label is indexed.
func (index *Index) Contains(label string) bool {
	_, ok := index.labels[label]
	return ok
}

// Entry returns the entry for the label. The descriptor slice is shared with
// the index and must not be modified.
func (index *Index) Entry(label string) (ReferenceEntry, bool) {
	position, ok := index.labels[label]
	if !ok {
		return ReferenceEntry{}, false
	}
	return index.entries[position], true
}

// Extractor returns the extractor queries must be described with.
func (index *Index) Extractor() *Extractor {
	return index.extractor
}

// SortedSkips returns the skipped files ordered by path.
func (report *BuildReport) SortedSkips() []Skip {
	skips := append([]Skip(nil), report.Skipped...)
	sort.Slice(skips, func(i, j int) bool { return skips[i].Path < skips[j].Path })
	return skips
}
