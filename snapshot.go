package orbmatch

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion = 1

// snapshotOptions are the options that shape descriptors and scores. Runtime
// options (workers, logger) are not part of a snapshot.
type snapshotOptions struct {
	Pattern       int64
	MaxFeatures   int
	Levels        int
	ScaleFactor   float64
	FastThreshold int
	MaxDimension  int
	Ratio         float64
	MaxDistance   int
}

// GobEncode places a binary, gzip compressed representation of the index in
// a byte slice.
func (index *Index) GobEncode() ([]byte, error) {
	buffer := new(bytes.Buffer)
	compressor := gzip.NewWriter(buffer)
	encoder := gob.NewEncoder(compressor)

	// Add a version number first.
	if err := encoder.Encode(snapshotVersion); err != nil {
		return nil, fmt.Errorf("encode snapshot version: %w", err)
	}

	options := index.extractor.options
	if err := encoder.Encode(snapshotOptions{
		Pattern:       patternSeed,
		MaxFeatures:   options.MaxFeatures,
		Levels:        options.Levels,
		ScaleFactor:   options.ScaleFactor,
		FastThreshold: options.FastThreshold,
		MaxDimension:  options.MaxDimension,
		Ratio:         options.Ratio,
		MaxDistance:   options.MaxDistance,
	}); err != nil {
		return nil, fmt.Errorf("encode snapshot options: %w", err)
	}

	// Entries are encoded one by one, in index order.
	if err := encoder.Encode(len(index.entries)); err != nil {
		return nil, fmt.Errorf("encode entry count: %w", err)
	}
	for _, entry := range index.entries {
		if err := encoder.Encode(entry.Label); err != nil {
			return nil, fmt.Errorf("encode entry label: %w", err)
		}
		if err := encoder.Encode(entry.Path); err != nil {
			return nil, fmt.Errorf("encode entry path: %w", err)
		}
		if err := encoder.Encode(entry.Descriptors); err != nil {
			return nil, fmt.Errorf("encode descriptors of %q: %w", entry.Label, err)
		}
	}

	// Finish up.
	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("close compressor: %w", err)
	}

	return buffer.Bytes(), nil
}

// GobDecode reconstructs the index from a binary representation. It is meant
// to be called on a fresh Index value only, before the index is shared.
func (index *Index) GobDecode(from []byte) error {
	decompressor, err := gzip.NewReader(bytes.NewReader(from))
	if err != nil {
		return fmt.Errorf("open decompressor: %w", err)
	}
	defer decompressor.Close()
	decoder := gob.NewDecoder(decompressor)

	// Do we have a version compatibility problem?
	var version int
	if err := decoder.Decode(&version); err != nil {
		return fmt.Errorf("decode snapshot version: %w", err)
	}
	if version < 1 || version > snapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, version)
	}

	var options snapshotOptions
	if err := decoder.Decode(&options); err != nil {
		return fmt.Errorf("decode snapshot options: %w", err)
	}
	if options.Pattern != patternSeed {
		return fmt.Errorf("%w: descriptor pattern %#x", ErrSnapshotVersion, options.Pattern)
	}

	var count int
	if err := decoder.Decode(&count); err != nil {
		return fmt.Errorf("decode entry count: %w", err)
	}
	if count < 0 {
		return fmt.Errorf("decode entry count: invalid count %d", count)
	}

	// Entries are appended as they decode so a corrupt count cannot force a
	// large allocation.
	var entries []ReferenceEntry
	for position := 0; position < count; position++ {
		var entry ReferenceEntry
		if err := decoder.Decode(&entry.Label); err != nil {
			return fmt.Errorf("decode entry label: %w", err)
		}
		if err := decoder.Decode(&entry.Path); err != nil {
			return fmt.Errorf("decode entry path: %w", err)
		}
		if err := decoder.Decode(&entry.Descriptors); err != nil {
			return fmt.Errorf("decode descriptors: %w", err)
		}
		if len(entry.Descriptors) == 0 {
			return fmt.Errorf("entry %q: %s", entry.Label, SkipNoKeypoints)
		}
		entries = append(entries, entry)
	}

	// Complete the index.
	decoded, err := NewIndex(Options{
		MaxFeatures:   options.MaxFeatures,
		Levels:        options.Levels,
		ScaleFactor:   options.ScaleFactor,
		FastThreshold: options.FastThreshold,
		MaxDimension:  options.MaxDimension,
		Ratio:         options.Ratio,
		MaxDistance:   options.MaxDistance,
	}, entries...)
	if err != nil {
		return err
	}
	*index = *decoded

	return nil
}

// WriteSnapshot stores the index in a file.
func WriteSnapshot(path string, index *Index) error {
	data, err := index.GobEncode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads an index stored with WriteSnapshot. Runtime options
// (workers, logger) are taken from the provided options. An empty snapshot is
// a configuration error, like an empty reference directory.
func ReadSnapshot(path string, runtime Options) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", ErrConfiguration, err)
	}

	index := new(Index)
	if err := index.GobDecode(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if index.Len() == 0 {
		return nil, fmt.Errorf("%w: %w in snapshot %s", ErrConfiguration, ErrEmptyIndex, path)
	}

	options := index.extractor.options
	options.Workers = runtime.Workers
	options.Logger = runtime.Logger
	index.extractor = NewExtractor(options)

	return index, nil
}
