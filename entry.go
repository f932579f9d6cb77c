package orbmatch

// ReferenceEntry represents one indexed reference image or, rather, a
// candidate to be selected as the winner of a query.
type ReferenceEntry struct {
	// Label is the unique name of the reference, derived from its file name.
	Label string

	// Path is the file the entry was built from. Empty for in-memory entries.
	Path string

	// Descriptors holds the binary descriptors of the reference keypoints.
	Descriptors []Descriptor

	// KeypointCount is the number of keypoints, always len(Descriptors).
	KeypointCount int
}

// NewReferenceEntry returns an entry for the label and the extracted features.
func NewReferenceEntry(label, path string, features FeatureSet) ReferenceEntry {
	descriptors := features.Descriptors()
	return ReferenceEntry{
		Label:         label,
		Path:          path,
		Descriptors:   descriptors,
		KeypointCount: len(descriptors),
	}
}
