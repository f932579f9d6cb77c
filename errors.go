package orbmatch

import "errors"

var (
	// ErrConfiguration is wrapped by every error that should keep a service
	// from starting: there is no index to serve queries from.
	ErrConfiguration = errors.New("configuration error")

	// index build errors
	ErrReferenceDir   = errors.New("reference directory not readable")
	ErrEmptyIndex     = errors.New("no valid reference images")
	ErrDuplicateLabel = errors.New("duplicate reference label")

	// snapshot errors
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)
