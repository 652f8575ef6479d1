package acquire

import "errors"

// ErrNotFound is returned when a dataset reference does not exist in the
// source.
var ErrNotFound = errors.New("dataset not found")

// Acquirer is the interface that wraps the Acquire method.
type Acquirer interface {
	// Acquire makes the data of a dataset reference available locally.
	Acquire(ref string) (Dataset, error)
}

// Dataset is an acquired dataset.
type Dataset struct {
	// Ref is the dataset reference, for example "owner/slug".
	Ref string

	// Dir is a local directory with extracted files of the dataset.
	Dir string

	// URL is a human-facing address of the dataset.
	URL string
}
