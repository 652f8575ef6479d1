package catalog

// Catalog keeps epidemics and data sources the pipeline writes into.
type Catalog interface {
	// EpidemicID returns the ID of an epidemic with the given name, creating
	// the epidemic if needed.
	EpidemicID(name string) (uint, error)

	// SourceID returns the ID of a data source of the given type, creating
	// it with the reference and URL if needed.
	SourceID(sourceType, ref, url string) (uint, error)

	// Reset deletes daily stats an epidemic received from a source.
	Reset(epidemicID, sourceID uint) (int64, error)
}
