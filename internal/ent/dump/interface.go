package dump

// Dumper is the interface that wraps the Dump method.
type Dumper interface {
	// Dump writes the content of the database to CSV files, one file per
	// table. Daily stats are written with epidemic and location names.
	Dump() error
}
