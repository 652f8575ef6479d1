package locate

// Resolver is the interface that wraps the Resolve method.
type Resolver interface {
	// Resolve returns an ID of a location with the given name, creating the
	// location with region and ISO code if it does not exist yet. Blank
	// region or ISO code are stored as NULL.
	Resolve(name, region, isoCode string) (uint, error)
}
