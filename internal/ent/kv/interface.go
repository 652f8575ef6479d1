package kv

// KeyVal is a key-value store.
type KeyVal interface {
	// Open opens a key-value store.
	Open() error

	// Close closes a key-value store.
	Close() error

	// GetValue returns a value of the key, or nil if the key is absent.
	GetValue(key []byte) ([]byte, error)

	// SetValue saves a value under the key.
	SetValue(key, val []byte) error
}
