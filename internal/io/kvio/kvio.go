package kvio

import (
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v2"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/gnsys"
)

var errClosed = errors.New("key-value store is not open")

type kvio struct {
	dir string
	kv  *badger.DB
}

// New returns a key-value store kept in the directory. Existing data in
// the directory is preserved.
func New(dir string) (kv.KeyVal, error) {
	res := kvio{
		dir: dir,
	}

	err := gnsys.MakeDir(dir)
	if err != nil {
		slog.Error("Cannot create directory", "error", err, "dir", dir)
		return nil, err
	}

	return &res, nil
}

// Open opens a key-value store.
func (k *kvio) Open() error {
	if k.kv != nil {
		slog.Warn("Key-value store is already open", "dir", k.dir)
		return nil
	}
	options := badger.DefaultOptions(k.dir)
	options.Logger = nil

	bdb, err := badger.Open(options)
	if err != nil {
		slog.Error("Cannot open key-value store", "dir", k.dir, "error", err)
		return err
	}
	k.kv = bdb
	return nil
}

// Close closes a key-value store.
func (k *kvio) Close() error {
	if k.kv == nil {
		return nil
	}
	err := k.kv.Close()
	k.kv = nil
	return err
}

// GetValue returns a value for a given key.
func (k *kvio) GetValue(key []byte) ([]byte, error) {
	if k.kv == nil {
		return nil, errClosed
	}
	var res []byte
	err := k.kv.View(func(txn *badger.Txn) error {
		val, err := txn.Get(key)
		if err != nil {
			return err
		}
		res, err = val.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		slog.Debug("Cannot find key", "key", string(key))
		return nil, nil
	}
	return res, err
}

// SetValue saves a value for a given key.
func (k *kvio) SetValue(key, val []byte) error {
	if k.kv == nil {
		return errClosed
	}
	return k.kv.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}
