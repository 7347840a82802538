// Package store persists item fingerprints in BadgerDB and enforces that a
// fingerprint belongs to at most one item.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"listpreload"
)

var ErrNotFound = errors.New("fingerprint not found")

// Options configures a Store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Store indexes fingerprints both ways: item id to fingerprint, and
// fingerprint to owning item id.
type Store struct {
	db *badger.DB
}

// Open opens or creates the fingerprint database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store: path is required unless in memory")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Entries are a few bytes each
	bopts = bopts.
		WithLogger(nil).
		WithMemTableSize(8 << 20).
		WithBlockCacheSize(8 << 20)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// ============================================================================
// Keys
// ============================================================================

var (
	prefixItem = []byte("i:") // i:<id> -> fingerprint
	prefixHash = []byte("h:") // h:<fingerprint> -> id
)

func keyItem(id string) []byte {
	return append(append([]byte{}, prefixItem...), id...)
}

func keyHash(fp int32) []byte {
	return append(append([]byte{}, prefixHash...), encodeFingerprint(fp)...)
}

func encodeFingerprint(fp int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(fp))
	return b
}

func decodeFingerprint(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("invalid fingerprint bytes: expected 4 bytes, got %d", len(b))
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ============================================================================
// Operations
// ============================================================================

// Record stores fp for id. If another id already owns fp, nothing is written
// and the error wraps listpreload.ErrDuplicateFingerprint. Recording a new
// fingerprint for an id replaces its old one.
func (s *Store) Record(id string, fp int32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHash(fp))
		switch {
		case err == nil:
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != id {
				return fmt.Errorf("%w: %d owned by %q", listpreload.ErrDuplicateFingerprint, fp, owner)
			}
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		// Drop the reverse entry of a previous fingerprint
		if old, err := txn.Get(keyItem(id)); err == nil {
			val, err := old.ValueCopy(nil)
			if err != nil {
				return err
			}
			prev, err := decodeFingerprint(val)
			if err != nil {
				return err
			}
			if err := txn.Delete(keyHash(prev)); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(keyItem(id), encodeFingerprint(fp)); err != nil {
			return err
		}
		return txn.Set(keyHash(fp), []byte(id))
	})
}

// Lookup returns the fingerprint recorded for id.
func (s *Store) Lookup(id string) (int32, error) {
	var fp int32
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyItem(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decErr error
			fp, decErr = decodeFingerprint(val)
			return decErr
		})
	})
	return fp, err
}

// Owner returns the id that owns fp.
func (s *Store) Owner(fp int32) (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHash(fp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		id = string(val)
		return err
	})
	return id, err
}

// Delete removes id and its fingerprint. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyItem(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		fp, err := decodeFingerprint(val)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyHash(fp)); err != nil {
			return err
		}
		return txn.Delete(keyItem(id))
	})
}

// Restore calls fn for every recorded (id, fingerprint) pair, in id order.
// Used at startup to mark already fingerprinted items done.
func (s *Store) Restore(fn func(id string, fp int32) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixItem

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefixItem); it.ValidForPrefix(prefixItem); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefixItem):])

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fp, err := decodeFingerprint(val)
			if err != nil {
				return fmt.Errorf("restore %q: %w", id, err)
			}
			if err := fn(id, fp); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
