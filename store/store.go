// Package store keeps external displacement layers in a BadgerDB database.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v3"
	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNotFound = errors.New("store: layer not found")
	ErrClosed   = errors.New("store: closed")
)

const keyPrefix = "mdx:"

// Store is a multires.ExternalSource backed by badger. Values are .mdx
// encoded; keys are the xxhash64 of the layer name.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

var _ multires.ExternalSource = (*Store)(nil)

// Open opens the database in dir. An empty dir gives an in-memory store.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func key(name string) []byte {
	k := make([]byte, len(keyPrefix), len(keyPrefix)+8)
	copy(k, keyPrefix)
	return binary.BigEndian.AppendUint64(k, xxhash.Sum64String(name))
}

func (s *Store) ReadDisplacements(name string) ([][]r3.Vec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	var disps [][]r3.Vec
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			disps, err = mres.UnmarshalMDX(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %q: %w", name, err)
	}
	return disps, nil
}

func (s *Store) WriteDisplacements(name string, disps [][]r3.Vec) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	data := mres.MarshalMDX(disps)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), data)
	})
	if err != nil {
		return fmt.Errorf("store: write %q: %w", name, err)
	}
	return nil
}

// Delete removes the layer stored under name. Missing layers are not an error.
func (s *Store) Delete(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
}

// Count returns the number of stored layers.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
