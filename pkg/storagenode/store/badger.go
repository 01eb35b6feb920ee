package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Key prefixes inside the Badger keyspace. Blobs and directory markers
// live side by side so List can merge both.
const (
	badgerBlobPrefix = "b/"
	badgerDirPrefix  = "d/"
)

// Badger keeps all blobs in a single embedded BadgerDB database.
// Directories have no physical existence, so MkDir writes an explicit
// marker key and List derives children from key prefixes.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) a Badger backend at dir.
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (s *Badger) Load(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerBlobPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Badger) Save(key string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerBlobPrefix+key), data)
	})
}

func (s *Badger) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerBlobPrefix + key))
	})
}

func (s *Badger) Exists(key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(badgerBlobPrefix + key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Badger) Rename(oldKey, newKey string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerBlobPrefix + oldKey))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(badgerBlobPrefix+newKey), data); err != nil {
			return err
		}
		return txn.Delete([]byte(badgerBlobPrefix + oldKey))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Badger) List(dir string) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range []string{badgerBlobPrefix + dir + "/", badgerDirPrefix + dir + "/"} {
			p := []byte(prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				rest := string(it.Item().Key())[len(prefix):]
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				seen[rest] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(seen) == 0 {
		exists, err := s.DirExists(dir)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, nil
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Badger) MkDir(dir string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerDirPrefix+dir), nil)
	})
}

func (s *Badger) DirExists(dir string) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(badgerDirPrefix + dir)); err == nil {
			exists = true
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// A directory also exists implicitly once something lives in it.
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(badgerBlobPrefix + dir + "/")
		it.Seek(p)
		exists = it.ValidForPrefix(p)
		return nil
	})
	return exists, err
}

func (s *Badger) Close() error {
	return s.db.Close()
}
