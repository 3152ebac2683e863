// Package localstore emulates a minimal document-database API (collections,
// documents, chained where filters) over an in-process map, optionally
// persisted to a JSON blob. It is the last resort in the backend fallback
// chain and the persistence substrate of the local testing mode.
package localstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// A record is its field mapping plus its own "id" field, matching the
// persisted blob layout: collection name -> ordered record sequence.
type record = map[string]any

type Store struct {
	mu          sync.RWMutex
	path        string
	collections map[string][]record
}

// Open loads the store from the blob at path, or starts empty if the file
// does not exist yet. An empty path keeps the store purely in memory.
// A blob that exists but cannot be decoded is a hard error: silently
// starting empty would drop every locally persisted record.
func Open(path string) (*Store, error) {
	s := &Store{
		path:        path,
		collections: map[string][]record{},
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "localstore.read_blob")
	}

	err = json.Unmarshal(raw, &s.collections)
	if err != nil {
		return nil, errors.Wrap(err, "localstore.decode_blob")
	}
	return s, nil
}

// Collection returns a handle bound to the named partition of the store.
// The partition is created lazily on first write.
func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

// persist writes the whole blob, called with s.mu held.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	raw, err := json.Marshal(s.collections)
	if err != nil {
		return errors.Wrap(err, "localstore.encode_blob")
	}

	tmp := s.path + ".tmp"
	err = os.WriteFile(tmp, raw, 0o644)
	if err == nil {
		err = os.Rename(tmp, s.path)
	}
	if err != nil {
		return errors.Wrap(err, "localstore.write_blob")
	}
	return nil
}

// Path returns the blob location, empty for in-memory stores.
func (s *Store) Path() string {
	if s.path == "" {
		return ""
	}
	return filepath.Clean(s.path)
}
