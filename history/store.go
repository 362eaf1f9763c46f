// Package history keeps a local transcript of the public room in PebbleDB.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/stomp-chat/chat"
)

// maxPrealloc bounds the slice capacity Recent reserves up front.
const maxPrealloc = 256

// Store persists chat messages in a PebbleDB key-value store.
// Keys are 8-byte big-endian sequence numbers increasing monotonically.
// A nil *Store is valid and records nothing.
type Store struct {
	db   *pebble.DB
	mu   sync.Mutex
	next uint64
}

// Open opens (creating if needed) the store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	s := &Store{db: db}
	// Discover next sequence by reading the last key.
	it, err := db.NewIter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer func() { _ = it.Close() }()
	if it.Last() && len(it.Key()) >= 8 {
		s.next = binary.BigEndian.Uint64(it.Key()[:8]) + 1
	}
	return s, nil
}

func (s *Store) Append(m chat.Message) error {
	if s == nil || s.db == nil {
		return nil
	}
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, s.next)
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return err
	}
	s.next++
	return nil
}

// All returns every stored message, oldest first.
func (s *Store) All() ([]chat.Message, error) {
	return s.Recent(0)
}

// Recent returns the last limit messages, oldest first. limit <= 0 loads
// everything.
func (s *Store) Recent(limit int) ([]chat.Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	out := make([]chat.Message, 0, min(max(limit, 16), maxPrealloc))
	for valid := it.Last(); valid; valid = it.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var m chat.Message
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			log.Debug().Err(err).Msg("[history] skip undecodable record")
			continue
		}
		out = append(out, m)
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
