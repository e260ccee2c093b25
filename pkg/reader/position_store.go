package reader

import (
	"fmt"
	"strconv"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// bucketSessionPositions maps session file path -> byte offset,
// stored as a decimal string.
var bucketSessionPositions = []byte("session_positions")

// boltPositionStore persists read positions in BoltDB so watch runs
// survive restarts without re-reading whole session files.
type boltPositionStore struct {
	db *bolt.DB
	mu sync.RWMutex
}

// NewBoltPositionStore creates a position store backed by an open
// BoltDB database, creating its bucket if needed.
func NewBoltPositionStore(db *bolt.DB) (PositionStore, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketSessionPositions)
		return createErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create session positions bucket: %w", err)
	}

	return &boltPositionStore{db: db}, nil
}

// GetPosition implements PositionStore.GetPosition.
func (s *boltPositionStore) GetPosition(path string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var offset int64

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessionPositions).Get([]byte(path))
		if data == nil {
			// Unseen file, read from the beginning.
			return nil
		}

		parsed, parseErr := strconv.ParseInt(string(data), 10, 64)
		if parseErr != nil {
			return fmt.Errorf("corrupt position for %s: %w", path, parseErr)
		}

		offset = parsed
		return nil
	})
	if err != nil {
		return 0, err
	}

	return offset, nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *boltPositionStore) SetPosition(path string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionPositions)
		data := strconv.AppendInt(nil, offset, 10)

		if putErr := b.Put([]byte(path), data); putErr != nil {
			return fmt.Errorf("failed to store position for %s: %w", path, putErr)
		}

		return nil
	})
}

// memoryPositionStore keeps positions in a map. Used by tests.
type memoryPositionStore struct {
	positions map[string]int64
	mu        sync.RWMutex
}

// NewMemoryPositionStore creates a non-persistent position store.
func NewMemoryPositionStore() PositionStore {
	return &memoryPositionStore{
		positions: make(map[string]int64),
	}
}

// GetPosition implements PositionStore.GetPosition.
func (s *memoryPositionStore) GetPosition(path string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.positions[path], nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *memoryPositionStore) SetPosition(path string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[path] = offset
	return nil
}
