package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"apctl/internal/model"
)

var (
	bucketAttempts  = []byte("attempts")
	bucketSnapshots = []byte("snapshots")
)

// MaxAttempts bounds the connect history; older records are pruned.
const MaxAttempts = 500

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAttempts, bucketSnapshots} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// RecordAttempt appends a connect attempt under a monotonically increasing key.
func (s *BoltStore) RecordAttempt(a model.ConnectAttempt) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttempts)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketAttempts)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}
		// Keys are contiguous sequence numbers, so one delete keeps the window.
		if seq > MaxAttempts {
			return b.Delete(itob(seq - MaxAttempts))
		}
		return nil
	})
}

// ListAttempts returns up to limit attempts, newest first. limit <= 0 means all.
func (s *BoltStore) ListAttempts(limit int) ([]model.ConnectAttempt, error) {
	var attempts []model.ConnectAttempt
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttempts)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(attempts) >= limit {
				break
			}
			var a model.ConnectAttempt
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			attempts = append(attempts, a)
		}
		return nil
	})
	return attempts, err
}

// SaveSnapshot stores v as JSON under kind, replacing any earlier value.
func (s *BoltStore) SaveSnapshot(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSnapshots)
		}
		return b.Put([]byte(kind), data)
	})
}

// GetSnapshot decodes the snapshot stored under kind into out.
// It returns ErrNotFound when nothing was saved for kind.
func (s *BoltStore) GetSnapshot(kind string, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSnapshots)
		}
		data := b.Get([]byte(kind))
		if data == nil {
			return fmt.Errorf("snapshot %s: %w", kind, ErrNotFound)
		}
		return json.Unmarshal(data, out)
	})
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
