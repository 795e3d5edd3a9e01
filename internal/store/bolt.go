package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketCodes = []byte("codes")
	bucketPanel = []byte("panel")
	keyCodeList = []byte("list")
)

// BoltStore implements Store using BoltDB. The code list is kept as a
// single insertion-ordered JSON sequence so that deletion-by-position is
// well defined; reads always unmarshal a fresh copy, so a snapshot handed
// to a validator is never affected by a concurrent write.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketCodes, bucketPanel} {
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

func (s *BoltStore) ListCodes() ([]AccessCode, error) {
	var codes []AccessCode
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCodes)
		}
		data := b.Get(keyCodeList)
		if data == nil {
			return nil // no codes configured yet
		}
		return json.Unmarshal(data, &codes)
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *BoltStore) AppendCode(c AccessCode) error {
	return s.updateCodes(func(codes []AccessCode) ([]AccessCode, error) {
		return append(codes, c), nil
	})
}

func (s *BoltStore) RemoveCode(index int) error {
	return s.updateCodes(func(codes []AccessCode) ([]AccessCode, error) {
		if index < 0 || index >= len(codes) {
			return nil, fmt.Errorf("code index %d: %w", index, ErrNotFound)
		}
		return append(codes[:index], codes[index+1:]...), nil
	})
}

// updateCodes applies fn to the stored sequence inside a single transaction.
func (s *BoltStore) updateCodes(fn func([]AccessCode) ([]AccessCode, error)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCodes)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCodes)
		}
		var codes []AccessCode
		if data := b.Get(keyCodeList); data != nil {
			if err := json.Unmarshal(data, &codes); err != nil {
				return err
			}
		}
		codes, err := fn(codes)
		if err != nil {
			return err
		}
		data, err := json.Marshal(codes)
		if err != nil {
			return err
		}
		return b.Put(keyCodeList, data)
	})
}

func (s *BoltStore) GetPanelAction(deviceID string) (string, error) {
	var action string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPanel)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketPanel)
		}
		data := b.Get([]byte(deviceID))
		if data == nil {
			return fmt.Errorf("panel state %s: %w", deviceID, ErrNotFound)
		}
		action = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

func (s *BoltStore) SavePanelAction(deviceID, action string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPanel)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketPanel)
		}
		return b.Put([]byte(deviceID), []byte(action))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
