package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "session"

// BoltStore — файловое хранилище сессии на bbolt. Переживает перезапуск CLI.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt открывает (или создаёт) файл базы и bucket "session".
// Файл создаётся с правами 0600; ожидание файловой блокировки ограничено 1s.
func OpenBolt(path string) (*BoltStore, error) {
	const op = "session.OpenBolt"

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: create bucket: %w", op, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	const op = "session.BoltStore.Get"

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return nil
		}
		// Значение валидно только внутри транзакции — копируем.
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return out, out != nil, nil
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	const op = "session.BoltStore.Put"

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	const op = "session.BoltStore.Delete"

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *BoltStore) Close() error { return s.db.Close() }
