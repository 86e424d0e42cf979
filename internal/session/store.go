package session

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed — операция над закрытым хранилищем.
var ErrStoreClosed = errors.New("session store closed")

// Store — минимальный контракт key-value хранилища сессии (аналог localStorage).
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks github.com/pribylovaa/go-quiz-client/internal/session Store
type Store interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put сохраняет значение целиком, перезаписывая прежнее.
	Put(ctx context.Context, key string, value []byte) error
	// Delete удаляет ключ; удаление отсутствующего ключа не является ошибкой.
	Delete(ctx context.Context, key string) error
	// Close освобождает ресурсы хранилища.
	Close() error
}

// MemoryStore — хранилище в памяти процесса. Используется в тестах и
// при session.backend=memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrStoreClosed
	}

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}
