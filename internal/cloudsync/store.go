package cloudsync

import (
	"context"
	"strconv"
	"sync"
)

// DocumentStore is the remote whole-document store.
type DocumentStore interface {
	// FindOrCreate returns the id of the document named name, creating an empty one if absent.
	FindOrCreate(ctx context.Context, name string) (string, error)
	// Write overwrites the whole document.
	Write(ctx context.Context, id string, blob []byte) error
	// Read returns the whole document, or ErrDocumentNotFound.
	Read(ctx context.Context, id string) ([]byte, error)
}

// MemoryStore is an in-process DocumentStore.
type MemoryStore struct {
	mu    sync.Mutex
	names map[string]string
	docs  map[string][]byte
	next  int

	// Finds counts FindOrCreate calls that reached the store.
	Finds int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{names: map[string]string{}, docs: map[string][]byte{}}
}

func (m *MemoryStore) FindOrCreate(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finds++
	if id, ok := m.names[name]; ok {
		return id, nil
	}
	m.next++
	id := "mem-" + strconv.Itoa(m.next)
	m.names[name] = id
	m.docs[id] = nil
	return id, nil
}

func (m *MemoryStore) Write(ctx context.Context, id string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	m.docs[id] = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Delete removes a document, as another workstation might.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	for name, v := range m.names {
		if v == id {
			delete(m.names, name)
		}
	}
}
