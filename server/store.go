package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dotgrid/render"
)

var (
	// ErrNotFound is returned by Get for unknown keys.
	ErrNotFound = errors.New("server: image not found")

	// ErrInvalidKey is returned for keys that are not plain file names.
	ErrInvalidKey = errors.New("server: invalid image key")
)

// Store keeps uploaded images by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// DirStore keeps every image as a file in Dir.
type DirStore struct {
	Dir string
}

func (d DirStore) Put(_ context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return render.WriteFile(d.Dir, key, data)
}

func (d DirStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read image %q: %w", key, err)
	}
	return data, nil
}

// MemStore keeps images in memory. The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func (m *MemStore) Put(_ context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.images == nil {
		m.images = make(map[string][]byte)
	}
	m.images[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.images[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return data, nil
}
