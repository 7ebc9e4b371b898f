// Package testutil provides testing utilities for parquetry
package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// MemStore is an in-memory object store satisfying the pipeline's
// source and sink interfaces. Objects are addressed as "bucket/key".
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutErr, when set, fails every Put with that error.
	PutErr error
}

// NewMemStore creates a store preloaded with the given text objects.
func NewMemStore(objects map[string]string) *MemStore {
	s := &MemStore{objects: make(map[string][]byte, len(objects))}
	for path, body := range objects {
		s.objects[path] = []byte(body)
	}
	return s
}

// Open returns the object body as a stream.
func (s *MemStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return io.NopCloser(strings.NewReader(string(body))), nil
}

// Put stores a complete buffer.
func (s *MemStore) Put(_ context.Context, bucket, key string, data []byte) error {
	if s.PutErr != nil {
		return s.PutErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	return nil
}

// Get returns a stored object and whether it exists.
func (s *MemStore) Get(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	return data, ok
}
