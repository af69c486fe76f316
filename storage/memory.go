package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/dialogmesh/core"
)

// ErrPreconditionFailed is returned when a write carries a stale eTag.
var ErrPreconditionFailed = errors.New("storage: etag conflict")

// MemoryStorage is a volatile Storage implementation keeping JSON encoded
// documents in a process local map. It is safe for concurrent access and best
// suited for tests or ephemeral demo bots. Every Read decodes a fresh copy so
// callers never share state with the store.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	etag string
	data []byte
}

// NewMemoryStorage constructs an empty in‑memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]memoryItem)}
}

// Read returns decoded copies of the stored documents for keys that exist.
func (s *MemoryStorage) Read(ctx context.Context, keys ...string) (map[string]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]core.Document, len(keys))
	for _, key := range keys {
		item, ok := s.items[key]
		if !ok {
			continue
		}
		doc, err := decodeDocument(item.data, item.etag)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		result[key] = doc
	}

	return result, nil
}

// Write stores the provided documents, checking eTags first. Either all
// documents are written or none.
func (s *MemoryStorage) Write(ctx context.Context, changes map[string]core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string][]byte, len(changes))
	for key, doc := range changes {
		var current string
		if item, ok := s.items[key]; ok {
			current = item.etag
		}
		if err := checkETag(key, doc, current); err != nil {
			return err
		}
		data, err := encodeDocument(doc)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		staged[key] = data
	}

	for key, data := range staged {
		s.items[key] = memoryItem{etag: core.NewID(), data: data}
	}

	return nil
}

// Delete removes the given keys. Unknown keys are ignored.
func (s *MemoryStorage) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.items, key)
	}

	return nil
}

// checkETag enforces optimistic concurrency. An empty or wildcard eTag always
// passes; otherwise it must equal the currently stored tag. A document that
// has never been stored only accepts an empty or wildcard tag.
func checkETag(key string, doc core.Document, current string) error {
	raw, ok := doc[core.ETagKey]
	if !ok {
		return nil
	}
	tag, _ := raw.(string)
	if tag == "" || tag == core.ETagAny || tag == current {
		return nil
	}
	return fmt.Errorf("%w: key %s", ErrPreconditionFailed, key)
}

// encodeDocument serialises doc without its eTag.
func encodeDocument(doc core.Document) ([]byte, error) {
	plain := make(core.Document, len(doc))
	for k, v := range doc {
		if k == core.ETagKey {
			continue
		}
		plain[k] = v
	}
	return json.Marshal(plain)
}

func decodeDocument(data []byte, etag string) (core.Document, error) {
	doc := core.Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc[core.ETagKey] = etag
	return doc, nil
}
