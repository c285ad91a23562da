// Package artifact stores transformed artifacts keyed by request identity
// and decides, via the Validator, whether a stored artifact may be served
// again without re-running the pipeline.
package artifact

import (
	"context"
	"errors"
	"time"

	"unchained/internal/cache/memory"
)

var ErrNotFound = errors.New("artifact: not found")

// Entry is one cached artifact together with the upstream change token it
// was produced from. Entries are written whole or not at all.
type Entry struct {
	Key     string            `json:"key"`
	ETag    string            `json:"etag"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	out := &Entry{Key: e.Key, ETag: e.ETag, Body: append([]byte(nil), e.Body...)}
	if e.Headers != nil {
		out.Headers = make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// Store is the artifact persistence contract. Put replaces any previous
// entry for the key atomically.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, entry *Entry) error
}

// MemoryStore keeps artifacts in the in-process LRU+TTL cache.
type MemoryStore struct {
	cache *memory.LRUTTL[string, *Entry]
}

type MemoryConfig struct {
	MaxEntries int
	MaxBytes   int
	TTL        time.Duration
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		MaxEntries: 1024,
		MaxBytes:   64 * 1024 * 1024, // 64MiB
		TTL:        10 * time.Minute,
	}
}

func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	def := DefaultMemoryConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	return &MemoryStore{cache: memory.New[string, *Entry](cfg.MaxEntries, cfg.MaxBytes, cfg.TTL)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return entry.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, entry *Entry) error {
	if s == nil || entry == nil {
		return nil
	}
	copied := entry.clone()
	copied.Key = key
	s.cache.Set(key, copied, len(copied.Body))
	return nil
}
