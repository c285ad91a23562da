// Package disk persists artifacts on disk so the HTTP-level cache survives
// process restarts. Entries are JSON files named by key hash; a JSON index
// tracks sizes and access times for LRU eviction. Index and entry writes go
// through a temp file + rename, so an entry is never partially visible.
package disk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"unchained/internal/cache/artifact"
)

type Config struct {
	Root       string
	MaxEntries int
	MaxBytes   int64
}

type indexEntry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	AccessedAt time.Time `json:"accessed_at"`
}

type index struct {
	Entries map[string]indexEntry `json:"entries"`
}

// Store implements artifact.Store on the local filesystem.
type Store struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64

	totalBytes int64
	entries    map[string]indexEntry
}

func NewStore(cfg Config) (*Store, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 4096
	}
	s := &Store{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		entries:    map[string]indexEntry{},
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	s.evictLocked()
	if err := s.persistIndexLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (*artifact.Entry, error) {
	if s == nil {
		return nil, artifact.ErrNotFound
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	raw, err := os.ReadFile(filepath.Join(s.dataDir, ent.File))
	if err != nil {
		if os.IsNotExist(err) {
			s.removeLocked(key, ent)
			_ = s.persistIndexLocked()
			return nil, artifact.ErrNotFound
		}
		return nil, err
	}
	var entry artifact.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A torn or corrupted file counts as absent; it will be rewritten.
		s.removeLocked(key, ent)
		_ = s.persistIndexLocked()
		return nil, artifact.ErrNotFound
	}
	ent.AccessedAt = time.Now()
	s.entries[key] = ent
	_ = s.persistIndexLocked()
	return &entry, nil
}

func (s *Store) Put(_ context.Context, key string, entry *artifact.Entry) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if entry == nil {
		return fmt.Errorf("entry is required")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	file := hashedName(key)
	path := filepath.Join(s.dataDir, file)

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	if old, ok := s.entries[key]; ok {
		s.totalBytes -= old.Size
	}
	s.entries[key] = indexEntry{File: file, Size: int64(len(raw)), AccessedAt: time.Now()}
	s.totalBytes += int64(len(raw))

	s.evictLocked()
	return s.persistIndexLocked()
}

func (s *Store) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		// A broken index means a cold cache, nothing worse.
		return nil
	}
	if idx.Entries != nil {
		s.entries = idx.Entries
	}
	for _, ent := range s.entries {
		s.totalBytes += ent.Size
	}
	return nil
}

func (s *Store) evictLocked() {
	for len(s.entries) > 0 && (len(s.entries) > s.maxEntries || (s.maxBytes > 0 && s.totalBytes > s.maxBytes)) {
		key, ent, ok := s.oldestLocked()
		if !ok {
			return
		}
		s.removeLocked(key, ent)
	}
}

func (s *Store) oldestLocked() (string, indexEntry, bool) {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return "", indexEntry{}, false
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.entries[keys[i]].AccessedAt, s.entries[keys[j]].AccessedAt
		if a.Equal(b) {
			return keys[i] < keys[j]
		}
		return a.Before(b)
	})
	return keys[0], s.entries[keys[0]], true
}

func (s *Store) removeLocked(key string, ent indexEntry) {
	delete(s.entries, key)
	s.totalBytes -= ent.Size
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
	_ = os.Remove(filepath.Join(s.dataDir, ent.File))
}

func (s *Store) persistIndexLocked() error {
	raw, err := json.MarshalIndent(index{Entries: s.entries}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.indexPath)
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".json"
}
