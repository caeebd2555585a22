// Package store persists named collections of records. Each collection is a
// JSON array stored whole under one key; the store knows nothing about the
// relationships between collections.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	KeyFolders         = "regression_folders"
	KeyScripts         = "regression_scripts"
	KeyProjects        = "regression_projects"
	KeyImportedScripts = "regression_imported_scripts"
	KeyIssues          = "regression_issues"
	KeyEvents          = "regression_events"
)

// Keys lists every collection the application owns, in dependency order.
var Keys = []string{KeyFolders, KeyScripts, KeyProjects, KeyImportedScripts, KeyIssues, KeyEvents}

// ErrKeyNotFound is returned by a Backend when nothing is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// Backend is raw byte storage addressed by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

type Store struct {
	backend Backend
	log     *zap.Logger
	mu      sync.Mutex
}

func New(b Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: b, log: log.Named("store")}
}

func (s *Store) Backend() Backend { return s.backend }

func (s *Store) Close() error { return s.backend.Close() }

// List returns the collection under key. A missing key or unreadable content
// yields an empty collection; only backend failures are errors.
func List[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load[T](ctx, s, key)
}

// Replace overwrites the whole collection under key.
func Replace[T any](ctx context.Context, s *Store, key string, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s, key, items)
}

// Update runs one read-modify-write of the collection under key. fn reports
// whether it changed anything; nothing is written when it did not.
func Update[T any](ctx context.Context, s *Store, key string, fn func([]T) ([]T, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := load[T](ctx, s, key)
	if err != nil {
		return err
	}
	next, changed := fn(items)
	if !changed {
		return nil
	}
	return save(ctx, s, key, next)
}

func load[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	data, err := s.backend.Load(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("unreadable collection, treating as empty", zap.String("key", key), zap.Error(err))
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.backend.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	s.log.Debug("collection saved", zap.String("key", key), zap.Int("records", len(items)))
	return nil
}
