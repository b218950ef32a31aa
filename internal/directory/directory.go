// Package directory maps player names to stable account ids.
package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound means the directory answered and the name does not exist.
// Any other error is a lookup failure.
var ErrNotFound = errors.New("player not found")

type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Forgetter is implemented by resolvers that remember lookups. Forget drops the entry for a
// name that may now belong to someone else.
type Forgetter interface {
	Forget(ctx context.Context, name string) error
}

// Static resolves from a fixed map, case-insensitively.
type Static struct {
	mu  sync.RWMutex
	ids map[string]string
}

func NewStatic(ids map[string]string) *Static {
	s := &Static{ids: make(map[string]string, len(ids))}
	for name, id := range ids {
		s.ids[strings.ToLower(name)] = id
	}
	return s
}

func (s *Static) Set(name, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[strings.ToLower(name)] = id
}

func (s *Static) Resolve(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[strings.ToLower(name)]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, name string) (string, error)

func (f Func) Resolve(ctx context.Context, name string) (string, error) { return f(ctx, name) }
