// Package repo persists keyed entity collections.
//
// A Repository mirrors one in-memory collection. SaveAll is a full replace: after
// it returns, the backing namespace holds exactly the saved entities.
package repo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when the key is absent.
var ErrNotFound = errors.New("not found")

// KeyFunc returns the stable storage key of an entity.
type KeyFunc[T any] func(T) string

type Repository[T any] interface {
	// LoadAll returns every entity that could be decoded. A missing namespace is empty.
	LoadAll() ([]T, error)
	// SaveAll writes every entity and removes the ones not in items.
	SaveAll(items []T) error
	Load(key string) (T, error)
	Save(item T) error
}

// Queue persists an ordered collection as a single aggregate.
type Queue[T any] interface {
	LoadAll() ([]T, error)
	SaveAll(items []T) error
}

// Partitioned groups repositories under named partitions (e.g. one per storage node).
type Partitioned[T any] interface {
	Partitions() ([]string, error)
	Partition(name string) Repository[T]
}

// ValidKey rejects keys that cannot be used as a single file name.
func ValidKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("empty key")
	case key == "." || key == "..":
		return fmt.Errorf("invalid key %q", key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
