package repo

import (
	"fmt"
	"sort"
	"sync"
)

// Memory implements Repository with a map. Used for tests.
type Memory[T any] struct {
	mu    sync.Mutex
	key   KeyFunc[T]
	items map[string]T

	// FailSave, when set, is returned by SaveAll and Save.
	FailSave error
}

func NewMemory[T any](key KeyFunc[T]) *Memory[T] {
	return &Memory[T]{key: key, items: make(map[string]T)}
}

func (m *Memory[T]) LoadAll() ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.items[k])
	}
	return out, nil
}

func (m *Memory[T]) SaveAll(items []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	next := make(map[string]T, len(items))
	for _, it := range items {
		next[m.key(it)] = it
	}
	m.items = next
	return nil
}

func (m *Memory[T]) Load(key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func (m *Memory[T]) Save(item T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.items[m.key(item)] = item
	return nil
}

func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// MemoryQueue implements Queue in memory.
type MemoryQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *MemoryQueue[T]) LoadAll() ([]T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]T(nil), q.items...), nil
}

func (q *MemoryQueue[T]) SaveAll(items []T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]T(nil), items...)
	return nil
}

// MemoryPartitions implements Partitioned in memory.
type MemoryPartitions[T any] struct {
	mu    sync.Mutex
	key   KeyFunc[T]
	parts map[string]*Memory[T]
}

func NewMemoryPartitions[T any](key KeyFunc[T]) *MemoryPartitions[T] {
	return &MemoryPartitions[T]{key: key, parts: make(map[string]*Memory[T])}
}

func (p *MemoryPartitions[T]) Partitions() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.parts))
	for name := range p.parts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (p *MemoryPartitions[T]) Partition(name string) Repository[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.parts[name]
	if !ok {
		m = NewMemory(p.key)
		p.parts[name] = m
	}
	return m
}
