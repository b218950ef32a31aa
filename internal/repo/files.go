package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// Files stores one JSON file per entity in a flat directory.
type Files[T any] struct {
	dir string
	key KeyFunc[T]
	log *log.Logger
}

func NewFiles[T any](dir string, key KeyFunc[T], logger *log.Logger) *Files[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &Files[T]{dir: dir, key: key, log: logger}
}

func (r *Files[T]) Dir() string { return r.dir }

func (r *Files[T]) path(key string) string {
	return filepath.Join(r.dir, key+fileExt)
}

func (r *Files[T]) LoadAll() ([]T, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), fileExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]T, 0, len(names))
	for _, name := range names {
		p := filepath.Join(r.dir, name)
		v, err := readJSON[T](p)
		if err != nil {
			r.log.Printf("load %s: skip %s: %v", r.dir, name, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Files[T]) SaveAll(items []T) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	// A bad entity is reported but does not stop the others or the orphan sweep.
	var errs []error
	keep := make(map[string]bool, len(items))
	for _, it := range items {
		k := r.key(it)
		if err := ValidKey(k); err != nil {
			errs = append(errs, err)
			continue
		}
		keep[k+fileExt] = true
		if err := r.write(k, it); err != nil {
			errs = append(errs, err)
		}
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() {
			continue
		}
		stale := strings.HasPrefix(name, tmpPrefix)
		orphan := strings.HasSuffix(name, fileExt) && !keep[name]
		if !stale && !orphan {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Files[T]) Load(key string) (T, error) {
	var zero T
	if err := ValidKey(key); err != nil {
		return zero, err
	}
	v, err := readJSON[T](r.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%s/%s: %w", r.dir, key, ErrNotFound)
		}
		return zero, err
	}
	return v, nil
}

func (r *Files[T]) Save(item T) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	return r.write(r.key(item), item)
}

func (r *Files[T]) write(key string, item T) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	b, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return writeFileAtomic(r.path(key), b)
}

// FileQueue keeps a whole ordered collection in one JSON file.
type FileQueue[T any] struct {
	path string
	log  *log.Logger
}

func NewFileQueue[T any](path string, logger *log.Logger) *FileQueue[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &FileQueue[T]{path: path, log: logger}
}

func (q *FileQueue[T]) LoadAll() ([]T, error) {
	items, err := readJSON[[]T](q.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		// A corrupt queue file must not block startup.
		q.log.Printf("load %s: %v; starting with an empty queue", q.path, err)
		return nil, nil
	}
	return items, nil
}

func (q *FileQueue[T]) SaveAll(items []T) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.path, err)
	}
	return writeFileAtomic(q.path, b)
}

// FilePartitions maps each partition to a subdirectory of dir.
type FilePartitions[T any] struct {
	dir string
	key KeyFunc[T]
	log *log.Logger
}

func NewFilePartitions[T any](dir string, key KeyFunc[T], logger *log.Logger) *FilePartitions[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &FilePartitions[T]{dir: dir, key: key, log: logger}
}

func (p *FilePartitions[T]) Partitions() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (p *FilePartitions[T]) Partition(name string) Repository[T] {
	return NewFiles(filepath.Join(p.dir, name), p.key, p.log)
}

func readJSON[T any](path string) (T, error) {
	var v T
	b, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode: %w", err)
	}
	return v, nil
}
