// Package sqliterepo implements the repo interfaces on a single SQLite table.
package sqliterepo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"hecstore.ai/internal/repo"
)

// DB owns the connection shared by every namespace.
type DB struct {
	db  *sql.DB
	log *log.Logger
}

func Open(path string, logger *log.Logger) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, log: logger}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS entities (
		ns TEXT NOT NULL,
		key TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (ns, key)
	);`)
	return err
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Repo stores one entity per row of namespace ns.
type Repo[T any] struct {
	d   *DB
	ns  string
	key repo.KeyFunc[T]
}

func NewRepo[T any](d *DB, ns string, key repo.KeyFunc[T]) *Repo[T] {
	return &Repo[T]{d: d, ns: ns, key: key}
}

func (r *Repo[T]) LoadAll() ([]T, error) {
	rows, err := r.d.db.Query(`SELECT key, body FROM entities WHERE ns = ? ORDER BY key`, r.ns)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.ns, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var k, body string
		if err := rows.Scan(&k, &body); err != nil {
			return nil, fmt.Errorf("load %s: %w", r.ns, err)
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			r.d.log.Printf("load %s: skip %s: %v", r.ns, k, err)
			continue
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo[T]) SaveAll(items []T) error {
	tx, err := r.d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var invalid []error
	keys := make([]any, 0, len(items)+1)
	keys = append(keys, r.ns)
	for _, it := range items {
		k := r.key(it)
		if err := repo.ValidKey(k); err != nil {
			invalid = append(invalid, err)
			continue
		}
		if err := upsert(tx, r.ns, k, it); err != nil {
			return err
		}
		keys = append(keys, k)
	}

	del := `DELETE FROM entities WHERE ns = ?`
	if len(keys) > 1 {
		del += ` AND key NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keys)-1), ",") + `)`
	}
	if _, err := tx.Exec(del, keys...); err != nil {
		return fmt.Errorf("save %s: %w", r.ns, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return errors.Join(invalid...)
}

func (r *Repo[T]) Load(key string) (T, error) {
	var zero T
	if err := repo.ValidKey(key); err != nil {
		return zero, err
	}
	var body string
	err := r.d.db.QueryRow(`SELECT body FROM entities WHERE ns = ? AND key = ?`, r.ns, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s/%s: %w", r.ns, key, repo.ErrNotFound)
	}
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return zero, fmt.Errorf("%s/%s: decode: %w", r.ns, key, err)
	}
	return v, nil
}

func (r *Repo[T]) Save(item T) error {
	return upsert(r.d.db, r.ns, r.key(item), item)
}

const upsertSQL = `INSERT INTO entities(ns, key, body) VALUES(?, ?, ?)
	ON CONFLICT(ns, key) DO UPDATE SET body = excluded.body`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsert(x execer, ns, key string, item any) error {
	if err := repo.ValidKey(key); err != nil {
		return err
	}
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ns, key, err)
	}
	if _, err := x.Exec(upsertSQL, ns, key, string(b)); err != nil {
		return fmt.Errorf("save %s/%s: %w", ns, key, err)
	}
	return nil
}

// Queue keeps a whole ordered collection in one row.
type Queue[T any] struct {
	d  *DB
	ns string
}

const queueKey = "all"

func NewQueue[T any](d *DB, ns string) *Queue[T] {
	return &Queue[T]{d: d, ns: ns}
}

func (q *Queue[T]) LoadAll() ([]T, error) {
	var body string
	err := q.d.db.QueryRow(`SELECT body FROM entities WHERE ns = ? AND key = ?`, q.ns, queueKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", q.ns, err)
	}
	var items []T
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		q.d.log.Printf("load %s: %v; starting with an empty queue", q.ns, err)
		return nil, nil
	}
	return items, nil
}

func (q *Queue[T]) SaveAll(items []T) error {
	if items == nil {
		items = []T{}
	}
	return upsert(q.d.db, q.ns, queueKey, items)
}

// Partitioned maps partition p to namespace "<prefix>/<p>".
type Partitioned[T any] struct {
	d      *DB
	prefix string
	key    repo.KeyFunc[T]
}

func NewPartitioned[T any](d *DB, prefix string, key repo.KeyFunc[T]) *Partitioned[T] {
	return &Partitioned[T]{d: d, prefix: prefix, key: key}
}

func (p *Partitioned[T]) Partitions() ([]string, error) {
	rows, err := p.d.db.Query(`SELECT DISTINCT ns FROM entities WHERE ns LIKE ? ORDER BY ns`, p.prefix+"/%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimPrefix(ns, p.prefix+"/"))
	}
	return out, rows.Err()
}

func (p *Partitioned[T]) Partition(name string) repo.Repository[T] {
	return NewRepo(p.d, p.prefix+"/"+name, p.key)
}
