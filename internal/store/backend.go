package store

import (
	"fmt"
	"io"
	"log"
	"path/filepath"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/repo"
	"hecstore.ai/internal/repo/sqliterepo"
)

// Backend names accepted by OpenRepos.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// FileRepos lays the collections out under dir: pairs/, users/, trades/, orders.json and
// storage/<node>/.
func FileRepos(dir string, logger *log.Logger) Repos {
	return Repos{
		Users:   repo.NewFiles(filepath.Join(dir, "users"), model.UserKey, logger),
		Pairs:   repo.NewFiles(filepath.Join(dir, "pairs"), model.PairKey, logger),
		Trades:  repo.NewFiles(filepath.Join(dir, "trades"), model.TradeKey, logger),
		Orders:  repo.NewFileQueue[model.Order](filepath.Join(dir, "orders.json"), logger),
		Storage: repo.NewFilePartitions(filepath.Join(dir, "storage"), model.ChestKey, logger),
	}
}

// SQLiteRepos stores every collection in db, one namespace per collection.
func SQLiteRepos(db *sqliterepo.DB) Repos {
	return Repos{
		Users:   sqliterepo.NewRepo(db, "users", model.UserKey),
		Pairs:   sqliterepo.NewRepo(db, "pairs", model.PairKey),
		Trades:  sqliterepo.NewRepo(db, "trades", model.TradeKey),
		Orders:  sqliterepo.NewQueue[model.Order](db, "orders"),
		Storage: sqliterepo.NewPartitioned(db, "storage", model.ChestKey),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenRepos opens the named backend rooted at dataDir. A relative sqlitePath is resolved
// against dataDir. The closer releases the backend.
func OpenRepos(backend, dataDir, sqlitePath string, logger *log.Logger) (Repos, io.Closer, error) {
	switch backend {
	case "", BackendFiles:
		return FileRepos(dataDir, logger), nopCloser{}, nil
	case BackendSQLite:
		if sqlitePath == "" {
			sqlitePath = "store.sqlite"
		}
		if !filepath.IsAbs(sqlitePath) {
			sqlitePath = filepath.Join(dataDir, sqlitePath)
		}
		db, err := sqliterepo.Open(sqlitePath, logger)
		if err != nil {
			return Repos{}, nil, err
		}
		return SQLiteRepos(db), db, nil
	default:
		return Repos{}, nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}
