package sqliterepo

import (
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/repo"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "store.sqlite"), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRepo_SaveAllReplacesNamespace(t *testing.T) {
	d := openTest(t)
	var r repo.Repository[model.User] = NewRepo(d, "users", model.UserKey)

	out, err := r.LoadAll()
	if err != nil || len(out) != 0 {
		t.Fatalf("empty: %d users err=%v", len(out), err)
	}
	in := []model.User{
		{UUID: "a", Username: "alice", Balance: decimal.NewFromInt(5)},
		{UUID: "b", Username: "bob", Balance: decimal.Zero},
		{UUID: "c", Username: "carol", Balance: decimal.RequireFromString("1.25")},
	}
	if err := r.SaveAll(in); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := r.SaveAll(in[:2]); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	out, err = r.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(out) != 2 || out[0].UUID != "a" || !out[0].Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected users: %+v", out)
	}
	if _, err := r.Load("c"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("Load(c) err=%v", err)
	}
	if err := r.SaveAll(nil); err != nil {
		t.Fatalf("SaveAll(nil): %v", err)
	}
	if out, _ := r.LoadAll(); len(out) != 0 {
		t.Fatalf("after empty save: %+v", out)
	}
}

func TestRepo_SaveAllBadKeyDoesNotBlockOthers(t *testing.T) {
	d := openTest(t)
	r := NewRepo(d, "pairs", model.PairKey)
	if err := r.SaveAll([]model.Pair{{Item: "stale"}}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := r.SaveAll([]model.Pair{{Item: "../up"}, {Item: "diamond", ItemStock: 64}}); err == nil {
		t.Fatalf("expected an error for the invalid key")
	}
	out, err := r.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(out) != 1 || out[0].Item != "diamond" || out[0].ItemStock != 64 {
		t.Fatalf("pairs=%+v", out)
	}
}

func TestRepo_NamespacesAreIsolated(t *testing.T) {
	d := openTest(t)
	pairs := NewRepo(d, "pairs", model.PairKey)
	other := NewRepo(d, "pairs-archive", model.PairKey)
	if err := other.Save(model.Pair{Item: "gold_ingot"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := pairs.SaveAll([]model.Pair{{Item: "diamond", ItemStock: 3}}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if _, err := other.Load("gold_ingot"); err != nil {
		t.Fatalf("other namespace lost its row: %v", err)
	}
	p, err := pairs.Load("diamond")
	if err != nil || p.ItemStock != 3 {
		t.Fatalf("Load: %+v err=%v", p, err)
	}
}

func TestQueueAndPartitions(t *testing.T) {
	d := openTest(t)
	q := NewQueue[model.Order](d, "orders")
	in := []model.Order{
		{Type: model.OrderSell, Item: "diamond", Amount: 2, UserUUID: "u"},
		{Type: model.OrderBuy, Item: "diamond", Amount: 1, UserUUID: "v"},
	}
	if err := q.SaveAll(in); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	out, err := q.LoadAll()
	if err != nil || len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("queue: %+v err=%v", out, err)
	}

	p := NewPartitioned(d, "storage", model.ChestKey)
	if err := p.Partition("0").SaveAll([]model.Chest{{Index: 0}, {Index: 3}}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := p.Partition("1").Save(model.Chest{NodeID: 1, Index: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	names, err := p.Partitions()
	if err != nil || len(names) != 2 || names[0] != "0" || names[1] != "1" {
		t.Fatalf("partitions=%v err=%v", names, err)
	}
	chests, err := p.Partition("0").LoadAll()
	if err != nil || len(chests) != 2 {
		t.Fatalf("chests: %+v err=%v", chests, err)
	}
}
