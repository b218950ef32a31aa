package store

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/directory"
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
)

var testIDs = map[string]string{
	"alice": "00000000-0000-0000-0000-00000000000a",
	"bob":   "00000000-0000-0000-0000-00000000000b",
	"carol": "00000000-0000-0000-0000-00000000000c",
	"dave":  "00000000-0000-0000-0000-00000000000d",
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// stepClock returns a clock advancing one millisecond per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func newTestStore(t *testing.T, repos Repos, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.Now == nil {
		opts.Now = stepClock()
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = time.Second
	}
	s, err := New(directory.NewStatic(testIDs), repos, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func seedUser(t *testing.T, repos Repos, name string, balance int64) {
	t.Helper()
	u := model.User{UUID: testIDs[name], Username: name, Balance: decimal.NewFromInt(balance)}
	if err := repos.Users.Save(u); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func balances(s *Store) map[string]string {
	out := map[string]string{}
	for id, u := range s.users {
		out[id] = u.Username + "=" + u.Balance.String()
	}
	return out
}

func TestPay_AliceToBobCreatesPayee(t *testing.T) {
	repos := MemoryRepos()
	seedUser(t, repos, "alice", 100)
	s := newTestStore(t, repos, Options{})

	if err := s.Pay(context.Background(), "alice", "bob", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	alice := s.users[testIDs["alice"]]
	bob, ok := s.users[testIDs["bob"]]
	if !ok {
		t.Fatalf("payee not created")
	}
	if !alice.Balance.Equal(decimal.NewFromInt(50)) || !bob.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("alice=%s bob=%s", alice.Balance, bob.Balance)
	}
	if bob.Username != "bob" {
		t.Fatalf("payee username=%q", bob.Username)
	}
	if !s.TotalBalance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total=%s", s.TotalBalance())
	}
}

func TestPay_FailuresMutateNothing(t *testing.T) {
	flaky := directory.Func(func(ctx context.Context, name string) (string, error) {
		if name == "carol" {
			return "", errors.New("upstream timeout")
		}
		return directory.NewStatic(testIDs).Resolve(ctx, name)
	})

	cases := []struct {
		name   string
		payer  string
		payee  string
		amount string
		code   string
		msg    string
	}{
		{"payer unknown to directory", "mallory", "bob", "1", protocol.ErrValidation, "payer not found"},
		{"payee unknown to directory", "alice", "mallory", "1", protocol.ErrValidation, "payee not found"},
		{"payer without account", "dave", "alice", "1", protocol.ErrNotFound, ""},
		{"self payment", "alice", "alice", "1", protocol.ErrValidation, "cannot pay yourself"},
		{"zero amount", "alice", "bob", "0", protocol.ErrValidation, "amount must be positive"},
		{"negative amount", "alice", "bob", "-5", protocol.ErrValidation, "amount must be positive"},
		{"insufficient balance", "alice", "bob", "100.01", protocol.ErrValidation, "insufficient balance"},
		{"directory failure", "alice", "carol", "1", protocol.ErrDirectory, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repos := MemoryRepos()
			seedUser(t, repos, "alice", 100)
			s, err := New(flaky, repos, Options{Logger: quietLogger()})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			before := balances(s)

			err = s.Pay(context.Background(), tc.payer, tc.payee, decimal.RequireFromString(tc.amount))
			if protocol.CodeOf(err) != tc.code {
				t.Fatalf("err=%v code=%q want %q", err, protocol.CodeOf(err), tc.code)
			}
			if tc.msg != "" && err.Error() != tc.msg {
				t.Fatalf("message=%q want %q", err.Error(), tc.msg)
			}
			after := balances(s)
			if len(after) != len(before) {
				t.Fatalf("accounts changed: %v -> %v", before, after)
			}
			for id, v := range before {
				if after[id] != v {
					t.Fatalf("account %s changed: %s -> %s", id, v, after[id])
				}
			}
		})
	}
}

func TestPay_ConservesTotal(t *testing.T) {
	repos := MemoryRepos()
	seedUser(t, repos, "alice", 500)
	seedUser(t, repos, "bob", 300)
	seedUser(t, repos, "carol", 200)
	s := newTestStore(t, repos, Options{})
	total := s.TotalBalance()

	names := []string{"alice", "bob", "carol", "dave"}
	rng := rand.New(rand.NewSource(7))
	ok := 0
	for i := 0; i < 500; i++ {
		payer := names[rng.Intn(len(names))]
		payee := names[rng.Intn(len(names))]
		amount := decimal.New(rng.Int63n(20000)-1000, -2)
		if err := s.Pay(context.Background(), payer, payee, amount); err == nil {
			ok++
		}
		if !s.TotalBalance().Equal(total) {
			t.Fatalf("step %d: total=%s want %s", i, s.TotalBalance(), total)
		}
		for _, u := range s.users {
			if u.Balance.IsNegative() {
				t.Fatalf("step %d: negative balance %+v", i, u)
			}
		}
	}
	if ok == 0 {
		t.Fatalf("no payment succeeded")
	}
}

func TestAddUser_Idempotent(t *testing.T) {
	s := newTestStore(t, MemoryRepos(), Options{})
	ctx := context.Background()

	first, err := s.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !first.Balance.IsZero() || first.UUID != testIDs["alice"] {
		t.Fatalf("first=%+v", first)
	}

	u := s.users[first.UUID]
	u.Balance = decimal.NewFromInt(42)
	s.users[first.UUID] = u

	second, err := s.AddUser(ctx, "alice")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !second.Balance.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("AddUser reset the balance: %s", second.Balance)
	}
	if len(s.users) != 1 {
		t.Fatalf("users=%d", len(s.users))
	}
	if _, err := s.AddUser(ctx, "mallory"); protocol.CodeOf(err) != protocol.ErrValidation {
		t.Fatalf("unknown player err=%v", err)
	}
}

// renameDirectory is a Static directory that records Forget calls.
type renameDirectory struct {
	*directory.Static
	forgot []string
}

func (d *renameDirectory) Forget(_ context.Context, name string) error {
	d.forgot = append(d.forgot, name)
	return nil
}

func TestPay_RenamedPlayerIsForgotten(t *testing.T) {
	repos := MemoryRepos()
	if err := repos.Users.Save(model.User{UUID: testIDs["alice"], Username: "alicia", Balance: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedUser(t, repos, "bob", 0)
	dir := &renameDirectory{Static: directory.NewStatic(testIDs)}
	s, err := New(dir, repos, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := s.Pay(ctx, "alice", "Bob", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if len(dir.forgot) != 1 || dir.forgot[0] != "alicia" {
		t.Fatalf("forgot=%v", dir.forgot)
	}
	if u := s.users[testIDs["alice"]]; u.Username != "alice" {
		t.Fatalf("username=%q", u.Username)
	}

	if err := s.Pay(ctx, "alice", "bob", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("second Pay: %v", err)
	}
	if len(dir.forgot) != 1 {
		t.Fatalf("unchanged names forgotten: %v", dir.forgot)
	}
	if err := s.Pay(ctx, "alice", "alice", decimal.NewFromInt(1)); protocol.CodeOf(err) != protocol.ErrValidation || len(dir.forgot) != 1 {
		t.Fatalf("rejected Pay err=%v forgot=%v", err, dir.forgot)
	}
}

func TestAddPair_NeverOverwrites(t *testing.T) {
	s := newTestStore(t, MemoryRepos(), Options{})
	p, err := s.AddPair("diamond", 10, decimal.NewFromInt(5))
	if err != nil || p.ItemStock != 10 {
		t.Fatalf("pair=%+v err=%v", p, err)
	}
	again, err := s.AddPair("diamond", 99, decimal.NewFromInt(99))
	if err != nil || again.ItemStock != 10 || !again.CurrencyStock.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("existing pair overwritten: %+v err=%v", again, err)
	}
}

func TestAddPair_RejectsItemsThatAreNotKeys(t *testing.T) {
	s := newTestStore(t, MemoryRepos(), Options{})
	for _, item := range []string{"", "a/iron", `a\iron`, ".."} {
		if _, err := s.AddPair(item, 1, decimal.Zero); protocol.CodeOf(err) != protocol.ErrValidation {
			t.Fatalf("AddPair(%q) err=%v", item, err)
		}
	}
	if len(s.pairs) != 0 {
		t.Fatalf("pairs=%+v", s.pairs)
	}
}

func TestNew_LoadsAndPrunesTrades(t *testing.T) {
	repos := MemoryRepos()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	var trades []model.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, model.Trade{Type: model.TradeAddStock, Item: "diamond", Amount: i + 1, UserUUID: "u", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	if err := repos.Trades.SaveAll(trades); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repos.Pairs.Save(model.Pair{Item: "bad", ItemStock: -1}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := newTestStore(t, repos, Options{TradeRetention: 3})
	got := s.Trades()
	if len(got) != 3 || got[0].Amount != 3 || got[2].Amount != 5 {
		t.Fatalf("trades=%+v", got)
	}
	if _, ok := s.Pair("bad"); ok {
		t.Fatalf("invalid pair loaded")
	}
	if err := s.saveAll(); err != nil {
		t.Fatalf("saveAll: %v", err)
	}
	stored, _ := repos.Trades.LoadAll()
	if len(stored) != 3 {
		t.Fatalf("pruned trades still stored: %d", len(stored))
	}
}
