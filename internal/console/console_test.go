package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/directory"
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/spatial"
	"hecstore.ai/internal/store"
)

type fakeClient struct {
	calls     []string
	users     []model.User
	err       error
	shutdowns int
}

func (f *fakeClient) record(s string) error {
	f.calls = append(f.calls, s)
	return f.err
}

func (f *fakeClient) QueryBalances(ctx context.Context) ([]model.User, error) {
	return f.users, f.record("balances")
}

func (f *fakeClient) UpdatePrice(ctx context.Context, item string, price decimal.Decimal) error {
	return f.record("price " + item + " " + price.String())
}

func (f *fakeClient) RestartBot(ctx context.Context) error { return f.record("restart") }

func (f *fakeClient) Shutdown(ctx context.Context) error {
	f.shutdowns++
	return f.record("shutdown")
}

func (f *fakeClient) AddNode(ctx context.Context) (model.Node, error) {
	n, _ := model.NewNode(0, spatial.Position{})
	return n, f.record("node add")
}

func (f *fakeClient) CheckChest(ctx context.Context, id int) (model.Chest, error) {
	return model.Chest{ID: id}, f.record("chest check")
}

func (f *fakeClient) FindChests(ctx context.Context, item string) ([]model.Chest, error) {
	return []model.Chest{{ID: 5, Item: item, Amounts: []int{7}}}, f.record("chest find " + item)
}

func (f *fakeClient) MoveChestItems(ctx context.Context, id int, kind protocol.ChestActionKind, item string, items []int) (model.Chest, error) {
	return model.Chest{ID: id, Item: item}, f.record(fmt.Sprintf("chest %s %d [%s] %d %d", kind, id, item, items[0], items[5]))
}

func (f *fakeClient) AdjustStock(ctx context.Context, player string, kind model.TradeType, item string, amount int, currency decimal.Decimal) error {
	return f.record(strings.Join([]string{"stock", kind.String(), player, item, decimal.NewFromInt(int64(amount)).String(), currency.String()}, " "))
}

func TestRun_DispatchesCommands(t *testing.T) {
	fc := &fakeClient{users: []model.User{{UUID: "u1", Username: "alice", Balance: decimal.NewFromInt(5)}}}
	in := strings.NewReader(strings.Join([]string{
		"balances",
		"",
		"price diamond 2.5",
		"restart",
		"node add",
		"chest check 3",
		"chest find diamond",
		"chest deposit 3 diamond 0:64 5:10 5:6",
		"chest withdraw 3 5:1",
		"stock add alice diamond 64 10",
		"stock remove bob emerald 1 0.5",
		"exit",
		"balances",
	}, "\n"))
	var out bytes.Buffer
	if err := Run(context.Background(), in, &out, fc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{
		"balances",
		"price diamond 2.5",
		"restart",
		"node add",
		"chest check",
		"chest find diamond",
		"chest deposit 3 [diamond] 64 16",
		"chest withdraw 3 [] 0 1",
		"stock AddStock alice diamond 64 10",
		"stock RemoveStock bob emerald 1 0.5",
		"shutdown",
	}
	if strings.Join(fc.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls=%q", fc.calls)
	}
	if !strings.Contains(out.String(), "alice") || !strings.Contains(out.String(), "shutdown complete") || !strings.Contains(out.String(), "CHEST") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestRun_BadInputReportsAndContinues(t *testing.T) {
	fc := &fakeClient{}
	in := strings.NewReader("price diamond cheap\nchest check x\nchest deposit 1 diamond 99:1\nchest withdraw 1 0-5\nchest withdraw 1 0:0\nstock add alice diamond many 1\nfly\nprice\nhelp\nshutdown\n")
	var out bytes.Buffer
	if err := Run(context.Background(), in, &out, fc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "shutdown" {
		t.Fatalf("calls=%q", fc.calls)
	}
	got := out.String()
	for _, s := range []string{`invalid price "cheap"`, `invalid chest id "x"`, `invalid slot "99"`, `invalid slot amount "0-5"`, `invalid amount "0"`, `invalid amount "many"`, `unknown command "fly"`, "accepts 2 arg(s)", "Available Commands"} {
		if !strings.Contains(got, s) {
			t.Fatalf("output missing %q:\n%s", s, got)
		}
	}
}

func TestRun_EOFShutsDown(t *testing.T) {
	fc := &fakeClient{}
	var out bytes.Buffer
	if err := Run(context.Background(), strings.NewReader("restart\n"), &out, fc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fc.shutdowns != 1 {
		t.Fatalf("shutdowns=%d", fc.shutdowns)
	}
}

func TestExec_ReportsStoreErrors(t *testing.T) {
	fc := &fakeClient{err: protocol.NotFound("pair %s not found", "emerald")}
	var out bytes.Buffer
	stop, err := Exec(context.Background(), fc, &out, []string{"price", "emerald", "1"})
	if stop || protocol.CodeOf(err) != protocol.ErrNotFound {
		t.Fatalf("stop=%v err=%v", stop, err)
	}
}

// TestRun_AgainstStore drives a real Store loop through the console.
func TestRun_AgainstStore(t *testing.T) {
	ids := map[string]string{"alice": "00000000-0000-0000-0000-00000000000a"}
	repos := store.MemoryRepos()
	if err := repos.Pairs.Save(model.Pair{Item: "diamond"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := store.New(directory.NewStatic(ids), repos, store.Options{
		Logger:        log.New(io.Discard, "", 0),
		ActionTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reqs := make(chan protocol.ConsoleRequest)
	out := make(chan protocol.Instruction, 8)
	go func() {
		for ins := range out {
			switch m := ins.(type) {
			case protocol.ProcessTrade:
				m.Resp <- nil
			case protocol.InteractWithChest:
				m.Resp <- nil
			case protocol.Restart:
				m.Resp <- errors.New("gateway unreachable")
			case protocol.StopSession:
				m.Resp <- struct{}{}
			}
		}
	}()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(context.Background(), nil, reqs, out) }()

	in := strings.NewReader(strings.Join([]string{
		"stock add alice diamond 64 10",
		"price diamond 3",
		"node add",
		"chest check 2",
		"chest deposit 2 diamond 0:48 1:16",
		"chest find diamond",
		"chest withdraw 2 0:48 1:16",
		"chest find diamond",
		"restart",
		"balances",
	}, "\n") + "\n")
	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, in, &buf, store.NewConsole(reqs, s.Done())); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := <-runErr; err != nil {
		t.Fatalf("store Run: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"AddStock: alice 64 diamond, 10 diamonds", "diamond price set to 3", "added node 0", "chest 2 node 0 index 2", ": diamond x64", "CHEST", ": (empty) x0", "no chest holds diamond", "error: gateway unreachable", "alice"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	p, ok := s.Pair("diamond")
	if !ok || p.ItemStock != 64 || !p.Price.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("pair=%+v", p)
	}
}
