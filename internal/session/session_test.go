package session

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/spatial"
)

func TestParseWhisper(t *testing.T) {
	cases := []struct {
		name   string
		ev     Event
		ok     bool
		player string
		text   string
	}{
		{"name prefix", Event{Kind: EventChat, Text: "alice whispers: bal"}, true, "alice", "bal"},
		{"extra spaces", Event{Kind: EventChat, Text: "alice whispers:   buy diamond 10  "}, true, "alice", "buy diamond 10"},
		{"reported sender wins", Event{Kind: EventChat, Sender: "bob", Text: "[bob -> me] whispers: pay alice 5"}, true, "bob", "pay alice 5"},
		{"empty body", Event{Kind: EventChat, Text: "alice whispers:"}, true, "alice", ""},
		{"public chat", Event{Kind: EventChat, Text: "<alice> hello"}, false, "", ""},
		{"no sender", Event{Kind: EventChat, Text: "whispers: bal"}, false, "", ""},
		{"ambiguous sender", Event{Kind: EventChat, Text: "alice and bob whispers: bal"}, false, "", ""},
		{"not chat", Event{Kind: EventDisconnect, Text: "alice whispers: bal"}, false, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := ParseWhisper(tc.ev)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && (cmd.Player != tc.player || cmd.Text != tc.text) {
				t.Fatalf("cmd=%+v", cmd)
			}
		})
	}
}

type adapterRun struct {
	out  chan protocol.PlayerCommand
	in   chan protocol.Instruction
	done chan error
}

func startAdapter(t *testing.T, c Client) *adapterRun {
	t.Helper()
	r := &adapterRun{
		out:  make(chan protocol.PlayerCommand, 8),
		in:   make(chan protocol.Instruction, 8),
		done: make(chan error, 1),
	}
	a := NewAdapter(c, AdapterOptions{
		ActionTimeout: time.Second,
		RetryDelay:    time.Millisecond,
		Logger:        log.New(io.Discard, "", 0),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { r.done <- a.Run(ctx, r.out, r.in) }()
	return r
}

func (r *adapterRun) call(t *testing.T, ins func(chan error) protocol.Instruction) error {
	t.Helper()
	resp := make(chan error, 1)
	r.in <- ins(resp)
	select {
	case err := <-resp:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply")
		return nil
	}
}

func (r *adapterRun) stop(t *testing.T) {
	t.Helper()
	ack := make(chan struct{}, 1)
	r.in <- protocol.StopSession{Resp: ack}
	select {
	case <-ack:
	case <-time.After(2 * time.Second):
		t.Fatalf("no shutdown ack")
	}
	if err := <-r.done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	for range r.out {
	}
}

func TestAdapter_ForwardsWhispersOnly(t *testing.T) {
	fc := NewFakeClient()
	r := startAdapter(t, fc)

	fc.Push(Event{Kind: EventChat, Text: "<carol> anyone selling?"})
	fc.Push(Event{Kind: EventPosition, Position: spatial.Position{X: 1}})
	fc.Push(Event{Kind: EventDisconnect, Reason: "kicked"})
	fc.Push(Event{Kind: EventChat, Text: "alice whispers: bal"})

	select {
	case cmd := <-r.out:
		if cmd.Player != "alice" || cmd.Text != "bal" {
			t.Fatalf("cmd=%+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("whisper not forwarded")
	}
	select {
	case cmd := <-r.out:
		t.Fatalf("unexpected command %+v", cmd)
	default:
	}
	r.stop(t)
}

func TestAdapter_ExecutesInstructions(t *testing.T) {
	fc := NewFakeClient()
	r := startAdapter(t, fc)

	r.in <- protocol.Whisper{Player: "bob", Text: "bob's balance: 0 diamonds"}
	trade := model.Trade{Type: model.TradeAddStock, Item: "diamond", Amount: 3, UserUUID: "u1"}
	if err := r.call(t, func(c chan error) protocol.Instruction { return protocol.ProcessTrade{Trade: trade, Resp: c} }); err != nil {
		t.Fatalf("ProcessTrade: %v", err)
	}
	action := protocol.ChestAction{Kind: protocol.ChestCheck}
	if err := r.call(t, func(c chan error) protocol.Instruction {
		return protocol.InteractWithChest{Chest: model.Chest{ID: 2}, Action: action, Resp: c}
	}); err != nil {
		t.Fatalf("InteractWithChest: %v", err)
	}

	sent := fc.Sent()
	if len(sent) != 1 || sent[0] != "/msg bob bob's balance: 0 diamonds" {
		t.Fatalf("sent=%q", sent)
	}
	if got := fc.Trades(); len(got) != 1 || got[0].Item != "diamond" {
		t.Fatalf("trades=%+v", got)
	}
	if got := fc.ChestActions(); len(got) != 1 || got[0].Kind != protocol.ChestCheck {
		t.Fatalf("chest actions=%+v", got)
	}

	fc.mu.Lock()
	fc.TradeErr = errors.New("player offline")
	fc.mu.Unlock()
	if err := r.call(t, func(c chan error) protocol.Instruction { return protocol.ProcessTrade{Trade: trade, Resp: c} }); err == nil {
		t.Fatalf("expected trade error")
	}
	r.stop(t)
}

func TestAdapter_RestartReconnects(t *testing.T) {
	fc := NewFakeClient()
	fc.SetPosition(spatial.Position{X: 5, Y: 64, Z: -3})
	r := startAdapter(t, fc)
	if err := r.call(t, func(c chan error) protocol.Instruction { return protocol.Restart{Resp: c} }); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if connects, disconnects := fc.Counts(); connects != 2 || disconnects != 1 {
		t.Fatalf("connects=%d disconnects=%d", connects, disconnects)
	}
	r.stop(t)
	if _, disconnects := fc.Counts(); disconnects != 2 {
		t.Fatalf("stop did not disconnect")
	}
}

// chatOnly hides the fake's Actuator methods.
type chatOnly struct{ Client }

func TestAdapter_ActionsWithoutActuator(t *testing.T) {
	r := startAdapter(t, chatOnly{NewFakeClient()})
	err := r.call(t, func(c chan error) protocol.Instruction { return protocol.ProcessTrade{Resp: c} })
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v", err)
	}
	r.stop(t)
}

func TestAdapter_ClosedInstructionsEndRun(t *testing.T) {
	fc := NewFakeClient()
	r := startAdapter(t, fc)
	close(r.in)
	select {
	case err := <-r.done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if _, ok := <-r.out; ok {
		t.Fatalf("command channel left open")
	}
}

func TestAdapter_ConnectFailureKeepsServing(t *testing.T) {
	fc := NewFakeClient()
	fc.ConnectErr = errors.New("auth failed")
	r := startAdapter(t, fc)

	if err := r.call(t, func(c chan error) protocol.Instruction { return protocol.Restart{Resp: c} }); err == nil {
		t.Fatalf("expected restart error while login fails")
	}
	fc.mu.Lock()
	fc.ConnectErr = nil
	fc.mu.Unlock()
	if err := r.call(t, func(c chan error) protocol.Instruction { return protocol.Restart{Resp: c} }); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if connects, _ := fc.Counts(); connects != 3 {
		t.Fatalf("connects=%d", connects)
	}
	r.stop(t)
}
