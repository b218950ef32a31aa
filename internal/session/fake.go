package session

import (
	"context"
	"sync"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/spatial"
)

// FakeClient is an in-memory Client and Actuator. Push feeds events; every other call is
// recorded.
type FakeClient struct {
	events chan Event

	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	sent        []string
	chests      []protocol.ChestAction
	trades      []model.Trade
	pos         spatial.Position
	hasPos      bool

	ConnectErr error
	ChestErr   error
	TradeErr   error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{events: make(chan Event, 64)}
}

// Push queues an event for AwaitEvent.
func (f *FakeClient) Push(ev Event) { f.events <- ev }

func (f *FakeClient) SetPosition(p spatial.Position) {
	f.mu.Lock()
	f.pos, f.hasPos = p, true
	f.mu.Unlock()
}

func (f *FakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true
	return nil
}

func (f *FakeClient) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrDisconnected
	}
	f.connected = false
	f.disconnects++
	return nil
}

func (f *FakeClient) SendChat(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrDisconnected
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *FakeClient) CurrentPosition() (spatial.Position, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, f.hasPos && f.connected
}

func (f *FakeClient) AwaitEvent(ctx context.Context) (Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (f *FakeClient) InteractWithChest(ctx context.Context, chest model.Chest, action protocol.ChestAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ChestErr != nil {
		return f.ChestErr
	}
	f.chests = append(f.chests, action)
	return nil
}

func (f *FakeClient) ProcessTrade(ctx context.Context, trade model.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TradeErr != nil {
		return f.TradeErr
	}
	f.trades = append(f.trades, trade)
	return nil
}

// Sent returns the chat lines sent so far.
func (f *FakeClient) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *FakeClient) Trades() []model.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Trade(nil), f.trades...)
}

func (f *FakeClient) ChestActions() []protocol.ChestAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.ChestAction(nil), f.chests...)
}

// Counts reports Connect and successful Disconnect calls.
func (f *FakeClient) Counts() (connects, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}
