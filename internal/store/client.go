package store

import (
	"context"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
)

// Console issues console requests to a running Store. It is safe for concurrent use.
// Every call returns protocol.ErrChannelClosed once the store has stopped.
type Console struct {
	reqs chan<- protocol.ConsoleRequest
	done <-chan struct{}
}

func NewConsole(reqs chan<- protocol.ConsoleRequest, done <-chan struct{}) *Console {
	return &Console{reqs: reqs, done: done}
}

func (c *Console) submit(ctx context.Context, req protocol.ConsoleRequest) error {
	select {
	case c.reqs <- req:
		return nil
	case <-c.done:
		return protocol.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func call[T any](ctx context.Context, c *Console, req protocol.ConsoleRequest, resp chan T) (T, error) {
	var zero T
	if err := c.submit(ctx, req); err != nil {
		return zero, err
	}
	select {
	case v := <-resp:
		return v, nil
	case <-c.done:
		// The store may have replied just before stopping.
		select {
		case v := <-resp:
			return v, nil
		default:
		}
		return zero, protocol.ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Console) QueryBalances(ctx context.Context) ([]model.User, error) {
	resp := make(chan []model.User, 1)
	return call(ctx, c, protocol.QueryBalances{Resp: resp}, resp)
}

func (c *Console) UpdatePrice(ctx context.Context, item string, price decimal.Decimal) error {
	resp := make(chan error, 1)
	err, callErr := call(ctx, c, protocol.UpdatePrice{Item: item, Price: price, Resp: resp}, resp)
	if callErr != nil {
		return callErr
	}
	return err
}

// RestartBot is answered by the session adapter; the store only relays it.
func (c *Console) RestartBot(ctx context.Context) error {
	resp := make(chan error, 1)
	err, callErr := call(ctx, c, protocol.RestartBot{Resp: resp}, resp)
	if callErr != nil {
		return callErr
	}
	return err
}

// Shutdown returns when the store has saved and acknowledged.
func (c *Console) Shutdown(ctx context.Context) error {
	resp := make(chan struct{}, 1)
	_, err := call(ctx, c, protocol.Shutdown{Resp: resp}, resp)
	return err
}

func (c *Console) AddNode(ctx context.Context) (model.Node, error) {
	resp := make(chan protocol.NodeResult, 1)
	r, err := call(ctx, c, protocol.AddNode{Resp: resp}, resp)
	if err != nil {
		return model.Node{}, err
	}
	return r.Node, r.Err
}

func (c *Console) CheckChest(ctx context.Context, id int) (model.Chest, error) {
	resp := make(chan protocol.ChestResult, 1)
	r, err := call(ctx, c, protocol.CheckChest{ChestID: id, Resp: resp}, resp)
	if err != nil {
		return model.Chest{}, err
	}
	return r.Chest, r.Err
}

// FindChests lists the chests holding item, ordered by id.
func (c *Console) FindChests(ctx context.Context, item string) ([]model.Chest, error) {
	resp := make(chan []model.Chest, 1)
	return call(ctx, c, protocol.FindChests{Item: item, Resp: resp}, resp)
}

// MoveChestItems deposits (protocol.ChestDeposit) or withdraws (protocol.ChestWithdraw) the
// per-slot amounts in items and returns the chest as recorded afterwards.
func (c *Console) MoveChestItems(ctx context.Context, id int, kind protocol.ChestActionKind, item string, items []int) (model.Chest, error) {
	resp := make(chan protocol.ChestResult, 1)
	req := protocol.MoveChestItems{ChestID: id, Kind: kind, Item: item, Items: items, Resp: resp}
	r, err := call(ctx, c, req, resp)
	if err != nil {
		return model.Chest{}, err
	}
	return r.Chest, r.Err
}

// AdjustStock adds (model.TradeAddStock) or removes (model.TradeRemoveStock) inventory for player.
func (c *Console) AdjustStock(ctx context.Context, player string, kind model.TradeType, item string, amount int, currency decimal.Decimal) error {
	resp := make(chan error, 1)
	req := protocol.AdjustStock{Player: player, Kind: kind, Item: item, Amount: amount, Currency: currency, Resp: resp}
	err, callErr := call(ctx, c, req, resp)
	if callErr != nil {
		return callErr
	}
	return err
}
