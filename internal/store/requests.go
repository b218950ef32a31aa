package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/protocol"
)

func requestKind(req protocol.ConsoleRequest) string {
	switch req.(type) {
	case protocol.QueryBalances:
		return "query_balances"
	case protocol.UpdatePrice:
		return "update_price"
	case protocol.RestartBot:
		return "restart_bot"
	case protocol.Shutdown:
		return "shutdown"
	case protocol.AddNode:
		return "add_node"
	case protocol.CheckChest:
		return "check_chest"
	case protocol.FindChests:
		return "find_chests"
	case protocol.MoveChestItems:
		return "move_chest_items"
	case protocol.AdjustStock:
		return "adjust_stock"
	}
	return "unknown"
}

// reply delivers v on a buffered(1) reply channel without blocking.
func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

func (s *Store) handleRequest(ctx context.Context, req protocol.ConsoleRequest) {
	switch r := req.(type) {
	case protocol.QueryBalances:
		reply(r.Resp, s.Users())
	case protocol.UpdatePrice:
		reply(r.Resp, s.updatePrice(r))
	case protocol.RestartBot:
		s.restartBot(ctx, r)
	case protocol.AddNode:
		n, err := s.addNode()
		reply(r.Resp, protocol.NodeResult{Node: n, Err: err})
	case protocol.CheckChest:
		c, err := s.checkChest(ctx, r.ChestID)
		reply(r.Resp, protocol.ChestResult{Chest: c, Err: err})
	case protocol.FindChests:
		reply(r.Resp, s.storage.ChestsWithItem(r.Item))
	case protocol.MoveChestItems:
		c, err := s.moveChestItems(ctx, r)
		reply(r.Resp, protocol.ChestResult{Chest: c, Err: err})
	case protocol.AdjustStock:
		reply(r.Resp, s.adjustStock(ctx, r))
	default:
		s.log.Printf("unhandled console request %T", req)
	}
}

func (s *Store) updatePrice(r protocol.UpdatePrice) error {
	if r.Price.IsNegative() {
		return protocol.Validation("price must not be negative")
	}
	p, ok := s.pairs[r.Item]
	if !ok {
		return protocol.NotFound("pair %s not found", r.Item)
	}
	p.Price = r.Price
	s.pairs[r.Item] = p
	s.record(journal.Entry{Kind: journal.KindPrice, Item: r.Item, Value: r.Price.String()})
	return nil
}

// restartBot relays the request. The adapter answers on the console's own reply channel.
func (s *Store) restartBot(ctx context.Context, r protocol.RestartBot) {
	if err := s.send(ctx, protocol.Restart{Resp: r.Resp}); err != nil {
		s.log.Printf("restart: %v", err)
		reply(r.Resp, err)
	}
}

func (s *Store) addNode() (model.Node, error) {
	n, err := s.storage.AddNode()
	if err != nil {
		return model.Node{}, protocol.Validation("add node: %v", err)
	}
	s.log.Printf("added node %d at %s", n.ID, n.Position)
	s.record(journal.Entry{Kind: journal.KindNode, Amount: n.ID, Detail: n.Position.String()})
	return n, nil
}

func (s *Store) checkChest(ctx context.Context, id int) (model.Chest, error) {
	c, ok := s.storage.Chest(id)
	if !ok {
		return model.Chest{}, protocol.NotFound("chest %d not found", id)
	}
	resp := make(chan error, 1)
	in := protocol.InteractWithChest{Chest: c, Action: protocol.ChestAction{Kind: protocol.ChestCheck}, Resp: resp}
	if err := s.send(ctx, in); err != nil {
		return c, err
	}
	if err := s.await(ctx, fmt.Sprintf("check chest %d", id), resp); err != nil {
		return c, err
	}
	return c, nil
}

// moveChestItems has the agent move items at a chest and records the new slot amounts
// once the agent confirms. A negative stored slot counts as empty, like in Chest.Total.
func (s *Store) moveChestItems(ctx context.Context, r protocol.MoveChestItems) (model.Chest, error) {
	if r.Kind != protocol.ChestDeposit && r.Kind != protocol.ChestWithdraw {
		return model.Chest{}, protocol.Validation("unsupported chest action %s", r.Kind)
	}
	c, ok := s.storage.Chest(r.ChestID)
	if !ok {
		return model.Chest{}, protocol.NotFound("chest %d not found", r.ChestID)
	}
	if len(r.Items) != model.ChestSlots {
		return c, protocol.Validation("want %d slot amounts, got %d", model.ChestSlots, len(r.Items))
	}
	if r.Kind == protocol.ChestDeposit {
		if err := validItem(r.Item); err != nil {
			return c, err
		}
		if c.Item != "" && c.Item != r.Item && c.Total() > 0 {
			return c, protocol.Validation("chest %d holds %s", c.ID, c.Item)
		}
	}
	moved := 0
	for i, n := range r.Items {
		if n < 0 {
			return c, protocol.Validation("slot %d: negative amount", i)
		}
		if held := max(c.Amounts[i], 0); r.Kind == protocol.ChestWithdraw && n > held {
			return c, protocol.Validation("slot %d holds %d, cannot withdraw %d", i, held, n)
		}
		moved += n
	}
	if moved == 0 {
		return c, protocol.Validation("nothing to move")
	}

	resp := make(chan error, 1)
	action := protocol.ChestAction{Kind: r.Kind, Items: append([]int(nil), r.Items...)}
	if err := s.send(ctx, protocol.InteractWithChest{Chest: c, Action: action, Resp: resp}); err != nil {
		return c, err
	}
	if err := s.await(ctx, fmt.Sprintf("%s chest %d", r.Kind, c.ID), resp); err != nil {
		return c, err
	}

	next := c
	next.Amounts = append([]int(nil), c.Amounts...)
	for i, n := range r.Items {
		if n == 0 {
			continue
		}
		if r.Kind == protocol.ChestDeposit {
			next.Amounts[i] = max(next.Amounts[i], 0) + n
		} else {
			next.Amounts[i] -= n
		}
	}
	item := c.Item
	switch {
	case r.Kind == protocol.ChestDeposit:
		item = r.Item
		next.Item = r.Item
	case next.Total() == 0:
		next.Item = ""
	}
	if err := s.storage.UpdateChest(next); err != nil {
		return c, protocol.Validation("update chest %d: %v", c.ID, err)
	}
	updated, _ := s.storage.Chest(c.ID)
	s.record(journal.Entry{
		Kind:   journal.KindChest,
		Item:   item,
		Amount: moved,
		Detail: fmt.Sprintf("%s chest %d", r.Kind, c.ID),
	})
	return updated, nil
}

// adjustStock moves items and currency between a player and a pair's stock. The in-game
// exchange must succeed before any state changes.
func (s *Store) adjustStock(ctx context.Context, r protocol.AdjustStock) error {
	if r.Kind != model.TradeAddStock && r.Kind != model.TradeRemoveStock {
		return protocol.Validation("unsupported stock operation %s", r.Kind)
	}
	if err := validItem(r.Item); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return protocol.Validation("amount must be positive")
	}
	if r.Currency.IsNegative() {
		return protocol.Validation("currency must not be negative")
	}
	if r.Kind == model.TradeRemoveStock {
		p, ok := s.pairs[r.Item]
		if !ok {
			return protocol.NotFound("pair %s not found", r.Item)
		}
		if p.ItemStock < r.Amount || p.CurrencyStock.LessThan(r.Currency) {
			return protocol.Validation("insufficient stock")
		}
	}
	u, err := s.AddUser(ctx, r.Player)
	if err != nil {
		return err
	}

	t := model.Trade{
		Type:           r.Kind,
		Item:           r.Item,
		Amount:         r.Amount,
		AmountCurrency: r.Currency,
		UserUUID:       u.UUID,
		Timestamp:      s.now().UTC(),
	}
	resp := make(chan error, 1)
	if err := s.send(ctx, protocol.ProcessTrade{Trade: t, Resp: resp}); err != nil {
		return err
	}
	if err := s.await(ctx, "process trade", resp); err != nil {
		return err
	}

	p, err := s.AddPair(r.Item, 0, decimal.Zero)
	if err != nil {
		return err
	}
	if r.Kind == model.TradeAddStock {
		p.ItemStock += r.Amount
		p.CurrencyStock = p.CurrencyStock.Add(r.Currency)
	} else {
		p.ItemStock -= r.Amount
		p.CurrencyStock = p.CurrencyStock.Sub(r.Currency)
	}
	s.pairs[r.Item] = p
	s.appendTrade(t)
	s.record(journal.Entry{
		Kind:   journal.KindStock,
		Actor:  u.UUID,
		Item:   r.Item,
		Amount: r.Amount,
		Value:  r.Currency.String(),
		Detail: r.Kind.String(),
	})
	return nil
}
