package store

import (
	"errors"
	"fmt"
	"sort"

	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/metrics"
	"hecstore.ai/internal/model"
)

// saveAll writes every collection. Each failure is logged and counted; the remaining
// collections are still written.
func (s *Store) saveAll() error {
	var errs []error
	try := func(name string, err error) {
		if err == nil {
			return
		}
		s.log.Printf("save %s: %v", name, err)
		metrics.SaveFailures.Inc()
		errs = append(errs, fmt.Errorf("save %s: %w", name, err))
	}

	try("pairs", s.repos.Pairs.SaveAll(s.pairList()))
	try("users", s.repos.Users.SaveAll(s.userList()))
	try("orders", s.repos.Orders.SaveAll(s.orders))
	try("trades", s.repos.Trades.SaveAll(s.trades))
	try("storage", s.storage.Save(s.repos.Storage))
	return errors.Join(errs...)
}

func (s *Store) pairList() []model.Pair {
	out := make([]model.Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func (s *Store) userList() []model.User {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// appendTrade records t and applies trade retention.
func (s *Store) appendTrade(t model.Trade) {
	s.trades = append(s.trades, t)
	s.pruneTrades()
}

// pruneTrades keeps the newest tradeRetention trades. The next save removes the pruned files.
func (s *Store) pruneTrades() {
	if s.tradeRetention <= 0 || len(s.trades) <= s.tradeRetention {
		return
	}
	drop := len(s.trades) - s.tradeRetention
	s.trades = append([]model.Trade(nil), s.trades[drop:]...)
	s.record(journal.Entry{Kind: journal.KindPrune, Amount: drop, Detail: "trade retention"})
}
