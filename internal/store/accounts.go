package store

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/directory"
	"hecstore.ai/internal/metrics"
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/repo"
)

// resolve maps a player name to its account id. A directory miss becomes
// Validation("<role> not found"); any other directory error is a DirectoryFailure.
func (s *Store) resolve(ctx context.Context, role, name string) (string, error) {
	id, err := s.dir.Resolve(ctx, name)
	if errors.Is(err, directory.ErrNotFound) {
		return "", protocol.Validation("%s not found", role)
	}
	if err != nil {
		return "", protocol.DirectoryFailure(name, err)
	}
	return id, nil
}

// Pay moves amount from payer to payee. Every check runs before any mutation, so on
// error nothing has changed; on success the sum of balances is unchanged.
func (s *Store) Pay(ctx context.Context, payerName, payeeName string, amount decimal.Decimal) error {
	err := s.pay(ctx, payerName, payeeName, amount)
	switch protocol.CodeOf(err) {
	case "":
		metrics.PayTotal.WithLabelValues(metrics.PayOK).Inc()
	case protocol.ErrValidation, protocol.ErrNotFound:
		metrics.PayTotal.WithLabelValues(metrics.PayRejected).Inc()
	default:
		metrics.PayTotal.WithLabelValues(metrics.PayFailed).Inc()
	}
	return err
}

func (s *Store) pay(ctx context.Context, payerName, payeeName string, amount decimal.Decimal) error {
	payerID, err := s.resolve(ctx, "payer", payerName)
	if err != nil {
		return err
	}
	payeeID, err := s.resolve(ctx, "payee", payeeName)
	if err != nil {
		return err
	}
	payer, ok := s.users[payerID]
	if !ok {
		return protocol.NotFound("payer %s has no account", payerName)
	}
	if payerID == payeeID {
		return protocol.Validation("cannot pay yourself")
	}
	if !amount.IsPositive() {
		return protocol.Validation("amount must be positive")
	}
	if payer.Balance.LessThan(amount) {
		return protocol.Validation("insufficient balance")
	}

	payee, ok := s.users[payeeID]
	if !ok {
		payee = model.NewUser(payeeID, payeeName)
	}
	s.forgetRenamed(ctx, payer, payerName)
	s.forgetRenamed(ctx, payee, payeeName)
	payer.Balance = payer.Balance.Sub(amount)
	payee.Balance = payee.Balance.Add(amount)
	payer.Username = payerName
	payee.Username = payeeName
	s.users[payerID] = payer
	s.users[payeeID] = payee

	s.record(journal.Entry{Kind: journal.KindPay, Actor: payerID, Counterparty: payeeID, Value: amount.String()})
	return nil
}

// forgetRenamed drops the cached lookup of the name an account was last seen under when the
// player now uses another one. The old name is free to be claimed by a different account.
func (s *Store) forgetRenamed(ctx context.Context, u model.User, name string) {
	if u.Username == "" || strings.EqualFold(u.Username, name) {
		return
	}
	f, ok := s.dir.(directory.Forgetter)
	if !ok {
		return
	}
	if err := f.Forget(ctx, u.Username); err != nil {
		s.log.Printf("directory forget %s: %v", u.Username, err)
		return
	}
	s.log.Printf("account %s renamed %s -> %s", u.UUID, u.Username, name)
}

// AddUser returns the account for name, creating it with a zero balance if absent.
// An existing account is returned unmodified.
func (s *Store) AddUser(ctx context.Context, name string) (model.User, error) {
	id, err := s.resolve(ctx, "player", name)
	if err != nil {
		return model.User{}, err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	u := model.NewUser(id, name)
	s.users[id] = u
	return u, nil
}

// AddPair returns the pair for item, creating it with the given stocks if absent.
// An existing pair is never overwritten. Item names must be usable as storage keys.
func (s *Store) AddPair(item string, itemStock int, currencyStock decimal.Decimal) (model.Pair, error) {
	if p, ok := s.pairs[item]; ok {
		return p, nil
	}
	if err := validItem(item); err != nil {
		return model.Pair{}, err
	}
	p := model.Pair{Item: item, ItemStock: itemStock, CurrencyStock: currencyStock}
	if err := p.Validate(); err != nil {
		return model.Pair{}, protocol.Validation("%v", err)
	}
	s.pairs[item] = p
	return p, nil
}

func validItem(item string) error {
	if err := repo.ValidKey(item); err != nil {
		return protocol.Validation("item %q is not a valid name", item)
	}
	return nil
}

// balance reports the balance of name. Unknown players have 0.
func (s *Store) balance(ctx context.Context, name string) (decimal.Decimal, error) {
	id, err := s.dir.Resolve(ctx, name)
	if errors.Is(err, directory.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, protocol.DirectoryFailure(name, err)
	}
	if u, ok := s.users[id]; ok {
		return u.Balance, nil
	}
	return decimal.Zero, nil
}
