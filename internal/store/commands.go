package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/protocol"
)

const usageText = "Available commands: buy <item> <qty>, sell <item> <qty>, bal | balance, pay <player> <amount>"

// handleCommand executes one whispered chat command. Every outcome is reported to the
// player as a whisper.
func (s *Store) handleCommand(ctx context.Context, cmd protocol.PlayerCommand) {
	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 {
		s.notify(ctx, cmd.Player, usageText)
		return
	}
	switch fields[0] {
	case "buy":
		s.notify(ctx, cmd.Player, s.placeOrder(ctx, cmd.Player, model.OrderBuy, fields[1:]))
	case "sell":
		s.notify(ctx, cmd.Player, s.placeOrder(ctx, cmd.Player, model.OrderSell, fields[1:]))
	case "bal", "balance":
		s.notify(ctx, cmd.Player, s.reportBalance(ctx, cmd.Player))
	case "pay":
		s.payCommand(ctx, cmd.Player, fields[1:])
	default:
		s.notify(ctx, cmd.Player, usageText)
	}
}

func (s *Store) placeOrder(ctx context.Context, player string, typ model.OrderType, args []string) string {
	verb := strings.ToLower(typ.String())
	if len(args) != 2 {
		return fmt.Sprintf("Usage: %s <item> <qty>", verb)
	}
	item := args[0]
	qty, err := strconv.Atoi(args[1])
	if err != nil || qty <= 0 {
		return fmt.Sprintf("Invalid quantity %q: must be a positive whole number", args[1])
	}

	u, err := s.AddUser(ctx, player)
	if err != nil {
		s.log.Printf("%s order from %s: %v", verb, player, err)
		return "Could not look up your account, try again later"
	}
	if _, ok := s.pairs[item]; !ok {
		return fmt.Sprintf("%s: item not available for trading", item)
	}

	s.orders = append(s.orders, model.Order{Type: typ, Item: item, Amount: qty, UserUUID: u.UUID})
	s.record(journal.Entry{Kind: journal.KindOrder, Actor: u.UUID, Item: item, Amount: qty, Detail: typ.String()})
	return fmt.Sprintf("Created %s order for %d %s", verb, qty, item)
}

func (s *Store) reportBalance(ctx context.Context, player string) string {
	bal, err := s.balance(ctx, player)
	if err != nil {
		s.log.Printf("balance for %s: %v", player, err)
		return "Could not look up your balance, try again later"
	}
	return fmt.Sprintf("%s's balance: %s diamonds", player, bal.String())
}

func (s *Store) payCommand(ctx context.Context, player string, args []string) {
	if len(args) != 2 {
		s.notify(ctx, player, "Usage: pay <player> <amount>")
		return
	}
	payee := args[0]
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		s.notify(ctx, player, fmt.Sprintf("Invalid amount %q", args[1]))
		return
	}
	if err := s.Pay(ctx, player, payee, amount); err != nil {
		if protocol.CodeOf(err) == protocol.ErrDirectory {
			s.log.Printf("pay %s -> %s: %v", player, payee, err)
		}
		s.notify(ctx, player, "Payment failed: "+err.Error())
		return
	}
	s.notify(ctx, player, fmt.Sprintf("Paid %s diamonds to %s", amount.String(), payee))
	s.notify(ctx, payee, fmt.Sprintf("%s paid you %s diamonds", player, amount.String()))
}
