// Package console reads operator commands line by line and turns each one into a console
// request for the Store.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
)

// Client is the request surface of the Store. *store.Console implements it.
type Client interface {
	QueryBalances(ctx context.Context) ([]model.User, error)
	UpdatePrice(ctx context.Context, item string, price decimal.Decimal) error
	RestartBot(ctx context.Context) error
	Shutdown(ctx context.Context) error
	AddNode(ctx context.Context) (model.Node, error)
	CheckChest(ctx context.Context, id int) (model.Chest, error)
	FindChests(ctx context.Context, item string) ([]model.Chest, error)
	MoveChestItems(ctx context.Context, id int, kind protocol.ChestActionKind, item string, items []int) (model.Chest, error)
	AdjustStock(ctx context.Context, player string, kind model.TradeType, item string, amount int, currency decimal.Decimal) error
}

// Run executes lines from in until a shutdown command or EOF. EOF requests a shutdown too.
func Run(ctx context.Context, in io.Reader, out io.Writer, client Client) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		stop, err := Exec(ctx, client, out, args)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if stop {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("console: read: %w", err)
	}
	fmt.Fprintln(out, "input closed; shutting down")
	return client.Shutdown(ctx)
}

// Exec runs one command line. stop reports whether the Store was asked to shut down.
func Exec(ctx context.Context, client Client, out io.Writer, args []string) (stop bool, err error) {
	root := newRoot(client, &stop)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err = root.ExecuteContext(ctx)
	return stop, err
}

func newRoot(c Client, stop *bool) *cobra.Command {
	root := &cobra.Command{
		Use:           "store",
		Short:         "Store operator console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(&cobra.Command{
		Use:   "balances",
		Short: "List every account and its balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := c.QueryBalances(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tUUID\tBALANCE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.UUID, u.Balance.String())
			}
			return w.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "price <item> <price>",
		Short: "Set the price of a trading pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid price %q", args[1])
			}
			if err := c.UpdatePrice(cmd.Context(), args[0], price); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s price set to %s\n", args[0], price.String())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Reconnect the game session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.RestartBot(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session restarted")
			return nil
		},
	})

	node := &cobra.Command{Use: "node", Short: "Warehouse nodes"}
	node.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Allocate the next storage node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.AddNode(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added node %d at %s (chests %d-%d)\n",
				n.ID, n.Position, n.Chests[0].ID, n.Chests[len(n.Chests)-1].ID)
			return nil
		},
	})
	root.AddCommand(node)

	chest := &cobra.Command{Use: "chest", Short: "Warehouse chests"}
	chest.AddCommand(&cobra.Command{
		Use:   "check <id>",
		Short: "Have the bot inspect a chest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid chest id %q", args[0])
			}
			ch, err := c.CheckChest(cmd.Context(), id)
			if err != nil {
				return err
			}
			printChest(cmd.OutOrStdout(), ch)
			return nil
		},
	})
	chest.AddCommand(&cobra.Command{
		Use:   "find <item>",
		Short: "List the chests holding an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chests, err := c.FindChests(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(chests) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no chest holds %s\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHEST\tNODE\tPOSITION\tAMOUNT")
			for _, ch := range chests {
				fmt.Fprintf(w, "%d\t%d\t%s\t%d\n", ch.ID, ch.NodeID, ch.Position, ch.Total())
			}
			return w.Flush()
		},
	})
	chest.AddCommand(&cobra.Command{
		Use:   "deposit <id> <item> <slot>:<amount>...",
		Short: "Have the bot fill chest slots with an item",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return moveChest(cmd, c, protocol.ChestDeposit, args[0], args[1], args[2:])
		},
	})
	chest.AddCommand(&cobra.Command{
		Use:   "withdraw <id> <slot>:<amount>...",
		Short: "Have the bot take items out of chest slots",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return moveChest(cmd, c, protocol.ChestWithdraw, args[0], "", args[1:])
		},
	})
	root.AddCommand(chest)

	stock := &cobra.Command{Use: "stock", Short: "Move items and currency in or out of a pair"}
	stock.AddCommand(stockCommand(c, "add", model.TradeAddStock), stockCommand(c, "remove", model.TradeRemoveStock))
	root.AddCommand(stock)

	root.AddCommand(&cobra.Command{
		Use:     "shutdown",
		Aliases: []string{"exit"},
		Short:   "Stop the session, save and exit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*stop = true
			if err := c.Shutdown(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "shutdown complete")
			return nil
		},
	})
	return root
}

func printChest(out io.Writer, ch model.Chest) {
	item := ch.Item
	if item == "" {
		item = "(empty)"
	}
	fmt.Fprintf(out, "chest %d node %d index %d at %s: %s x%d\n",
		ch.ID, ch.NodeID, ch.Index, ch.Position, item, ch.Total())
}

func moveChest(cmd *cobra.Command, c Client, kind protocol.ChestActionKind, rawID, item string, slots []string) error {
	id, err := strconv.Atoi(rawID)
	if err != nil || id < 0 {
		return fmt.Errorf("invalid chest id %q", rawID)
	}
	items, err := parseSlots(slots)
	if err != nil {
		return err
	}
	ch, err := c.MoveChestItems(cmd.Context(), id, kind, item, items)
	if err != nil {
		return err
	}
	printChest(cmd.OutOrStdout(), ch)
	return nil
}

// parseSlots turns "slot:amount" arguments into a per-slot vector. Repeated slots add up.
func parseSlots(args []string) ([]int, error) {
	items := make([]int, model.ChestSlots)
	for _, a := range args {
		slotStr, amountStr, ok := strings.Cut(a, ":")
		if !ok {
			return nil, fmt.Errorf("invalid slot amount %q, want <slot>:<amount>", a)
		}
		slot, err := strconv.Atoi(slotStr)
		if err != nil || slot < 0 || slot >= model.ChestSlots {
			return nil, fmt.Errorf("invalid slot %q", slotStr)
		}
		amount, err := strconv.Atoi(amountStr)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid amount %q", amountStr)
		}
		items[slot] += amount
	}
	return items, nil
}

func stockCommand(c Client, verb string, kind model.TradeType) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <player> <item> <amount> <currency>",
		Short: "Trade with a player to " + verb + " pair stock",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			currency, err := decimal.NewFromString(args[3])
			if err != nil {
				return fmt.Errorf("invalid currency %q", args[3])
			}
			if err := c.AdjustStock(cmd.Context(), args[0], kind, args[1], amount, currency); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %d %s, %s diamonds\n", kind, args[0], amount, args[1], currency.String())
			return nil
		},
	}
}
