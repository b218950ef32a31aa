package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/config"
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "balances":
			balancesCmd(os.Args[2:])
			return
		case "pairs":
			pairsCmd(os.Args[2:])
			return
		case "trades":
			tradesCmd(os.Args[2:])
			return
		case "orders":
			ordersCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "health":
			healthCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <balances|pairs|trades|orders|journal|health> [flags]")
	os.Exit(2)
}

type dataFlags struct {
	dataDir *string
	backend *string
}

func addDataFlags(fs *flag.FlagSet) dataFlags {
	return dataFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		backend: fs.String("backend", "", "storage backend (files|sqlite; default: from config.yaml)"),
	}
}

// open reads the backend settings from config.yaml when present. It never creates the file.
func (d dataFlags) open() (store.Repos, io.Closer) {
	backend := strings.ToLower(strings.TrimSpace(*d.backend))
	sqlitePath := ""
	cp := filepath.Join(*d.dataDir, config.FileName)
	if _, err := os.Stat(cp); err == nil {
		cfg, err := config.Load(cp)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		if backend == "" {
			backend = cfg.StorageBackend
		}
		sqlitePath = cfg.SQLitePath
	}
	repos, closer, err := store.OpenRepos(backend, *d.dataDir, sqlitePath, log.New(os.Stderr, "[admin] ", log.LstdFlags))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return repos, closer
}

func balancesCmd(args []string) {
	fs := flag.NewFlagSet("balances", flag.ExitOnError)
	df := addDataFlags(fs)
	_ = fs.Parse(args)

	repos, closer := df.open()
	defer closer.Close()
	users, err := repos.Users.LoadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load users:", err)
		os.Exit(1)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	total := decimal.Zero
	for _, u := range users {
		printJSON(u)
		total = total.Add(u.Balance)
	}
	fmt.Fprintf(os.Stderr, "%d users, total balance %s\n", len(users), total.String())
}

func pairsCmd(args []string) {
	fs := flag.NewFlagSet("pairs", flag.ExitOnError)
	df := addDataFlags(fs)
	_ = fs.Parse(args)

	repos, closer := df.open()
	defer closer.Close()
	pairs, err := repos.Pairs.LoadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load pairs:", err)
		os.Exit(1)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Item < pairs[j].Item })
	for _, p := range pairs {
		printJSON(p)
	}
}

func tradesCmd(args []string) {
	fs := flag.NewFlagSet("trades", flag.ExitOnError)
	df := addDataFlags(fs)
	limit := fs.Int("limit", 20, "newest N trades (0 for all)")
	user := fs.String("user", "", "user uuid filter")
	_ = fs.Parse(args)

	repos, closer := df.open()
	defer closer.Close()
	trades, err := repos.Trades.LoadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load trades:", err)
		os.Exit(1)
	}
	printJSONAll(filterTrades(trades, *user, *limit))
}

// filterTrades keeps trades of user (all when empty), newest first, at most limit.
func filterTrades(trades []model.Trade, user string, limit int) []model.Trade {
	var out []model.Trade
	for _, t := range trades {
		if user == "" || t.UserUUID == user {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ordersCmd(args []string) {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	df := addDataFlags(fs)
	_ = fs.Parse(args)

	repos, closer := df.open()
	defer closer.Close()
	orders, err := repos.Orders.LoadAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load orders:", err)
		os.Exit(1)
	}
	printJSONAll(orders)
}

func printJSONAll[T any](items []T) {
	for _, v := range items {
		printJSON(v)
	}
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		return
	}
	fmt.Println(string(b))
}
