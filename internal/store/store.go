// Package store is the single-writer economy engine. One goroutine (Run) owns users, pairs,
// orders, trades and the warehouse, processes one message at a time and persists every
// collection before reading the next message.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hecstore.ai/internal/directory"
	"hecstore.ai/internal/metrics"
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/persistence/journal"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/repo"
	"hecstore.ai/internal/spatial"
	"hecstore.ai/internal/warehouse"
)

// Repos are the persistence backends, one per collection.
type Repos struct {
	Users   repo.Repository[model.User]
	Pairs   repo.Repository[model.Pair]
	Trades  repo.Repository[model.Trade]
	Orders  repo.Queue[model.Order]
	Storage repo.Partitioned[model.Chest]
}

// MemoryRepos returns empty in-memory backends.
func MemoryRepos() Repos {
	return Repos{
		Users:   repo.NewMemory(model.UserKey),
		Pairs:   repo.NewMemory(model.PairKey),
		Trades:  repo.NewMemory(model.TradeKey),
		Orders:  &repo.MemoryQueue[model.Order]{},
		Storage: repo.NewMemoryPartitions(model.ChestKey),
	}
}

// Journal receives one entry per committed mutation.
type Journal interface {
	Append(journal.Entry) error
}

type Options struct {
	// Origin of the warehouse grid.
	Origin spatial.Position
	// ShutdownTimeout bounds the wait for the adapter's shutdown ack.
	ShutdownTimeout time.Duration
	// ActionTimeout bounds each outbound send and each chest/trade acknowledgment.
	ActionTimeout time.Duration
	// TradeRetention keeps only the newest N trades. 0 keeps all.
	TradeRetention int

	Journal Journal
	Logger  *log.Logger
	Now     func() time.Time
}

type Store struct {
	log     *log.Logger
	dir     directory.Resolver
	repos   Repos
	journal Journal
	now     func() time.Time

	shutdownTimeout time.Duration
	actionTimeout   time.Duration
	tradeRetention  int

	users   map[string]model.User
	pairs   map[string]model.Pair
	orders  []model.Order
	trades  []model.Trade
	storage *warehouse.Storage

	out  chan<- protocol.Instruction
	done chan struct{}
}

// New loads every collection from repos. Unreadable entities are skipped with a warning;
// a backend that cannot be listed at all is an error.
func New(dir directory.Resolver, repos Repos, opts Options) (*Store, error) {
	if dir == nil {
		return nil, errors.New("store: nil directory")
	}
	if repos.Users == nil || repos.Pairs == nil || repos.Trades == nil || repos.Orders == nil || repos.Storage == nil {
		return nil, errors.New("store: incomplete repositories")
	}
	s := &Store{
		log:             opts.Logger,
		dir:             dir,
		repos:           repos,
		journal:         opts.Journal,
		now:             opts.Now,
		shutdownTimeout: opts.ShutdownTimeout,
		actionTimeout:   opts.ActionTimeout,
		tradeRetention:  opts.TradeRetention,
		users:           make(map[string]model.User),
		pairs:           make(map[string]model.Pair),
		done:            make(chan struct{}),
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	if s.actionTimeout <= 0 {
		s.actionTimeout = 30 * time.Second
	}
	if err := s.load(opts.Origin); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(origin spatial.Position) error {
	users, err := s.repos.Users.LoadAll()
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if err := u.Validate(); err != nil {
			s.log.Printf("load users: skip: %v", err)
			continue
		}
		s.users[u.UUID] = u
	}

	pairs, err := s.repos.Pairs.LoadAll()
	if err != nil {
		return fmt.Errorf("load pairs: %w", err)
	}
	for _, p := range pairs {
		if err := p.Validate(); err != nil {
			s.log.Printf("load pairs: skip: %v", err)
			continue
		}
		s.pairs[p.Item] = p
	}

	s.orders, err = s.repos.Orders.LoadAll()
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	s.trades, err = s.repos.Trades.LoadAll()
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	sort.SliceStable(s.trades, func(i, j int) bool { return s.trades[i].Timestamp.Before(s.trades[j].Timestamp) })
	s.pruneTrades()

	s.storage, err = warehouse.Load(origin, s.repos.Storage, s.log)
	if err != nil {
		return fmt.Errorf("load storage: %w", err)
	}

	s.log.Printf("loaded users=%d pairs=%d orders=%d trades=%d nodes=%d",
		len(s.users), len(s.pairs), len(s.orders), len(s.trades), len(s.storage.Nodes))
	s.observe()
	return nil
}

// Done is closed when Run returns.
func (s *Store) Done() <-chan struct{} { return s.done }

// Run processes messages until Shutdown, until both inputs are closed, or until ctx is
// canceled. It always finishes with a final save and closes out.
func (s *Store) Run(ctx context.Context, events <-chan protocol.PlayerCommand, requests <-chan protocol.ConsoleRequest, out chan<- protocol.Instruction) error {
	defer close(s.done)
	s.out = out

	for events != nil || requests != nil {
		select {
		case <-ctx.Done():
			s.log.Printf("context canceled; stopping")
			s.finish()
			return ctx.Err()
		case cmd, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.process("player_command", func() { s.handleCommand(ctx, cmd) })
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			if sd, ok := req.(protocol.Shutdown); ok {
				metrics.MessagesTotal.WithLabelValues("shutdown").Inc()
				s.shutdown(ctx, sd)
				return nil
			}
			s.process(requestKind(req), func() { s.handleRequest(ctx, req) })
		}
	}
	s.log.Printf("inputs closed; stopping")
	s.finish()
	return nil
}

// process runs one message to completion, then the persistence barrier.
func (s *Store) process(kind string, fn func()) {
	start := time.Now()
	fn()
	_ = s.saveAll()
	s.observe()
	metrics.MessagesTotal.WithLabelValues(kind).Inc()
	metrics.MessageSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (s *Store) shutdown(ctx context.Context, req protocol.Shutdown) {
	s.log.Printf("shutdown requested")
	ack := make(chan struct{}, 1)
	if err := s.send(ctx, protocol.StopSession{Resp: ack}); err != nil {
		s.log.Printf("shutdown: notify session: %v", err)
	} else {
		t := time.NewTimer(s.shutdownTimeout)
		select {
		case <-ack:
		case <-t.C:
			s.log.Printf("shutdown: session did not acknowledge within %s", s.shutdownTimeout)
		case <-ctx.Done():
		}
		t.Stop()
	}
	_ = s.saveAll()
	if req.Resp != nil {
		select {
		case req.Resp <- struct{}{}:
		default:
		}
	}
	s.closeOut()
	s.log.Printf("shutdown complete")
}

func (s *Store) finish() {
	_ = s.saveAll()
	s.closeOut()
}

func (s *Store) closeOut() {
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
}

// send delivers an instruction to the adapter, bounded by the action timeout.
func (s *Store) send(ctx context.Context, in protocol.Instruction) error {
	if s.out == nil {
		return protocol.SessionFailure("session", protocol.ErrChannelClosed)
	}
	t := time.NewTimer(s.actionTimeout)
	defer t.Stop()
	select {
	case s.out <- in:
		return nil
	case <-t.C:
		return protocol.SessionFailure("session busy", context.DeadlineExceeded)
	case <-ctx.Done():
		return protocol.SessionFailure("session", ctx.Err())
	}
}

// await waits for an adapter acknowledgment, bounded by the action timeout.
func (s *Store) await(ctx context.Context, what string, resp <-chan error) error {
	t := time.NewTimer(s.actionTimeout)
	defer t.Stop()
	select {
	case err := <-resp:
		if err != nil {
			return protocol.SessionFailure(what, err)
		}
		return nil
	case <-t.C:
		return protocol.SessionFailure(what, context.DeadlineExceeded)
	case <-ctx.Done():
		return protocol.SessionFailure(what, ctx.Err())
	}
}

// notify whispers text to player. Delivery failure is logged.
func (s *Store) notify(ctx context.Context, player, text string) {
	if err := s.send(ctx, protocol.Whisper{Player: player, Text: text}); err != nil {
		s.log.Printf("notify %s: %v", player, err)
	}
}

func (s *Store) record(e journal.Entry) {
	if s.journal == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = s.now().UTC()
	}
	if err := s.journal.Append(e); err != nil {
		s.log.Printf("journal %s: %v", e.Kind, err)
	}
}

func (s *Store) observe() {
	metrics.Users.Set(float64(len(s.users)))
	metrics.Orders.Set(float64(len(s.orders)))
}

// The accessors below read state directly. Call them before Run starts or after it returns.

// Users returns a snapshot of every account ordered by username.
func (s *Store) Users() []model.User {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}

func (s *Store) Orders() []model.Order { return append([]model.Order(nil), s.orders...) }

func (s *Store) Trades() []model.Trade { return append([]model.Trade(nil), s.trades...) }

func (s *Store) Pair(item string) (model.Pair, bool) {
	p, ok := s.pairs[item]
	return p, ok
}

// TotalBalance is the sum of all account balances.
func (s *Store) TotalBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, u := range s.users {
		sum = sum.Add(u.Balance)
	}
	return sum
}
