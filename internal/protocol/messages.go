package protocol

import (
	"github.com/shopspring/decimal"

	"hecstore.ai/internal/model"
)

// PlayerCommand (session -> store): a whispered chat command.
type PlayerCommand struct {
	Player string
	Text   string
}

// ConsoleRequest is any console -> store message. Each carries a buffered(1) Resp.
type ConsoleRequest interface {
	consoleRequest()
}

// QueryBalances asks for a snapshot of every user.
type QueryBalances struct {
	Resp chan []model.User
}

// UpdatePrice sets the per-item price of an existing pair.
type UpdatePrice struct {
	Item  string
	Price decimal.Decimal
	Resp  chan error
}

// RestartBot is relayed to the session adapter, which replies on Resp.
type RestartBot struct {
	Resp chan error
}

// Shutdown stops the adapter, flushes state and stops the store.
type Shutdown struct {
	Resp chan struct{}
}

// AddNode allocates the next storage node.
type AddNode struct {
	Resp chan NodeResult
}

type NodeResult struct {
	Node model.Node
	Err  error
}

// CheckChest asks the adapter to inspect one chest.
type CheckChest struct {
	ChestID int
	Resp    chan ChestResult
}

type ChestResult struct {
	Chest model.Chest
	Err   error
}

// FindChests lists the chests holding Item, ordered by id.
type FindChests struct {
	Item string
	Resp chan []model.Chest
}

// MoveChestItems has the agent deposit into or withdraw from one chest. Items holds the
// amount to move per slot; Item names what a deposit stores.
type MoveChestItems struct {
	ChestID int
	Kind    ChestActionKind
	Item    string
	Items   []int
	Resp    chan ChestResult
}

// AdjustStock trades items and currency between a player and the store inventory.
// Kind is model.TradeAddStock or model.TradeRemoveStock.
type AdjustStock struct {
	Player   string
	Kind     model.TradeType
	Item     string
	Amount   int
	Currency decimal.Decimal
	Resp     chan error
}

func (QueryBalances) consoleRequest()  {}
func (UpdatePrice) consoleRequest()    {}
func (RestartBot) consoleRequest()     {}
func (Shutdown) consoleRequest()       {}
func (AddNode) consoleRequest()        {}
func (CheckChest) consoleRequest()     {}
func (FindChests) consoleRequest()     {}
func (MoveChestItems) consoleRequest() {}
func (AdjustStock) consoleRequest()    {}

// Instruction is any store -> session message.
type Instruction interface {
	instruction()
}

// Whisper delivers a private notice to a player. No reply.
type Whisper struct {
	Player string
	Text   string
}

type ChestActionKind int

const (
	ChestDeposit ChestActionKind = iota
	ChestWithdraw
	ChestCheck
)

func (k ChestActionKind) String() string {
	switch k {
	case ChestDeposit:
		return "deposit"
	case ChestWithdraw:
		return "withdraw"
	case ChestCheck:
		return "check"
	}
	return "unknown"
}

// ChestAction is what to do at a chest. Items holds per-slot amounts for deposit/withdraw.
type ChestAction struct {
	Kind  ChestActionKind
	Items []int
}

// InteractWithChest sends the agent to a chest.
type InteractWithChest struct {
	Chest  model.Chest
	Action ChestAction
	Resp   chan error
}

// ProcessTrade asks the agent to execute an in-game exchange.
type ProcessTrade struct {
	Trade model.Trade
	Resp  chan error
}

// Restart reconnects the game session.
type Restart struct {
	Resp chan error
}

// StopSession disconnects the game session and stops the adapter.
type StopSession struct {
	Resp chan struct{}
}

func (Whisper) instruction()           {}
func (InteractWithChest) instruction() {}
func (ProcessTrade) instruction()      {}
func (Restart) instruction()           {}
func (StopSession) instruction()       {}
