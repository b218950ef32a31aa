// Package session connects the Store to the game. A Client is the game capability; the
// Adapter turns its chat events into player commands and executes the Store's outbound
// instructions against it.
package session

import (
	"context"
	"errors"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/protocol"
	"hecstore.ai/internal/spatial"
)

var (
	// ErrDisconnected is returned by clients that have no live game connection.
	ErrDisconnected = errors.New("session: not connected")
	// ErrUnsupported is returned for actions the client cannot perform.
	ErrUnsupported = errors.New("session: action not supported")
)

type EventKind int

const (
	EventChat EventKind = iota
	EventPosition
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "chat"
	case EventPosition:
		return "position"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// Event is one observation from the game.
type Event struct {
	Kind EventKind
	// Sender is the chat author when the game reports it.
	Sender   string
	Text     string
	Position spatial.Position
	Reason   string
}

// Client is the minimal game-client capability.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SendChat(ctx context.Context, text string) error
	CurrentPosition() (spatial.Position, bool)
	AwaitEvent(ctx context.Context) (Event, error)
}

// Actuator is implemented by clients that can operate chests and hand over trades.
type Actuator interface {
	InteractWithChest(ctx context.Context, chest model.Chest, action protocol.ChestAction) error
	ProcessTrade(ctx context.Context, trade model.Trade) error
}
