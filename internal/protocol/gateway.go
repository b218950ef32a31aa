package protocol

import (
	"hecstore.ai/internal/model"
	"hecstore.ai/internal/spatial"
)

// HELLO (store -> gateway)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Account         string `json:"account"`
	Server          string `json:"server"`
}

// CHAT (both directions). Sender is set on frames from the gateway.
type ChatMsg struct {
	Type   string `json:"type"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text"`
}

// POSITION (gateway -> store)
type PositionMsg struct {
	Type     string           `json:"type"`
	Position spatial.Position `json:"position"`
}

// ACTION (store -> gateway)
type ActionMsg struct {
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	Kind  string        `json:"kind"`
	Chest *ChestPayload `json:"chest,omitempty"`
	Trade *model.Trade  `json:"trade,omitempty"`
}

// Action kinds.
const (
	ActionChest = "chest"
	ActionTrade = "trade"
)

type ChestPayload struct {
	ID       int              `json:"id"`
	Position spatial.Position `json:"position"`
	Op       string           `json:"op"`
	Items    []int            `json:"items,omitempty"`
}

// RESULT (gateway -> store), answers the ACTION with the same id.
type ResultMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DISCONNECT (gateway -> store)
type DisconnectMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}
