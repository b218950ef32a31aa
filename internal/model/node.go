package model

import (
	"fmt"

	"hecstore.ai/internal/spatial"
)

// Node is a storage unit owning exactly four chests. Its position is always computed.
type Node struct {
	ID       int
	Position spatial.Position
	Chests   [spatial.ChestsPerNode]Chest
}

// NewNode allocates a node and its four empty chests.
func NewNode(id int, origin spatial.Position) (Node, error) {
	if id < 0 {
		return Node{}, fmt.Errorf("node: negative id %d", id)
	}
	n := Node{ID: id, Position: spatial.NodePosition(id, origin)}
	for i := range n.Chests {
		c, err := NewChest(id, n.Position, i)
		if err != nil {
			return Node{}, err
		}
		n.Chests[i] = c
	}
	return n, nil
}
