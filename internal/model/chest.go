package model

import (
	"fmt"
	"strconv"

	"hecstore.ai/internal/spatial"
)

// ChestSlots is the number of shulker slots in a double chest.
const ChestSlots = 54

// Chest is one addressable container of a node.
type Chest struct {
	ID       int              `json:"id"`
	NodeID   int              `json:"node_id"`
	Index    int              `json:"index"`
	Position spatial.Position `json:"position"`
	Item     string           `json:"item"`
	Amounts  []int            `json:"amounts"`
}

// NewChest builds an empty chest placed around the given node position.
func NewChest(nodeID int, node spatial.Position, index int) (Chest, error) {
	pos, err := spatial.ChestPosition(node, index)
	if err != nil {
		return Chest{}, err
	}
	return Chest{
		ID:       spatial.ChestID(nodeID, index),
		NodeID:   nodeID,
		Index:    index,
		Position: pos,
		Amounts:  make([]int, ChestSlots),
	}, nil
}

// ChestKey names a chest file inside its node partition.
func ChestKey(c Chest) string { return strconv.Itoa(c.Index) }

// NodePosition recovers the owning node's position from the chest's own position.
func (c Chest) NodePosition() (spatial.Position, error) {
	return spatial.NodePositionOfChest(c.Position, c.Index)
}

// Total is the sum of all non-negative slot amounts.
func (c Chest) Total() int {
	n := 0
	for _, a := range c.Amounts {
		if a > 0 {
			n += a
		}
	}
	return n
}

func (c Chest) Validate() error {
	if c.NodeID < 0 {
		return fmt.Errorf("chest %d: negative node id %d", c.ID, c.NodeID)
	}
	if !spatial.ValidIndex(c.Index) {
		return fmt.Errorf("chest %d: invalid index %d", c.ID, c.Index)
	}
	if c.ID != spatial.ChestID(c.NodeID, c.Index) {
		return fmt.Errorf("chest %d: id does not match node %d index %d", c.ID, c.NodeID, c.Index)
	}
	if len(c.Amounts) != ChestSlots {
		return fmt.Errorf("chest %d: %d slots, want %d", c.ID, len(c.Amounts), ChestSlots)
	}
	return nil
}

// Normalize rewrites the derived fields (id, position, slot vector length) from the
// node id, index and the node's computed position.
func (c *Chest) Normalize(node spatial.Position) error {
	pos, err := spatial.ChestPosition(node, c.Index)
	if err != nil {
		return err
	}
	c.ID = spatial.ChestID(c.NodeID, c.Index)
	c.Position = pos
	switch {
	case len(c.Amounts) > ChestSlots:
		c.Amounts = c.Amounts[:ChestSlots]
	case len(c.Amounts) < ChestSlots:
		c.Amounts = append(c.Amounts, make([]int, ChestSlots-len(c.Amounts))...)
	}
	return nil
}
