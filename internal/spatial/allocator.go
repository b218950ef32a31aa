// Package spatial maps warehouse node and chest identifiers to world positions.
//
// Nothing here is stored: every position is a pure function of an id and the
// warehouse origin, so the on-disk layout can never drift from the world.
package spatial

import "fmt"

const (
	// ChestsPerNode is the fixed number of chests around every node.
	ChestsPerNode = 4
	// NodeSpacing is the distance in blocks between adjacent node centers.
	NodeSpacing = 3
)

// chestOffsets[index] is the chest position relative to its node.
var chestOffsets = [ChestsPerNode][3]int{
	{0, 1, -1},
	{1, 1, -1},
	{0, 0, -1},
	{1, 0, -1},
}

// ChestID composes a chest id from its node and index.
func ChestID(nodeID, index int) int {
	return nodeID*ChestsPerNode + index
}

// SplitChestID is the inverse of ChestID for non-negative ids.
func SplitChestID(chestID int) (nodeID, index int) {
	return chestID / ChestsPerNode, chestID % ChestsPerNode
}

// ValidIndex reports whether index addresses one of a node's chests.
func ValidIndex(index int) bool {
	return index >= 0 && index < ChestsPerNode
}

// Ring returns the spiral ring containing a node id (>0). Node 0 is not on a ring.
func Ring(nodeID int) int {
	if nodeID <= 0 {
		return 0
	}
	ring := 1
	for ring*(ring+1)*4 < nodeID+1 {
		ring++
	}
	return ring
}

// NodeOffset returns the grid offset (in node units) of a node from the origin.
func NodeOffset(nodeID int) (dx, dz int) {
	if nodeID <= 0 {
		return -2, 0
	}
	ring := Ring(nodeID)
	pos := nodeID - (ring-1)*ring*4
	side := 2 * ring

	switch pos / side {
	case 0: // right
		return -2 + ring, -ring + pos
	case 1: // bottom
		return -2 + ring - (pos - side), ring
	case 2: // left
		return -2 - ring, ring - (pos - 2*side)
	default: // top
		return -2 - ring + (pos - 3*side), -ring
	}
}

// NodePosition places a node relative to the warehouse origin. Y is unchanged.
func NodePosition(nodeID int, origin Position) Position {
	dx, dz := NodeOffset(nodeID)
	return origin.Add(dx*NodeSpacing, 0, dz*NodeSpacing)
}

// ChestPosition places chest index around a node position.
func ChestPosition(node Position, index int) (Position, error) {
	if !ValidIndex(index) {
		return Position{}, fmt.Errorf("invalid chest index: %d", index)
	}
	o := chestOffsets[index]
	return node.Add(o[0], o[1], o[2]), nil
}

// NodePositionOfChest recovers the node position from a chest position and index.
func NodePositionOfChest(chest Position, index int) (Position, error) {
	if !ValidIndex(index) {
		return Position{}, fmt.Errorf("invalid chest index: %d", index)
	}
	o := chestOffsets[index]
	return chest.Add(-o[0], -o[1], -o[2]), nil
}
