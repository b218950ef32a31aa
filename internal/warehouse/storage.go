// Package warehouse tracks the physical storage grid: nodes of four chests laid out on a
// spiral around an origin.
package warehouse

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"hecstore.ai/internal/model"
	"hecstore.ai/internal/repo"
	"hecstore.ai/internal/spatial"
)

// Storage is owned by the store goroutine. It is not safe for concurrent use.
type Storage struct {
	Origin spatial.Position
	Nodes  []model.Node
}

func New(origin spatial.Position) *Storage {
	return &Storage{Origin: origin}
}

// AddNode allocates a node whose id is the current node count, skipping ids already taken.
func (s *Storage) AddNode() (model.Node, error) {
	id := len(s.Nodes)
	for s.node(id) != nil {
		id++
	}
	n, err := model.NewNode(id, s.Origin)
	if err != nil {
		return model.Node{}, err
	}
	s.Nodes = append(s.Nodes, n)
	sort.Slice(s.Nodes, func(i, j int) bool { return s.Nodes[i].ID < s.Nodes[j].ID })
	return n, nil
}

func (s *Storage) node(id int) *model.Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Chest returns a copy of the chest with the given id.
func (s *Storage) Chest(id int) (model.Chest, bool) {
	if id < 0 {
		return model.Chest{}, false
	}
	nodeID, index := spatial.SplitChestID(id)
	n := s.node(nodeID)
	if n == nil {
		return model.Chest{}, false
	}
	return clone(n.Chests[index]), true
}

func clone(c model.Chest) model.Chest {
	c.Amounts = append([]int(nil), c.Amounts...)
	return c
}

// UpdateChest replaces the item and slot amounts of an existing chest. Derived fields are kept.
func (s *Storage) UpdateChest(c model.Chest) error {
	if c.ID < 0 {
		return fmt.Errorf("chest %d: not found", c.ID)
	}
	nodeID, index := spatial.SplitChestID(c.ID)
	n := s.node(nodeID)
	if n == nil {
		return fmt.Errorf("chest %d: not found", c.ID)
	}
	cur := &n.Chests[index]
	cur.Item = c.Item
	cur.Amounts = append([]int(nil), c.Amounts...)
	return cur.Normalize(n.Position)
}

// ChestsWithItem returns copies of the chests holding item, ordered by id.
func (s *Storage) ChestsWithItem(item string) []model.Chest {
	var out []model.Chest
	for _, n := range s.Nodes {
		for _, c := range n.Chests {
			if c.Item == item {
				out = append(out, clone(c))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChestCount is the number of chests across all nodes.
func (s *Storage) ChestCount() int {
	return len(s.Nodes) * spatial.ChestsPerNode
}

// Load rebuilds the storage from one partition per node. Positions are always recomputed from
// the node id and origin; chests missing on disk come back empty.
func Load(origin spatial.Position, parts repo.Partitioned[model.Chest], logger *log.Logger) (*Storage, error) {
	if logger == nil {
		logger = log.Default()
	}
	names, err := parts.Partitions()
	if err != nil {
		return nil, fmt.Errorf("list storage nodes: %w", err)
	}
	s := New(origin)
	for _, name := range names {
		id, err := strconv.Atoi(name)
		if err != nil || id < 0 {
			logger.Printf("load storage: skip %q: not a node id", name)
			continue
		}
		chests, err := parts.Partition(name).LoadAll()
		if err != nil {
			logger.Printf("load storage: skip node %d: %v", id, err)
			continue
		}
		n, err := model.NewNode(id, origin)
		if err != nil {
			return nil, err
		}
		for _, c := range chests {
			if !spatial.ValidIndex(c.Index) {
				logger.Printf("load storage: node %d: skip chest with index %d", id, c.Index)
				continue
			}
			c.NodeID = id
			if err := c.Normalize(n.Position); err != nil {
				return nil, err
			}
			n.Chests[c.Index] = c
		}
		s.Nodes = append(s.Nodes, n)
	}
	sort.Slice(s.Nodes, func(i, j int) bool { return s.Nodes[i].ID < s.Nodes[j].ID })
	return s, nil
}

// Save writes every chest of every node to its node partition.
func (s *Storage) Save(parts repo.Partitioned[model.Chest]) error {
	for _, n := range s.Nodes {
		if err := parts.Partition(strconv.Itoa(n.ID)).SaveAll(n.Chests[:]); err != nil {
			return fmt.Errorf("save node %d: %w", n.ID, err)
		}
	}
	return nil
}
