// Package skills maintains the skill forest shared by every colony.
//
// Global skills form one tree rooted at the network's root skill. Each colony owns a
// separate local tree whose nodes are its domains' skills. The two namespaces never
// mix: a skill's parent always has the same Global flag as the skill itself.
//
// A skill's full ancestor chain and ancestor set are built from its parent at
// creation, so ancestor queries are index or set lookups and never walk the tree.
package skills

import (
	"sync"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

// ID identifies a skill. IDs are assigned from 1 and never reused; 0 means "none".
type ID uint64

// None is the zero skill id returned by out-of-range lookups.
const None ID = 0

// Skill is a node in the skill forest.
type Skill struct {
	ID     ID   `json:"id"`
	Global bool `json:"global"`
	// Parents is the ancestor chain, nearest first.
	Parents []ID `json:"parents"`
	// Children lists direct children in insertion order.
	Children []ID `json:"children"`

	ancestors map[ID]struct{}
}

// Graph is an append-only skill forest. It is safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	skills []*Skill // skills[i] has ID i+1
}

func NewGraph() *Graph {
	return &Graph{skills: make([]*Skill, 0, 16)}
}

// AddRoot creates a skill with no parent. The network uses it once for the global
// root and once per colony for the colony's local root.
func (g *Graph) AddRoot(global bool) ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.insert(nil, global)
}

// Add creates a child of parent in parent's namespace.
func (g *Graph) Add(parent ID, global bool) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.checkParent(parent, global)
	if err != nil {
		return None, err
	}
	return g.insert(p, global), nil
}

// CheckAdd reports whether Add(parent, global) would succeed without changing the graph.
func (g *Graph) CheckAdd(parent ID, global bool) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := g.checkParent(parent, global)
	return err
}

func (g *Graph) checkParent(parent ID, global bool) (*Skill, error) {
	p := g.lookup(parent)
	if p == nil {
		return nil, colonyerr.New(colonyerr.ErrInvalidParent, "parent skill %d does not exist", parent)
	}
	if p.Global != global {
		return nil, colonyerr.New(colonyerr.ErrNamespaceMismatch,
			"parent skill %d global=%t, requested global=%t", parent, p.Global, global)
	}
	return p, nil
}

func (g *Graph) insert(parent *Skill, global bool) ID {
	id := ID(len(g.skills) + 1)
	s := &Skill{ID: id, Global: global}
	if parent != nil {
		s.Parents = make([]ID, 0, len(parent.Parents)+1)
		s.Parents = append(s.Parents, parent.ID)
		s.Parents = append(s.Parents, parent.Parents...)
		s.ancestors = make(map[ID]struct{}, len(s.Parents))
		for _, a := range s.Parents {
			s.ancestors[a] = struct{}{}
		}
		parent.Children = append(parent.Children, id)
	}
	g.skills = append(g.skills, s)
	return id
}

func (g *Graph) lookup(id ID) *Skill {
	if id == None || uint64(id) > uint64(len(g.skills)) {
		return nil
	}
	return g.skills[id-1]
}

// Get returns a copy of the skill.
func (g *Graph) Get(id ID) (Skill, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	if s == nil {
		return Skill{}, false
	}
	return Skill{
		ID:       s.ID,
		Global:   s.Global,
		Parents:  append([]ID(nil), s.Parents...),
		Children: append([]ID(nil), s.Children...),
	}, true
}

// Exists reports whether id names a skill.
func (g *Graph) Exists(id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookup(id) != nil
}

// IsGlobal reports whether id names a global skill. Unknown ids are not global.
func (g *Graph) IsGlobal(id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	return s != nil && s.Global
}

// ParentAt returns the index-th ancestor of id (0 = direct parent), or None.
func (g *Graph) ParentAt(id ID, index int) ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	if s == nil || index < 0 || index >= len(s.Parents) {
		return None
	}
	return s.Parents[index]
}

// ChildAt returns the index-th direct child of id, or None.
func (g *Graph) ChildAt(id ID, index int) ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	if s == nil || index < 0 || index >= len(s.Children) {
		return None
	}
	return s.Children[index]
}

// ParentCount returns the depth of id below its root.
func (g *Graph) ParentCount(id ID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s := g.lookup(id); s != nil {
		return len(s.Parents)
	}
	return 0
}

// ChildCount returns the number of direct children of id.
func (g *Graph) ChildCount(id ID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s := g.lookup(id); s != nil {
		return len(s.Children)
	}
	return 0
}

// IsAncestor reports whether ancestor appears in id's parent chain.
func (g *Graph) IsAncestor(ancestor, id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	if s == nil {
		return false
	}
	_, ok := s.ancestors[ancestor]
	return ok
}

// Root returns the root of id's tree, or None for unknown ids.
func (g *Graph) Root(id ID) ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.lookup(id)
	if s == nil {
		return None
	}
	if len(s.Parents) == 0 {
		return s.ID
	}
	return s.Parents[len(s.Parents)-1]
}

// Count returns the number of skills created so far.
func (g *Graph) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.skills)
}
