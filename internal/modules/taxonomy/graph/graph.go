package graph

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

// Snapshot is an in-memory view of the category forest used for planning.
// It is read-only: phases plan against a snapshot, validate, then commit to
// the store and rebuild.
type Snapshot struct {
	byID   map[uuid.UUID]*types.Category
	byName map[string]*types.Category

	// parents maps child -> parent ids (more than one means a tree violation).
	parents  map[uuid.UUID][]uuid.UUID
	children map[uuid.UUID][]uuid.UUID

	edgesByChild map[uuid.UUID][]*types.CategoryEdge
}

func Build(cats []*types.Category, edges []*types.CategoryEdge) *Snapshot {
	s := &Snapshot{
		byID:         make(map[uuid.UUID]*types.Category, len(cats)),
		byName:       make(map[string]*types.Category, len(cats)),
		parents:      make(map[uuid.UUID][]uuid.UUID),
		children:     make(map[uuid.UUID][]uuid.UUID),
		edgesByChild: make(map[uuid.UUID][]*types.CategoryEdge),
	}
	for _, c := range cats {
		s.byID[c.ID] = c
		s.byName[NormalizeName(c.Name)] = c
	}
	for _, e := range edges {
		s.parents[e.ChildID] = append(s.parents[e.ChildID], e.ParentID)
		s.children[e.ParentID] = append(s.children[e.ParentID], e.ChildID)
		s.edgesByChild[e.ChildID] = append(s.edgesByChild[e.ChildID], e)
	}
	return s
}

// NormalizeName is the canonical key form used for name lookups and cache
// keys: trimmed, lowercased, inner whitespace collapsed.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}

func (s *Snapshot) Category(id uuid.UUID) *types.Category { return s.byID[id] }

func (s *Snapshot) ByName(name string) *types.Category {
	return s.byName[NormalizeName(name)]
}

func (s *Snapshot) All() []*types.Category {
	out := make([]*types.Category, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) ParentsOf(id uuid.UUID) []uuid.UUID  { return s.parents[id] }
func (s *Snapshot) ChildrenOf(id uuid.UUID) []uuid.UUID { return s.children[id] }

func (s *Snapshot) EdgesOf(child uuid.UUID) []*types.CategoryEdge {
	return s.edgesByChild[child]
}

// HasParent reports whether the category has at least one outgoing edge.
func (s *Snapshot) HasParent(id uuid.UUID) bool { return len(s.parents[id]) > 0 }

// Ancestors walks first-parent links from id upward and returns the chain
// (nearest first). A visited guard terminates even on a broken cyclic graph.
func (s *Snapshot) Ancestors(id uuid.UUID) []uuid.UUID {
	var chain []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	cur := id
	for {
		ps := s.parents[cur]
		if len(ps) == 0 {
			return chain
		}
		p := ps[0]
		if seen[p] {
			return chain
		}
		seen[p] = true
		chain = append(chain, p)
		cur = p
	}
}

// WouldCreateCycle reports whether adding child -> parent would close a
// loop: the parent equals the child, or the child is already an ancestor of
// the proposed parent along any parent link.
func (s *Snapshot) WouldCreateCycle(childID, parentID uuid.UUID) bool {
	if childID == parentID {
		return true
	}
	seen := map[uuid.UUID]bool{}
	stack := []uuid.UUID{parentID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == childID {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, s.parents[cur]...)
	}
	return false
}

// MultiParents returns every child with more than one parent edge, with its
// candidate parent ids.
func (s *Snapshot) MultiParents() map[uuid.UUID][]uuid.UUID {
	out := map[uuid.UUID][]uuid.UUID{}
	for child, ps := range s.parents {
		if len(ps) > 1 {
			out[child] = ps
		}
	}
	return out
}

// Levels runs a breadth-first traversal down from the given roots and
// returns the level of every category; categories unreachable from any root
// get -1.
func (s *Snapshot) Levels(rootIDs []uuid.UUID) map[uuid.UUID]int {
	levels := make(map[uuid.UUID]int, len(s.byID))
	for id := range s.byID {
		levels[id] = -1
	}
	queue := make([]uuid.UUID, 0, len(rootIDs))
	for _, r := range rootIDs {
		if _, ok := s.byID[r]; ok {
			levels[r] = 0
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ch := range s.children[cur] {
			if levels[ch] != -1 {
				continue
			}
			levels[ch] = levels[cur] + 1
			queue = append(queue, ch)
		}
	}
	return levels
}

// HasCycle runs a three-color depth-first check over child -> parent links.
func (s *Snapshot) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[uuid.UUID]int{}

	var visit func(id uuid.UUID) bool
	visit = func(id uuid.UUID) bool {
		color[id] = gray
		for _, p := range s.parents[id] {
			switch color[p] {
			case gray:
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range s.byID {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}
