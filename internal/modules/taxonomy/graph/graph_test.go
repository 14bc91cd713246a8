package graph

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

func cat(name string) *types.Category {
	return &types.Category{ID: uuid.New(), Name: name}
}

func edge(child, parent *types.Category) *types.CategoryEdge {
	return &types.CategoryEdge{ID: uuid.New(), ChildID: child.ID, ParentID: parent.ID}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"DNA Repair", "dna repair"},
		{"  DNA   Repair  ", "dna repair"},
		{"dna\trepair", "dna repair"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestByNameIsCaseAndSpaceInsensitive(t *testing.T) {
	c := cat("Oxidative Phosphorylation")
	s := Build([]*types.Category{c}, nil)

	if got := s.ByName("  oxidative   PHOSPHORYLATION "); got == nil || got.ID != c.ID {
		t.Fatalf("normalized lookup failed")
	}
	if s.ByName("glycolysis") != nil {
		t.Fatalf("unexpected hit for unknown name")
	}
}

func TestAncestorsFollowsFirstParent(t *testing.T) {
	root := cat("Proteostasis")
	mid := cat("Autophagy")
	leaf := cat("Aggrephagy")
	s := Build(
		[]*types.Category{root, mid, leaf},
		[]*types.CategoryEdge{edge(leaf, mid), edge(mid, root)},
	)

	chain := s.Ancestors(leaf.ID)
	if len(chain) != 2 || chain[0] != mid.ID || chain[1] != root.ID {
		t.Fatalf("unexpected chain: %v", chain)
	}
	if got := s.Ancestors(root.ID); len(got) != 0 {
		t.Fatalf("root should have no ancestors, got %v", got)
	}
}

func TestAncestorsTerminatesOnCycle(t *testing.T) {
	a := cat("A")
	b := cat("B")
	s := Build(
		[]*types.Category{a, b},
		[]*types.CategoryEdge{edge(a, b), edge(b, a)},
	)
	// Must not loop forever.
	if got := s.Ancestors(a.ID); len(got) == 0 {
		t.Fatalf("expected at least one ancestor before the cycle guard")
	}
}

func TestWouldCreateCycle(t *testing.T) {
	root := cat("Proteostasis")
	mid := cat("Autophagy")
	leaf := cat("Mitophagy")
	s := Build(
		[]*types.Category{root, mid, leaf},
		[]*types.CategoryEdge{edge(mid, root), edge(leaf, mid)},
	)

	if !s.WouldCreateCycle(mid.ID, mid.ID) {
		t.Fatalf("self edge must cycle")
	}
	if !s.WouldCreateCycle(root.ID, leaf.ID) {
		t.Fatalf("attaching root under its descendant must cycle")
	}
	if s.WouldCreateCycle(leaf.ID, root.ID) {
		t.Fatalf("leaf under root must not cycle")
	}
}

func TestLevels(t *testing.T) {
	root := cat("Proteostasis")
	mid := cat("Autophagy")
	leaf := cat("Mitophagy")
	orphan := cat("Orphan")
	s := Build(
		[]*types.Category{root, mid, leaf, orphan},
		[]*types.CategoryEdge{edge(mid, root), edge(leaf, mid)},
	)

	levels := s.Levels([]uuid.UUID{root.ID})
	if levels[root.ID] != 0 || levels[mid.ID] != 1 || levels[leaf.ID] != 2 {
		t.Fatalf("unexpected levels: %v", levels)
	}
	if levels[orphan.ID] != -1 {
		t.Fatalf("orphan should be unreachable, got %d", levels[orphan.ID])
	}
}

func TestHasCycle(t *testing.T) {
	a := cat("A")
	b := cat("B")
	c := cat("C")

	acyclic := Build([]*types.Category{a, b, c}, []*types.CategoryEdge{edge(b, a), edge(c, b)})
	if acyclic.HasCycle() {
		t.Fatalf("chain misreported as cyclic")
	}

	cyclic := Build([]*types.Category{a, b, c}, []*types.CategoryEdge{edge(b, a), edge(c, b), edge(a, c)})
	if !cyclic.HasCycle() {
		t.Fatalf("three-node loop not detected")
	}
}

func TestMultiParents(t *testing.T) {
	a := cat("A")
	b := cat("B")
	child := cat("Child")
	s := Build(
		[]*types.Category{a, b, child},
		[]*types.CategoryEdge{edge(child, a), edge(child, b)},
	)

	multi := s.MultiParents()
	if len(multi) != 1 {
		t.Fatalf("expected one multi-parent child, got %d", len(multi))
	}
	if got := multi[child.ID]; len(got) != 2 {
		t.Fatalf("expected two candidate parents, got %v", got)
	}
}
