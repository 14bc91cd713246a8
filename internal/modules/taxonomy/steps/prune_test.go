package steps

import (
	"context"
	"testing"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

func TestPruneDeletesWorthlessUnreachables(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	reachable := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, reachable.ID, root.ID)
	testutil.SeedCategory(t, gdb, "Stray Draft", -1, types.OriginOracle)

	out, err := StepPruneSafely(context.Background(), deps, PruneInput{})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if out.Pruned != 1 || out.Rescued != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
	snap := reload(t, deps)
	if snap.ByName("Stray Draft") != nil {
		t.Fatalf("worthless unreachable survived")
	}
	if snap.ByName("Autophagy") == nil || snap.ByName("Proteostasis") == nil {
		t.Fatalf("reachable categories deleted")
	}
}

func TestPruneRescuesUnreachableWithValue(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	keepTop := testutil.SeedCategory(t, gdb, "Orphan Archive", -1, types.OriginOracle)
	keepChild := testutil.SeedCategory(t, gdb, "Orphan Archive Detail", -1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, keepChild.ID, keepTop.ID)
	item := testutil.SeedItem(t, gdb, "P62", nil)
	testutil.SeedAssignment(t, gdb, item.ID, keepChild.ID, types.MethodOracleInitial)

	out, err := StepPruneSafely(context.Background(), deps, PruneInput{})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	// Only the parentless top of the chain gets a rescue edge; the child
	// reconnects through it.
	if out.Pruned != 0 || out.Rescued != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}

	snap := reload(t, deps)
	top := snap.ByName("Orphan Archive")
	child := snap.ByName("Orphan Archive Detail")
	if top == nil || child == nil {
		t.Fatalf("valuable categories deleted")
	}
	edges := snap.EdgesOf(top.ID)
	if len(edges) != 1 || edges[0].ParentID != root.ID {
		t.Fatalf("rescue edge wrong: %+v", edges)
	}
	if edges[0].Confidence != 0.2 {
		t.Fatalf("rescue confidence = %v", edges[0].Confidence)
	}
	if top.Depth != 1 || child.Depth != 2 {
		t.Fatalf("depths after rescue = %d/%d", top.Depth, child.Depth)
	}
	if child.UsageCount != 1 {
		t.Fatalf("usage count = %d", child.UsageCount)
	}
}

func TestPruneNeverTouchesRoots(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	// A root with no edges and no assignments still stays.
	testutil.SeedCategory(t, gdb, "Cytoskeletal Dynamics", 0, types.OriginSeed)

	out, err := StepPruneSafely(context.Background(), deps, PruneInput{})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if out.Pruned != 0 || out.Rescued != 0 {
		t.Fatalf("root touched: %+v", out)
	}
	if reload(t, deps).ByName("Cytoskeletal Dynamics") == nil {
		t.Fatalf("root deleted")
	}
}
