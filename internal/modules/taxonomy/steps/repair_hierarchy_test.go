package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

func TestRepairRemovesDanglingEdgesAndReattaches(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	child := testutil.SeedCategory(t, gdb, "Ubiquitin Ligase Complex", -1, types.OriginOracle)
	// The parent id points at nothing; the edge is stale.
	testutil.SeedEdge(t, gdb, child.ID, uuid.New())
	orc.Roots["ubiquitin ligase complex"] = "Proteostasis"

	out, err := StepRepairHierarchy(context.Background(), deps, RepairHierarchyInput{})
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out.DanglingEdgesRemoved != 1 || out.Reattached != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}

	snap := reload(t, deps)
	edges := snap.EdgesOf(child.ID)
	if len(edges) != 1 || edges[0].ParentID != root.ID {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	if edges[0].Confidence != 0.4 {
		t.Fatalf("reattach confidence = %v", edges[0].Confidence)
	}
}

func TestRepairInsertsIntermediateForShallowChild(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	child := testutil.SeedCategory(t, gdb, "HSP70 Substrate Binding", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, child.ID, root.ID)
	orc.Intermediates["hsp70 substrate binding"] = "Protein Folding"

	out, err := StepRepairHierarchy(context.Background(), deps, RepairHierarchyInput{})
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out.ShallowExamined != 1 || out.IntermediatesCreated != 1 || out.Reparented != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}

	snap := reload(t, deps)
	mid := snap.ByName("Protein Folding")
	if mid == nil {
		t.Fatalf("intermediate not created")
	}
	if ps := snap.ParentsOf(child.ID); len(ps) != 1 || ps[0] != mid.ID {
		t.Fatalf("child not reparented: %v", ps)
	}
	if ps := snap.ParentsOf(mid.ID); len(ps) != 1 || ps[0] != root.ID {
		t.Fatalf("intermediate not under root: %v", ps)
	}
	if got := snap.ByName("HSP70 Substrate Binding"); got.Depth != 2 {
		t.Fatalf("child depth = %d", got.Depth)
	}
}

func TestRepairLeavesSanctionedLevel1Alone(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	child := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, child.ID, root.ID)

	out, err := StepRepairHierarchy(context.Background(), deps, RepairHierarchyInput{})
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out.ShallowExamined != 0 || out.Reparented != 0 {
		t.Fatalf("sanctioned level-1 should be untouched: %+v", out)
	}
	snap := reload(t, deps)
	if ps := snap.ParentsOf(child.ID); len(ps) != 1 || ps[0] != root.ID {
		t.Fatalf("edge changed: %v", ps)
	}
}

func TestRepairSkipsEmptyIntermediateSuggestion(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	child := testutil.SeedCategory(t, gdb, "Unclassified Subsystem", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, child.ID, root.ID)
	// No scripted suggestion: the child stays where it is.

	out, err := StepRepairHierarchy(context.Background(), deps, RepairHierarchyInput{})
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if out.ShallowExamined != 1 || out.IntermediatesCreated != 0 || out.Reparented != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
}
