package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
)

func TestClimbBuildsChainToRoot(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	testutil.SeedCategory(t, gdb, "Mitophagy", -1, types.OriginOracle)
	orc.Parents["mitophagy"] = oracle.ParentAnswer{Parent: "Autophagy", Reasoning: "selective autophagy of mitochondria"}
	orc.Parents["autophagy"] = oracle.ParentAnswer{Parent: "Proteostasis"}

	out, err := StepClimbHierarchy(context.Background(), deps, ClimbInput{})
	if err != nil {
		t.Fatalf("climb: %v", err)
	}
	if out.LevelsRun != 2 || out.EdgesCreated != 2 || out.Created != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.ForceAttached != 0 || out.Deferred != 0 {
		t.Fatalf("clean chain should need no fallbacks: %+v", out)
	}

	// The chain lands on the fixed root and depths are recomputed.
	snap := reload(t, deps)
	mito := snap.ByName("Mitophagy")
	auto := snap.ByName("Autophagy")
	root := snap.ByName("Proteostasis")
	if mito == nil || auto == nil || root == nil {
		t.Fatalf("chain categories missing")
	}
	if ps := snap.ParentsOf(mito.ID); len(ps) != 1 || ps[0] != auto.ID {
		t.Fatalf("mitophagy parents = %v", ps)
	}
	if ps := snap.ParentsOf(auto.ID); len(ps) != 1 || ps[0] != root.ID {
		t.Fatalf("autophagy parents = %v", ps)
	}
	if mito.Depth != 2 || auto.Depth != 1 || root.Depth != 0 {
		t.Fatalf("depths = %d/%d/%d", mito.Depth, auto.Depth, root.Depth)
	}
	if auto.Origin != types.OriginOracle {
		t.Fatalf("created parent origin = %q", auto.Origin)
	}
}

func TestClimbSeedsRootsAndDefaultCategory(t *testing.T) {
	deps, _, _ := newTestDeps(t)

	if _, err := StepClimbHierarchy(context.Background(), deps, ClimbInput{}); err != nil {
		t.Fatalf("climb: %v", err)
	}

	snap := reload(t, deps)
	for _, name := range deps.Roots.Roots {
		root := snap.ByName(name)
		if root == nil {
			t.Fatalf("root %q not seeded", name)
		}
		if snap.HasParent(root.ID) {
			t.Fatalf("root %q gained a parent", name)
		}
		if root.Origin != types.OriginSeed {
			t.Fatalf("root %q origin = %q", name, root.Origin)
		}
	}
	def := snap.ByName(deps.Roots.DefaultCategory)
	fallback := snap.ByName(deps.Roots.FallbackRoot)
	if def == nil || fallback == nil {
		t.Fatalf("default category or fallback root missing")
	}
	if ps := snap.ParentsOf(def.ID); len(ps) != 1 || ps[0] != fallback.ID {
		t.Fatalf("default category parents = %v", ps)
	}
}

func TestClimbForceAttachesAfterOracleFailures(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	testutil.SeedCategory(t, gdb, "MAPK Kinase Cascade", -1, types.OriginOracle)
	orc.Fail["mapk kinase cascade"] = errors.New("model unavailable")

	out, err := StepClimbHierarchy(context.Background(), deps, ClimbInput{})
	if err != nil {
		t.Fatalf("climb: %v", err)
	}
	if out.LevelsRun != maxClimbLevels || out.Deferred != maxClimbLevels {
		t.Fatalf("expected deferral on every level: %+v", out)
	}
	if out.ForceAttached != 1 {
		t.Fatalf("force attached = %d", out.ForceAttached)
	}

	// The keyword map routes it under Signal Transduction rather than the
	// blind fallback root.
	snap := reload(t, deps)
	child := snap.ByName("MAPK Kinase Cascade")
	root := snap.ByName("Signal Transduction")
	edges := snap.EdgesOf(child.ID)
	if len(edges) != 1 || edges[0].ParentID != root.ID {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	if edges[0].Confidence != 0.1 {
		t.Fatalf("force-attach confidence = %v", edges[0].Confidence)
	}
}

func TestClimbDefersEmptyParentAnswers(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	// No scripted answer: the oracle returns an empty parent without error.
	testutil.SeedCategory(t, gdb, "Unscripted Pathway", -1, types.OriginOracle)

	out, err := StepClimbHierarchy(context.Background(), deps, ClimbInput{})
	if err != nil {
		t.Fatalf("climb: %v", err)
	}
	if out.Deferred != maxClimbLevels || out.Created != 0 || out.ForceAttached != 1 {
		t.Fatalf("empty answer should defer then force attach: %+v", out)
	}
	snap := reload(t, deps)
	for _, c := range snap.All() {
		if c.Name == "" {
			t.Fatalf("empty-named category created")
		}
	}
	child := snap.ByName("Unscripted Pathway")
	fallback := snap.ByName(deps.Roots.FallbackRoot)
	if ps := snap.ParentsOf(child.ID); len(ps) != 1 || ps[0] != fallback.ID {
		t.Fatalf("expected fallback-root attachment, parents = %v", ps)
	}
}

func TestClimbDefersSelfParentProposals(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	testutil.SeedCategory(t, gdb, "Orphan Pathway", -1, types.OriginOracle)
	orc.Parents["orphan pathway"] = oracle.ParentAnswer{Parent: "Orphan Pathway"}

	out, err := StepClimbHierarchy(context.Background(), deps, ClimbInput{})
	if err != nil {
		t.Fatalf("climb: %v", err)
	}
	if out.Deferred != maxClimbLevels || out.ForceAttached != 1 || out.Created != 0 {
		t.Fatalf("self-parent should defer then force attach: %+v", out)
	}
	snap := reload(t, deps)
	child := snap.ByName("Orphan Pathway")
	fallback := snap.ByName(deps.Roots.FallbackRoot)
	if ps := snap.ParentsOf(child.ID); len(ps) != 1 || ps[0] != fallback.ID {
		t.Fatalf("expected fallback-root attachment, parents = %v", ps)
	}
}
