package steps

import (
	"context"
	"testing"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
)

func TestDedupMergesConfirmedDuplicates(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	keep := testutil.SeedCategory(t, gdb, "DNA Repair", 1, types.OriginOracle)
	drop := testutil.SeedCategory(t, gdb, "DNA Repairs", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, keep.ID, root.ID)
	testutil.SeedEdge(t, gdb, drop.ID, root.ID)
	item := testutil.SeedItem(t, gdb, "RAD51", nil)
	testutil.SeedAssignment(t, gdb, item.ID, drop.ID, types.MethodOracleInitial)

	orc.Merges = []oracle.MergeDecision{{
		Action:        "merge",
		CanonicalName: "DNA Repair",
		NameA:         "DNA Repair",
		NameB:         "DNA Repairs",
	}}

	out, err := StepDeduplicate(context.Background(), deps, DedupInput{})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if out.PairsConsidered != 1 || out.Merged != 1 || out.Skipped != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}

	snap := reload(t, deps)
	if snap.ByName("DNA Repairs") != nil {
		t.Fatalf("dropped category survived")
	}
	kept := snap.ByName("DNA Repair")
	if kept == nil || kept.ID != keep.ID {
		t.Fatalf("canonical category missing")
	}

	// The item link migrated with the merge and the counter follows.
	rows := allAssignments(t, deps)
	if len(rows) != 1 || rows[0].CategoryID != keep.ID {
		t.Fatalf("assignment not migrated: %+v", rows)
	}
	if kept.UsageCount != 1 {
		t.Fatalf("usage count = %d", kept.UsageCount)
	}
}

func TestDedupRootAlwaysSurvives(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	testutil.SeedCategory(t, gdb, "Proteostasis Network", -1, types.OriginOracle)

	// The oracle prefers the non-root name; direction must flip anyway.
	orc.Merges = []oracle.MergeDecision{{
		Action:        "merge",
		CanonicalName: "Proteostasis Network",
		NameA:         "Proteostasis",
		NameB:         "Proteostasis Network",
	}}

	out, err := StepDeduplicate(context.Background(), deps, DedupInput{})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if out.Merged != 1 {
		t.Fatalf("merge did not apply: %+v", out)
	}
	snap := reload(t, deps)
	if snap.ByName("Proteostasis") == nil {
		t.Fatalf("fixed root was dropped")
	}
	if snap.ByName("Proteostasis Network") != nil {
		t.Fatalf("non-root duplicate survived")
	}
}

func TestDedupTransfersParentLink(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	keep := testutil.SeedCategory(t, gdb, "Chaperone Folding", -1, types.OriginOracle)
	drop := testutil.SeedCategory(t, gdb, "Chaperone Foldings", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, drop.ID, root.ID)
	child := testutil.SeedCategory(t, gdb, "HSP90 Clients", 2, types.OriginOracle)
	testutil.SeedEdge(t, gdb, child.ID, drop.ID)

	orc.Merges = []oracle.MergeDecision{{
		Action:        "merge",
		CanonicalName: "Chaperone Folding",
		NameA:         "Chaperone Folding",
		NameB:         "Chaperone Foldings",
	}}

	out, err := StepDeduplicate(context.Background(), deps, DedupInput{})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if out.Merged != 1 {
		t.Fatalf("merge did not apply: %+v", out)
	}

	// Keep inherits both the dropped category's parent and its child.
	snap := reload(t, deps)
	if ps := snap.ParentsOf(keep.ID); len(ps) != 1 || ps[0] != root.ID {
		t.Fatalf("parent link not transferred: %v", ps)
	}
	if ps := snap.ParentsOf(child.ID); len(ps) != 1 || ps[0] != keep.ID {
		t.Fatalf("child not reparented: %v", ps)
	}
	if got := snap.ByName("Chaperone Folding"); got.Depth != 1 {
		t.Fatalf("keep depth = %d", got.Depth)
	}
}

func TestDedupShrinksBatchesOnTruncation(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	names := []string{"Lipid Transport", "Lipid Transport Proteins", "Lipid Transporter", "Lipid Transporters"}
	for _, n := range names {
		testutil.SeedCategory(t, gdb, n, -1, types.OriginOracle)
	}
	// Containment yields four candidate pairs, all resolved as distinct.
	orc.Merges = []oracle.MergeDecision{
		{Action: "keep", NameA: "Lipid Transport", NameB: "Lipid Transport Proteins"},
		{Action: "keep", NameA: "Lipid Transport", NameB: "Lipid Transporter"},
		{Action: "keep", NameA: "Lipid Transport", NameB: "Lipid Transporters"},
		{Action: "keep", NameA: "Lipid Transporter", NameB: "Lipid Transporters"},
	}
	orc.TruncateMergeCallsAbove = 2

	out, err := StepDeduplicate(context.Background(), deps, DedupInput{BatchSize: 5})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if out.PairsConsidered != 4 {
		t.Fatalf("pairs = %d", out.PairsConsidered)
	}
	// First window: 4 -> truncated -> 3 -> truncated -> 1 -> ok, then the
	// window grows back through 2 and finishes.
	if out.TruncatedRetries != 2 {
		t.Fatalf("truncated retries = %d", out.TruncatedRetries)
	}
	if out.OracleBatches != 5 {
		t.Fatalf("oracle batches = %d", out.OracleBatches)
	}
	if out.Kept != 4 || out.Merged != 0 {
		t.Fatalf("unexpected decisions: %+v", out)
	}
	if len(reload(t, deps).All()) != 4 {
		t.Fatalf("keep decisions must not delete anything")
	}
}

func TestDedupSkipsConsumedParticipants(t *testing.T) {
	deps, orc, gdb := newTestDeps(t)
	testutil.SeedCategory(t, gdb, "Ion Channel", -1, types.OriginOracle)
	testutil.SeedCategory(t, gdb, "Ion Channels", -1, types.OriginOracle)
	testutil.SeedCategory(t, gdb, "Ion Channels Group", -1, types.OriginOracle)

	// Both decisions consume "Ion Channels"; the second must be skipped.
	orc.Merges = []oracle.MergeDecision{
		{Action: "merge", CanonicalName: "Ion Channel", NameA: "Ion Channel", NameB: "Ion Channels"},
		{Action: "merge", CanonicalName: "Ion Channels", NameA: "Ion Channels", NameB: "Ion Channels Group"},
	}

	out, err := StepDeduplicate(context.Background(), deps, DedupInput{})
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if out.Merged != 1 || out.Skipped < 1 {
		t.Fatalf("chained merge not skipped: %+v", out)
	}
	snap := reload(t, deps)
	if snap.ByName("Ion Channel") == nil || snap.ByName("Ion Channels Group") == nil {
		t.Fatalf("wrong categories consumed")
	}
	if snap.ByName("Ion Channels") != nil {
		t.Fatalf("merged duplicate survived")
	}
}
