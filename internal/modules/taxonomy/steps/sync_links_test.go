package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

func TestSyncLinksRestoresCoverage(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	def := testutil.SeedCategory(t, gdb, "Protein Quality Control", 1, types.OriginSeed)
	auto := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, def.ID, root.ID)
	testutil.SeedEdge(t, gdb, auto.ID, root.ID)

	// Item one lost its category; its stored proposals still resolve.
	itemA := testutil.SeedItem(t, gdb, "LC3B", []types.CategoryProposal{
		{Name: "Vanished Category", Stage: types.StageRefined, Confidence: 0.9},
		{Name: "Autophagy", Stage: types.StageInitial, Confidence: 0.7},
	})
	testutil.SeedAssignment(t, gdb, itemA.ID, uuid.New(), types.MethodOracleRefined)

	// Item two has nothing usable and falls back to the default category.
	itemB := testutil.SeedItem(t, gdb, "UNKNOWN-1", nil)

	out, err := StepSyncItemLinks(context.Background(), deps, SyncLinksInput{})
	if err != nil {
		t.Fatalf("sync links: %v", err)
	}
	if out.StaleRemoved != 1 || out.ItemsUncovered != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Reassigned != 1 || out.DefaultAssigned != 1 {
		t.Fatalf("unexpected relink split: %+v", out)
	}

	byItem := map[uuid.UUID]*types.Assignment{}
	for _, a := range allAssignments(t, deps) {
		byItem[a.ItemID] = a
	}
	gotA := byItem[itemA.ID]
	if gotA == nil || gotA.CategoryID != auto.ID || gotA.Method != types.MethodRepairReassigned {
		t.Fatalf("item A relink wrong: %+v", gotA)
	}
	gotB := byItem[itemB.ID]
	if gotB == nil || gotB.CategoryID != def.ID || gotB.Method != types.MethodFallbackDefault {
		t.Fatalf("item B relink wrong: %+v", gotB)
	}

	// Usage counters follow the relinks.
	snap := reload(t, deps)
	if snap.ByName("Autophagy").UsageCount != 1 || snap.ByName("Protein Quality Control").UsageCount != 1 {
		t.Fatalf("usage counts not recomputed")
	}
}

func TestSyncLinksPrefersRefinedProposals(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	def := testutil.SeedCategory(t, gdb, "Protein Quality Control", 1, types.OriginSeed)
	refined := testutil.SeedCategory(t, gdb, "Aggrephagy", 2, types.OriginOracle)
	initial := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	testutil.SeedEdge(t, gdb, def.ID, root.ID)
	testutil.SeedEdge(t, gdb, initial.ID, root.ID)
	testutil.SeedEdge(t, gdb, refined.ID, initial.ID)

	// The initial-stage proposal has the higher confidence; stage still wins.
	item := testutil.SeedItem(t, gdb, "SQSTM1", []types.CategoryProposal{
		{Name: "Autophagy", Stage: types.StageInitial, Confidence: 0.95},
		{Name: "Aggrephagy", Stage: types.StageRefined, Confidence: 0.6},
	})

	out, err := StepSyncItemLinks(context.Background(), deps, SyncLinksInput{})
	if err != nil {
		t.Fatalf("sync links: %v", err)
	}
	if out.Reassigned != 1 || out.DefaultAssigned != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
	rows := allAssignments(t, deps)
	if len(rows) != 1 || rows[0].ItemID != item.ID || rows[0].CategoryID != refined.ID {
		t.Fatalf("refined proposal not preferred: %+v", rows)
	}
}

func TestSyncLinksLeavesCoveredItemsAlone(t *testing.T) {
	deps, _, gdb := newTestDeps(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	def := testutil.SeedCategory(t, gdb, "Protein Quality Control", 1, types.OriginSeed)
	testutil.SeedEdge(t, gdb, def.ID, root.ID)
	item := testutil.SeedItem(t, gdb, "HSPA8", nil)
	existing := testutil.SeedAssignment(t, gdb, item.ID, def.ID, types.MethodOracleRefined)

	out, err := StepSyncItemLinks(context.Background(), deps, SyncLinksInput{})
	if err != nil {
		t.Fatalf("sync links: %v", err)
	}
	if out.StaleRemoved != 0 || out.ItemsUncovered != 0 || out.Reassigned != 0 || out.DefaultAssigned != 0 {
		t.Fatalf("covered item touched: %+v", out)
	}
	rows := allAssignments(t, deps)
	if len(rows) != 1 || rows[0].ID != existing.ID {
		t.Fatalf("existing assignment replaced: %+v", rows)
	}
}
