package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type ReorganizeInput struct {
	RunID uuid.UUID

	// Dedup tuning; zero values take the phase defaults.
	SimilarityThreshold float64
	DedupBatchSize      int
}

type ReorganizeOutput struct {
	Dedup  DedupOutput
	Tree   EnforceTreeOutput
	Repair RepairHierarchyOutput
	Sync   SyncLinksOutput
	Prune  PruneOutput

	// Degraded names phases that errored or whose post-condition still does
	// not hold; the run completes regardless so later phases can limit the
	// damage.
	Degraded []string
}

// RunReorganizer runs the five reorganization phases in dependency order:
// duplicates are merged before the tree shape is enforced, the shape is
// fixed before repairs that rely on depth, items are relinked after every
// structural change, and pruning goes last so it sees final reachability.
func RunReorganizer(ctx context.Context, deps StepDeps, in ReorganizeInput) (ReorganizeOutput, error) {
	var out ReorganizeOutput
	if err := deps.validate("reorganize"); err != nil {
		return out, err
	}

	degrade := func(phase string, err error) {
		out.Degraded = append(out.Degraded, phase)
		deps.Log.Error("phase degraded", "phase", phase, "error", err)
		deps.publish(ctx, in.RunID, types.RunKindReorganize, phase, "degraded", map[string]any{
			"error": err.Error(),
		})
	}

	markRun(ctx, deps, in.RunID, map[string]any{"phase": "dedup"})
	dedup, err := StepDeduplicate(ctx, deps, DedupInput{
		RunID:               in.RunID,
		SimilarityThreshold: in.SimilarityThreshold,
		BatchSize:           in.DedupBatchSize,
	})
	out.Dedup = dedup
	if err != nil {
		degrade("dedup", err)
	} else if err := checkNoDuplicateNames(ctx, deps); err != nil {
		degrade("dedup", err)
	}

	markRun(ctx, deps, in.RunID, map[string]any{"phase": "tree_enforce"})
	tree, err := StepEnforceTree(ctx, deps, EnforceTreeInput{RunID: in.RunID})
	out.Tree = tree
	if err != nil {
		degrade("tree_enforce", err)
	} else if err := checkSingleParents(ctx, deps); err != nil {
		degrade("tree_enforce", err)
	}

	markRun(ctx, deps, in.RunID, map[string]any{"phase": "repair_hierarchy"})
	repair, err := StepRepairHierarchy(ctx, deps, RepairHierarchyInput{RunID: in.RunID})
	out.Repair = repair
	if err != nil {
		degrade("repair_hierarchy", err)
	} else if err := checkNoDanglingEdges(ctx, deps); err != nil {
		degrade("repair_hierarchy", err)
	}

	markRun(ctx, deps, in.RunID, map[string]any{"phase": "sync_links"})
	sync, err := StepSyncItemLinks(ctx, deps, SyncLinksInput{RunID: in.RunID})
	out.Sync = sync
	if err != nil {
		degrade("sync_links", err)
	} else if err := checkItemCoverage(ctx, deps); err != nil {
		degrade("sync_links", err)
	}

	markRun(ctx, deps, in.RunID, map[string]any{"phase": "prune"})
	prune, err := StepPruneSafely(ctx, deps, PruneInput{RunID: in.RunID})
	out.Prune = prune
	if err != nil {
		degrade("prune", err)
	}

	return out, nil
}

func checkNoDuplicateNames(ctx context.Context, deps StepDeps) error {
	_, cats, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	seen := map[string]string{}
	for _, c := range cats {
		key := graph.NormalizeName(c.Name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("duplicate names survive merge: %q and %q", prev, c.Name)
		}
		seen[key] = c.Name
	}
	return nil
}

func checkSingleParents(ctx context.Context, deps StepDeps) error {
	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	if multi := snap.MultiParents(); len(multi) > 0 {
		return fmt.Errorf("%d categories still hold multiple parents", len(multi))
	}
	if snap.HasCycle() {
		return fmt.Errorf("edge set still cyclic")
	}
	return nil
}

func checkNoDanglingEdges(ctx context.Context, deps StepDeps) error {
	snap, _, edges, err := deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if snap.Category(e.ParentID) == nil || snap.Category(e.ChildID) == nil {
			return fmt.Errorf("dangling edge %s survives repair", e.ID)
		}
	}
	return nil
}

func checkItemCoverage(ctx context.Context, deps StepDeps) error {
	dbc := dbctx.Context{Ctx: ctx}
	items, err := deps.Items.GetAll(dbc)
	if err != nil {
		return err
	}
	assignments, err := deps.Assignments.GetAll(dbc)
	if err != nil {
		return err
	}
	covered := map[uuid.UUID]bool{}
	for _, a := range assignments {
		covered[a.ItemID] = true
	}
	for _, it := range items {
		if !covered[it.ID] {
			return fmt.Errorf("item %q left without assignments", it.Name)
		}
	}
	return nil
}
