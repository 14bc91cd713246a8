package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type SyncLinksInput struct {
	RunID uuid.UUID
}

type SyncLinksOutput struct {
	StaleRemoved    int
	ItemsUncovered  int
	Reassigned      int
	DefaultAssigned int
}

// StepSyncItemLinks restores the coverage invariant: every item holds at
// least one assignment, and no assignment points at a deleted category.
// Uncovered items are relinked from their stored classifier proposals,
// refined stage first, falling back to the default category when no
// proposal resolves.
func StepSyncItemLinks(ctx context.Context, deps StepDeps, in SyncLinksInput) (SyncLinksOutput, error) {
	var out SyncLinksOutput
	if err := deps.validate("sync_links"); err != nil {
		return out, err
	}

	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("sync_links: %w", err)
	}
	dbc := dbctx.Context{Ctx: ctx}

	items, err := deps.Items.GetAll(dbc)
	if err != nil {
		return out, fmt.Errorf("sync_links: load items: %w", err)
	}
	assignments, err := deps.Assignments.GetAll(dbc)
	if err != nil {
		return out, fmt.Errorf("sync_links: load assignments: %w", err)
	}

	itemsByID := make(map[uuid.UUID]*types.Item, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}

	// Drop links to categories or items that no longer exist.
	var stale []uuid.UUID
	covered := map[uuid.UUID]bool{}
	for _, a := range assignments {
		if snap.Category(a.CategoryID) == nil || itemsByID[a.ItemID] == nil {
			stale = append(stale, a.ID)
			continue
		}
		covered[a.ItemID] = true
	}
	if err := deps.Assignments.FullDeleteByIDs(dbc, stale); err != nil {
		return out, fmt.Errorf("sync_links: delete stale: %w", err)
	}
	out.StaleRemoved = len(stale)

	fallback := snap.ByName(deps.Roots.DefaultCategory)
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	for _, it := range items {
		if covered[it.ID] {
			continue
		}
		out.ItemsUncovered++

		target, method := ResolveProposedCategory(snap, it)
		if target == nil {
			if fallback == nil {
				return out, fmt.Errorf("sync_links: default category %q missing", deps.Roots.DefaultCategory)
			}
			target, method = fallback, types.MethodFallbackDefault
		}
		_, err := deps.Assignments.CreateIgnoreDuplicates(dbc, []*types.Assignment{{
			ItemID:     it.ID,
			CategoryID: target.ID,
			Method:     method,
			Confidence: 0.5,
		}})
		if err != nil {
			return out, fmt.Errorf("sync_links: relink %q: %w", it.Name, err)
		}
		if method == types.MethodFallbackDefault {
			out.DefaultAssigned++
		} else {
			out.Reassigned++
		}
		deps.Log.Info("relinked item", "item", it.Name, "category", target.Name, "method", method)
	}

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		_, err := RecomputeUsageCounts(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("sync_links: %w", err)
	}

	deps.publish(ctx, in.RunID, types.RunKindReorganize, "sync_links", "done", map[string]any{
		"stale_removed": out.StaleRemoved, "relinked": out.Reassigned + out.DefaultAssigned,
	})
	return out, nil
}

// ResolveProposedCategory walks the item's stored proposals, refined stage
// before initial and higher confidence first within a stage, and returns
// the first that still names a live category. The verifier shares it when
// synthesizing a missing assignment.
func ResolveProposedCategory(snap *graph.Snapshot, it *types.Item) (*types.Category, string) {
	if len(it.ProposedCategories) == 0 {
		return nil, ""
	}
	var proposals []types.CategoryProposal
	if err := json.Unmarshal(it.ProposedCategories, &proposals); err != nil {
		return nil, ""
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].Stage != proposals[j].Stage {
			return proposals[i].Stage == types.StageRefined
		}
		return proposals[i].Confidence > proposals[j].Confidence
	})
	for _, p := range proposals {
		if c := snap.ByName(p.Name); c != nil {
			return c, types.MethodRepairReassigned
		}
	}
	return nil, ""
}
