package verify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

// autoRepair fixes every repairable finding inside the given transaction
// and returns the list it acted on. Repairs run in dependency order: broken
// references go first, then structural reattachment, then the derived
// columns are recomputed once at the end.
func (v *Verifier) autoRepair(ctx context.Context, tx *gorm.DB, findings []Finding) ([]Finding, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	var staleEdges, staleAssignments []uuid.UUID
	var repaired []Finding
	needRecompute := false

	for _, f := range findings {
		if !f.Repairable() {
			continue
		}
		switch f.Check {
		case "edge_refs":
			if id, err := uuid.Parse(f.Subject); err == nil {
				staleEdges = append(staleEdges, id)
				repaired = append(repaired, f)
			}
		case "assignment_refs":
			if id, err := uuid.Parse(f.Subject); err == nil {
				staleAssignments = append(staleAssignments, id)
				repaired = append(repaired, f)
			}
		case "depth", "ancestor_path", "usage_count":
			needRecompute = true
			repaired = append(repaired, f)
		}
	}

	if err := v.deps.Edges.FullDeleteByIDs(dbc, staleEdges); err != nil {
		return nil, fmt.Errorf("delete stale edges: %w", err)
	}
	if err := v.deps.Assignments.FullDeleteByIDs(dbc, staleAssignments); err != nil {
		return nil, fmt.Errorf("delete stale assignments: %w", err)
	}

	// Reload inside the transaction so structural repairs see the deletions.
	cats, err := v.deps.Categories.GetAll(dbc)
	if err != nil {
		return nil, err
	}
	edges, err := v.deps.Edges.GetAll(dbc)
	if err != nil {
		return nil, err
	}
	snap := graph.Build(cats, edges)

	for _, f := range findings {
		if !f.Repairable() {
			continue
		}
		switch f.Check {
		case "default_category_present":
			if done, err := v.repairDefaultCategory(dbc, snap); err != nil {
				return nil, err
			} else if done {
				needRecompute = true
				repaired = append(repaired, f)
			}
		case "reachability":
			id, err := uuid.Parse(f.Subject)
			if err != nil {
				continue
			}
			if done, err := v.repairUnreachable(dbc, snap, id); err != nil {
				return nil, err
			} else if done {
				needRecompute = true
				repaired = append(repaired, f)
			}
		case "item_coverage":
			id, err := uuid.Parse(f.Subject)
			if err != nil {
				continue
			}
			if done, err := v.repairUncoveredItem(dbc, snap, id); err != nil {
				return nil, err
			} else if done {
				needRecompute = true
				repaired = append(repaired, f)
			}
		}
	}

	if needRecompute {
		if _, err := steps.RecomputeDerived(ctx, v.deps, tx); err != nil {
			return nil, err
		}
		if _, err := steps.RecomputeUsageCounts(ctx, v.deps, tx); err != nil {
			return nil, err
		}
	}
	return repaired, nil
}

func (v *Verifier) repairDefaultCategory(dbc dbctx.Context, snap *graph.Snapshot) (bool, error) {
	if snap.ByName(v.deps.Roots.DefaultCategory) != nil {
		return false, nil
	}
	fallback := snap.ByName(v.deps.Roots.FallbackRoot)
	if fallback == nil {
		// The missing root is a critical finding; leave it for the verdict.
		return false, nil
	}
	created, err := v.deps.Categories.Create(dbc, []*types.Category{{
		Name:   v.deps.Roots.DefaultCategory,
		Depth:  1,
		IsLeaf: true,
		Origin: types.OriginSeed,
	}})
	if err != nil {
		return false, fmt.Errorf("recreate default category: %w", err)
	}
	_, err = v.deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
		ChildID:    created[0].ID,
		ParentID:   fallback.ID,
		Kind:       types.EdgeIsA,
		Confidence: 1,
		Provenance: verifyProvenance("recreated default category"),
	}})
	if err != nil {
		return false, fmt.Errorf("attach default category: %w", err)
	}
	return true, nil
}

func (v *Verifier) repairUnreachable(dbc dbctx.Context, snap *graph.Snapshot, id uuid.UUID) (bool, error) {
	c := snap.Category(id)
	if c == nil || snap.HasParent(id) {
		return false, nil
	}
	root := snap.ByName(v.deps.Roots.KeywordRoot(c.Name))
	if root == nil {
		root = snap.ByName(v.deps.Roots.FallbackRoot)
	}
	if root == nil {
		return false, nil
	}
	_, err := v.deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
		ChildID:    c.ID,
		ParentID:   root.ID,
		Kind:       types.EdgeIsA,
		Confidence: 0.2,
		Provenance: verifyProvenance("reattached unreachable category"),
	}})
	if err != nil {
		return false, fmt.Errorf("reattach %q: %w", c.Name, err)
	}
	return true, nil
}

// repairUncoveredItem synthesizes the missing assignment from the item's
// stored classifier proposals, refined stage first; the default category is
// the last resort, not the first.
func (v *Verifier) repairUncoveredItem(dbc dbctx.Context, snap *graph.Snapshot, itemID uuid.UUID) (bool, error) {
	var target *types.Category
	method := types.MethodFallbackDefault
	confidence := 0.3

	rows, err := v.deps.Items.GetByIDs(dbc, []uuid.UUID{itemID})
	if err != nil {
		return false, fmt.Errorf("load item %s: %w", itemID, err)
	}
	if len(rows) == 1 {
		if c, m := steps.ResolveProposedCategory(snap, rows[0]); c != nil {
			target, method, confidence = c, m, 0.5
		}
	}
	if target == nil {
		target = snap.ByName(v.deps.Roots.DefaultCategory)
	}
	if target == nil {
		return false, nil
	}
	_, err = v.deps.Assignments.CreateIgnoreDuplicates(dbc, []*types.Assignment{{
		ItemID:     itemID,
		CategoryID: target.ID,
		Method:     method,
		Confidence: confidence,
	}})
	if err != nil {
		return false, fmt.Errorf("cover item %s: %w", itemID, err)
	}
	return true, nil
}
