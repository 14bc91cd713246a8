package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type EnforceTreeInput struct {
	RunID uuid.UUID
}

type EnforceTreeOutput struct {
	MultiParentChildren int
	EdgesRemoved        int
	OracleSelections    int
	CycleFallbacks      int
	RootFallbacks       int
}

// StepEnforceTree collapses every multi-parent category down to exactly one
// parent. The oracle picks the best candidate; a pick that would close a
// cycle falls through to the next candidate, and when every candidate
// cycles the child is reattached under its keyword root instead.
func StepEnforceTree(ctx context.Context, deps StepDeps, in EnforceTreeInput) (EnforceTreeOutput, error) {
	var out EnforceTreeOutput
	if err := deps.validate("tree_enforce"); err != nil {
		return out, err
	}

	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("tree_enforce: %w", err)
	}

	multi := snap.MultiParents()
	out.MultiParentChildren = len(multi)
	if len(multi) == 0 {
		return out, nil
	}

	// Stable processing order keeps reruns deterministic.
	childIDs := make([]uuid.UUID, 0, len(multi))
	for id := range multi {
		childIDs = append(childIDs, id)
	}
	sort.Slice(childIDs, func(i, j int) bool {
		a, b := snap.Category(childIDs[i]), snap.Category(childIDs[j])
		return a.Name < b.Name
	})

	dbc := dbctx.Context{Ctx: ctx}
	for _, childID := range childIDs {
		child := snap.Category(childID)
		if child == nil {
			continue
		}
		candidates := orderedCandidates(snap, childID)
		if len(candidates) == 0 {
			continue
		}

		chosen := chooseParent(ctx, deps, snap, child, candidates, &out)
		keptEdge := uuid.Nil
		var removals []uuid.UUID
		for _, e := range snap.EdgesOf(childID) {
			if chosen != uuid.Nil && e.ParentID == chosen && keptEdge == uuid.Nil {
				keptEdge = e.ID
				continue
			}
			removals = append(removals, e.ID)
		}
		if err := deps.Edges.FullDeleteByIDs(dbc, removals); err != nil {
			return out, fmt.Errorf("tree_enforce: prune edges of %q: %w", child.Name, err)
		}
		out.EdgesRemoved += len(removals)

		// No surviving candidate: reattach under the keyword root.
		if keptEdge == uuid.Nil {
			rootName := deps.Roots.KeywordRoot(child.Name)
			root := snap.ByName(rootName)
			if root == nil {
				root = snap.ByName(deps.Roots.FallbackRoot)
			}
			if root == nil {
				return out, fmt.Errorf("tree_enforce: fallback root %q missing", deps.Roots.FallbackRoot)
			}
			_, err := deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
				ChildID:    childID,
				ParentID:   root.ID,
				Kind:       types.EdgeIsA,
				Confidence: 0.3,
				Provenance: mustProvenance("tree_enforce_fallback", ""),
			}})
			if err != nil {
				return out, fmt.Errorf("tree_enforce: reattach %q: %w", child.Name, err)
			}
			out.RootFallbacks++
			deps.Log.Warn("all candidate parents rejected; reattached under root",
				"category", child.Name, "root", root.Name)
		}

		// Refresh so later children plan against the pruned graph.
		snap, _, _, err = deps.loadSnapshot(ctx)
		if err != nil {
			return out, fmt.Errorf("tree_enforce: %w", err)
		}
	}

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		_, err := RecomputeDerived(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("tree_enforce: %w", err)
	}

	deps.publish(ctx, in.RunID, types.RunKindReorganize, "tree_enforce", "done", map[string]any{
		"children": out.MultiParentChildren, "edges_removed": out.EdgesRemoved,
	})
	return out, nil
}

// chooseParent returns the winning parent id, or uuid.Nil when no candidate
// survives the cycle simulation.
func chooseParent(ctx context.Context, deps StepDeps, snap *graph.Snapshot, child *types.Category, candidates []*types.Category, out *EnforceTreeOutput) uuid.UUID {
	names := make([]string, len(candidates))
	byName := make(map[string]*types.Category, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
		byName[graph.NormalizeName(c.Name)] = c
	}

	ordered := make([]*types.Category, 0, len(candidates))
	picked, err := deps.Oracle.SelectParent(ctx, child.Name, names)
	if err != nil {
		deps.Log.Warn("parent selection failed; using confidence order",
			"category", child.Name, "error", err)
	} else if sel := byName[graph.NormalizeName(picked)]; sel != nil {
		ordered = append(ordered, sel)
		out.OracleSelections++
	}
	for _, c := range candidates {
		if len(ordered) > 0 && c.ID == ordered[0].ID {
			continue
		}
		ordered = append(ordered, c)
	}

	for i, cand := range ordered {
		if snap.WouldCreateCycle(child.ID, cand.ID) {
			if i == 0 {
				out.CycleFallbacks++
			}
			deps.Log.Warn("candidate parent would keep a cycle; trying next",
				"category", child.Name, "candidate", cand.Name)
			continue
		}
		return cand.ID
	}
	return uuid.Nil
}

// orderedCandidates lists a child's current parents by descending edge
// confidence, then name.
func orderedCandidates(snap *graph.Snapshot, childID uuid.UUID) []*types.Category {
	type cand struct {
		cat  *types.Category
		conf float64
	}
	seen := map[uuid.UUID]bool{}
	var cands []cand
	for _, e := range snap.EdgesOf(childID) {
		p := snap.Category(e.ParentID)
		if p == nil || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		cands = append(cands, cand{cat: p, conf: e.Confidence})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].conf != cands[j].conf {
			return cands[i].conf > cands[j].conf
		}
		return cands[i].cat.Name < cands[j].cat.Name
	})
	out := make([]*types.Category, len(cands))
	for i, c := range cands {
		out[i] = c.cat
	}
	return out
}
