package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type PruneInput struct {
	RunID uuid.UUID
}

type PruneOutput struct {
	Pruned  int
	Rescued int
}

// StepPruneSafely deletes categories that are unreachable from any root,
// hold no assignments, and parent nothing. Unreachable categories that
// still carry value, assignments or children, are rescued under their
// keyword root instead of deleted.
func StepPruneSafely(ctx context.Context, deps StepDeps, in PruneInput) (PruneOutput, error) {
	var out PruneOutput
	if err := deps.validate("prune"); err != nil {
		return out, err
	}

	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("prune: %w", err)
	}
	dbc := dbctx.Context{Ctx: ctx}

	counts, err := deps.Assignments.CountByCategory(dbc)
	if err != nil {
		return out, fmt.Errorf("prune: count assignments: %w", err)
	}
	levels := snap.Levels(deps.rootIDs(snap))

	var deletable []uuid.UUID
	var rescue []*types.Category
	for _, c := range snap.All() {
		if deps.Roots.IsRoot(c.Name) || levels[c.ID] != -1 {
			continue
		}
		if counts[c.ID] == 0 && len(snap.ChildrenOf(c.ID)) == 0 {
			deletable = append(deletable, c.ID)
			deps.Log.Info("pruning unreachable category", "category", c.Name)
			continue
		}
		rescue = append(rescue, c)
	}
	sort.Slice(rescue, func(i, j int) bool { return rescue[i].Name < rescue[j].Name })

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := deps.Edges.FullDeleteByCategoryIDs(txc, deletable); err != nil {
			return fmt.Errorf("delete edges: %w", err)
		}
		if err := deps.Categories.FullDeleteByIDs(txc, deletable); err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}

		for _, c := range rescue {
			// Rescue targets only chains whose top is parentless; a child deeper
			// in an unreachable chain reconnects through its rescued ancestor.
			if len(snap.ParentsOf(c.ID)) > 0 {
				continue
			}
			root := snap.ByName(deps.Roots.KeywordRoot(c.Name))
			if root == nil {
				root = snap.ByName(deps.Roots.FallbackRoot)
			}
			if root == nil {
				return fmt.Errorf("fallback root %q missing", deps.Roots.FallbackRoot)
			}
			_, err := deps.Edges.CreateIgnoreDuplicates(txc, []*types.CategoryEdge{{
				ChildID:    c.ID,
				ParentID:   root.ID,
				Kind:       types.EdgeIsA,
				Confidence: 0.2,
				Provenance: mustProvenance("prune_rescue", ""),
			}})
			if err != nil {
				return fmt.Errorf("rescue %q: %w", c.Name, err)
			}
			out.Rescued++
			deps.Log.Info("rescued unreachable category", "category", c.Name, "root", root.Name)
		}

		if _, err := RecomputeDerived(ctx, deps, tx); err != nil {
			return err
		}
		_, err := RecomputeUsageCounts(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("prune: %w", err)
	}
	out.Pruned = len(deletable)

	deps.publish(ctx, in.RunID, types.RunKindReorganize, "prune", "done", map[string]any{
		"pruned": out.Pruned, "rescued": out.Rescued,
	})
	return out, nil
}
