package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

// mergePlan is the full set of rewrites needed to fold one category into
// another. It is built and validated in memory; execute applies it as a
// unit inside the phase transaction, so a half-migrated merge can never
// become visible.
type mergePlan struct {
	Keep *types.Category
	Drop *types.Category

	// ChildReparents rewrites edges parent_id: Drop -> Keep.
	ChildReparents []uuid.UUID
	// ParentTransfer recreates Drop's parent link on Keep (zero value: none).
	ParentTransfer uuid.UUID
	// EdgeDeletes removes edges that would become self-loops or duplicates.
	EdgeDeletes []uuid.UUID
	// AssignmentRewrites move item links from Drop to Keep.
	AssignmentRewrites []uuid.UUID
	// AssignmentDeletes drop links whose item already points at Keep.
	AssignmentDeletes []uuid.UUID
}

// buildMergePlan computes the migration for folding drop into keep against
// the current snapshot and live assignments.
func buildMergePlan(snap *graph.Snapshot, assignments []*types.Assignment, keep, drop *types.Category) mergePlan {
	p := mergePlan{Keep: keep, Drop: drop}

	keepChildren := map[uuid.UUID]bool{}
	for _, ch := range snap.ChildrenOf(keep.ID) {
		keepChildren[ch] = true
	}

	// Edges under drop: reparent to keep unless that self-loops or duplicates.
	for _, childID := range snap.ChildrenOf(drop.ID) {
		for _, e := range snap.EdgesOf(childID) {
			if e.ParentID != drop.ID {
				continue
			}
			if childID == keep.ID || keepChildren[childID] {
				p.EdgeDeletes = append(p.EdgeDeletes, e.ID)
				continue
			}
			p.ChildReparents = append(p.ChildReparents, e.ID)
		}
	}

	// Drop's own parent links: transfer one to keep if keep is parentless,
	// delete the rest.
	keepHasParent := snap.HasParent(keep.ID)
	for _, e := range snap.EdgesOf(drop.ID) {
		if !keepHasParent && e.ParentID != keep.ID && !snap.WouldCreateCycle(keep.ID, e.ParentID) {
			p.ParentTransfer = e.ParentID
			keepHasParent = true
		}
		p.EdgeDeletes = append(p.EdgeDeletes, e.ID)
	}

	// Item links: rewrite to keep, or delete when the item already has the
	// same facet on keep.
	keepFacets := map[uuid.UUID]map[string]bool{}
	for _, a := range assignments {
		if a.CategoryID != keep.ID {
			continue
		}
		if keepFacets[a.ItemID] == nil {
			keepFacets[a.ItemID] = map[string]bool{}
		}
		keepFacets[a.ItemID][a.Facet] = true
	}
	for _, a := range assignments {
		if a.CategoryID != drop.ID {
			continue
		}
		if keepFacets[a.ItemID] != nil && keepFacets[a.ItemID][a.Facet] {
			p.AssignmentDeletes = append(p.AssignmentDeletes, a.ID)
			continue
		}
		p.AssignmentRewrites = append(p.AssignmentRewrites, a.ID)
	}

	return p
}

// validate rejects any plan that would leave a dangling reference or touch
// a fixed root.
func (p mergePlan) validate(deps StepDeps, snap *graph.Snapshot) error {
	if p.Keep == nil || p.Drop == nil {
		return fmt.Errorf("merge plan: missing categories")
	}
	if p.Keep.ID == p.Drop.ID {
		return fmt.Errorf("merge plan: keep and drop are the same category")
	}
	if deps.Roots.IsRoot(p.Drop.Name) {
		return fmt.Errorf("merge plan: refusing to drop root %q", p.Drop.Name)
	}
	if snap.Category(p.Keep.ID) == nil || snap.Category(p.Drop.ID) == nil {
		return fmt.Errorf("merge plan: category vanished")
	}
	if p.ParentTransfer != uuid.Nil {
		if snap.Category(p.ParentTransfer) == nil {
			return fmt.Errorf("merge plan: transferred parent vanished")
		}
		if p.ParentTransfer == p.Keep.ID {
			return fmt.Errorf("merge plan: transferred parent would self-loop")
		}
	}
	return nil
}

// execute applies the plan and deletes the dropped category. Caller wraps
// this in the phase transaction.
func (p mergePlan) execute(ctx context.Context, deps StepDeps, tx *gorm.DB) error {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	for _, edgeID := range p.ChildReparents {
		if err := deps.Edges.UpdateParent(dbc, edgeID, p.Keep.ID); err != nil {
			return fmt.Errorf("merge %q->%q: reparent edge: %w", p.Drop.Name, p.Keep.Name, err)
		}
	}
	if err := deps.Edges.FullDeleteByIDs(dbc, p.EdgeDeletes); err != nil {
		return fmt.Errorf("merge %q->%q: delete edges: %w", p.Drop.Name, p.Keep.Name, err)
	}
	if p.ParentTransfer != uuid.Nil {
		_, err := deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
			ChildID:    p.Keep.ID,
			ParentID:   p.ParentTransfer,
			Kind:       types.EdgeIsA,
			Confidence: 0.9,
			Provenance: mustProvenance("merge_transfer", ""),
		}})
		if err != nil {
			return fmt.Errorf("merge %q->%q: transfer parent: %w", p.Drop.Name, p.Keep.Name, err)
		}
	}
	for _, id := range p.AssignmentRewrites {
		if err := deps.Assignments.UpdateCategory(dbc, id, p.Keep.ID, ""); err != nil {
			return fmt.Errorf("merge %q->%q: rewrite assignment: %w", p.Drop.Name, p.Keep.Name, err)
		}
	}
	if err := deps.Assignments.FullDeleteByIDs(dbc, p.AssignmentDeletes); err != nil {
		return fmt.Errorf("merge %q->%q: delete assignments: %w", p.Drop.Name, p.Keep.Name, err)
	}
	if err := deps.Categories.FullDeleteByIDs(dbc, []uuid.UUID{p.Drop.ID}); err != nil {
		return fmt.Errorf("merge %q->%q: delete category: %w", p.Drop.Name, p.Keep.Name, err)
	}
	return nil
}
