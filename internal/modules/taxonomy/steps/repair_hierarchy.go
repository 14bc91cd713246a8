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

type RepairHierarchyInput struct {
	RunID uuid.UUID
}

type RepairHierarchyOutput struct {
	DanglingEdgesRemoved int
	Reattached           int
	ShallowExamined      int
	IntermediatesCreated int
	Reparented           int
}

// StepRepairHierarchy runs two structural repair passes. Pass one removes
// edges pointing at parents that no longer exist and reattaches any
// category left orphaned. Pass two looks at categories sitting directly
// under a root without being a sanctioned level-1 name and, when the oracle
// can name a better intermediate, inserts it between root and child.
func StepRepairHierarchy(ctx context.Context, deps StepDeps, in RepairHierarchyInput) (RepairHierarchyOutput, error) {
	var out RepairHierarchyOutput
	if err := deps.validate("repair_hierarchy"); err != nil {
		return out, err
	}

	if err := repairDanglingParents(ctx, deps, &out); err != nil {
		return out, fmt.Errorf("repair_hierarchy: %w", err)
	}
	if err := repairShallowChildren(ctx, deps, &out); err != nil {
		return out, fmt.Errorf("repair_hierarchy: %w", err)
	}

	err := deps.DB.Transaction(func(tx *gorm.DB) error {
		_, err := RecomputeDerived(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("repair_hierarchy: %w", err)
	}

	deps.publish(ctx, in.RunID, types.RunKindReorganize, "repair_hierarchy", "done", map[string]any{
		"dangling_removed": out.DanglingEdgesRemoved,
		"intermediates":    out.IntermediatesCreated,
	})
	return out, nil
}

// repairDanglingParents drops edges whose parent id resolves to nothing and
// reattaches the orphans that deletion produces. Reattachment prefers the
// oracle's root call, then the keyword map.
func repairDanglingParents(ctx context.Context, deps StepDeps, out *RepairHierarchyOutput) error {
	snap, _, edges, err := deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}

	var stale []uuid.UUID
	orphanRisk := map[uuid.UUID]bool{}
	for _, e := range edges {
		if snap.Category(e.ParentID) == nil || snap.Category(e.ChildID) == nil {
			stale = append(stale, e.ID)
			orphanRisk[e.ChildID] = true
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := deps.Edges.FullDeleteByIDs(dbc, stale); err != nil {
		return fmt.Errorf("delete dangling edges: %w", err)
	}
	out.DanglingEdgesRemoved = len(stale)
	deps.Log.Info("removed dangling parent edges", "count", len(stale))

	snap, _, _, err = deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	var orphans []*types.Category
	for id := range orphanRisk {
		c := snap.Category(id)
		if c == nil || deps.Roots.IsRoot(c.Name) || snap.HasParent(c.ID) {
			continue
		}
		orphans = append(orphans, c)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Name < orphans[j].Name })

	for _, c := range orphans {
		rootName, err := deps.Oracle.SmartRoot(ctx, c.Name, deps.Roots.Roots)
		if err != nil || rootName == "" {
			rootName = deps.Roots.KeywordRoot(c.Name)
		}
		root := snap.ByName(rootName)
		if root == nil {
			root = snap.ByName(deps.Roots.FallbackRoot)
		}
		if root == nil {
			return fmt.Errorf("fallback root %q missing", deps.Roots.FallbackRoot)
		}
		_, err = deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
			ChildID:    c.ID,
			ParentID:   root.ID,
			Kind:       types.EdgeIsA,
			Confidence: 0.4,
			Provenance: mustProvenance("repair_dangling", ""),
		}})
		if err != nil {
			return fmt.Errorf("reattach %q: %w", c.Name, err)
		}
		out.Reattached++
		deps.Log.Info("reattached orphan", "category", c.Name, "root", root.Name)
	}
	return nil
}

// repairShallowChildren pushes unsanctioned direct children of roots down
// one level when the oracle names a sensible intermediate.
func repairShallowChildren(ctx context.Context, deps StepDeps, out *RepairHierarchyOutput) error {
	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	levels := snap.Levels(deps.rootIDs(snap))

	var shallow []*types.Category
	for _, c := range snap.All() {
		if levels[c.ID] != 1 {
			continue
		}
		if deps.Roots.IsAllowedLevel1(c.Name) {
			continue
		}
		shallow = append(shallow, c)
	}
	out.ShallowExamined = len(shallow)

	for _, child := range shallow {
		parents := snap.ParentsOf(child.ID)
		if len(parents) != 1 {
			continue
		}
		root := snap.Category(parents[0])
		if root == nil || !deps.Roots.IsRoot(root.Name) {
			continue
		}

		name, err := deps.Oracle.SuggestIntermediate(ctx, child.Name, root.Name, deps.Roots.Level1Allow)
		if err != nil {
			deps.Log.Warn("intermediate suggestion failed; leaving in place",
				"category", child.Name, "error", err)
			continue
		}
		if name == "" || graph.NormalizeName(name) == graph.NormalizeName(child.Name) ||
			graph.NormalizeName(name) == graph.NormalizeName(root.Name) {
			continue
		}

		mid := snap.ByName(name)
		if mid == nil {
			created, err := deps.Categories.Create(dbc, []*types.Category{{
				Name:   name,
				Depth:  -1,
				IsLeaf: false,
				Origin: types.OriginOracle,
			}})
			if err != nil {
				deps.Log.Warn("intermediate create failed", "name", name, "error", err)
				continue
			}
			mid = created[0]
			_, err = deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
				ChildID:    mid.ID,
				ParentID:   root.ID,
				Kind:       types.EdgeIsA,
				Confidence: 0.6,
				Provenance: mustProvenance("repair_intermediate", ""),
			}})
			if err != nil {
				deps.Log.Warn("intermediate edge create failed", "name", name, "error", err)
				continue
			}
			out.IntermediatesCreated++
		}
		if mid.ID == child.ID || snap.WouldCreateCycle(child.ID, mid.ID) {
			continue
		}

		// Reparent child from root to the intermediate.
		reparented := false
		for _, e := range snap.EdgesOf(child.ID) {
			if e.ParentID != root.ID {
				continue
			}
			if err := deps.Edges.UpdateParent(dbc, e.ID, mid.ID); err != nil {
				deps.Log.Warn("reparent failed", "category", child.Name, "error", err)
				break
			}
			reparented = true
			break
		}
		if reparented {
			out.Reparented++
			deps.Log.Info("inserted intermediate",
				"category", child.Name, "intermediate", mid.Name, "root", root.Name)
			snap, _, _, err = deps.loadSnapshot(ctx)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
