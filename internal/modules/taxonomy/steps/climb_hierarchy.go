package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	"github.com/yungbote/pathatlas-backend/internal/pkg/parallel"
)

// maxClimbLevels caps the level loop; anything still parentless afterwards
// is force-attached so no category stays orphaned.
const maxClimbLevels = 10

type ClimbInput struct {
	RunID uuid.UUID
}

type ClimbOutput struct {
	LevelsRun     int
	EdgesCreated  int
	Created       int
	Deferred      int
	ForceAttached int
}

// StepClimbHierarchy walks every parentless non-root category upward, one
// level at a time, asking the oracle for the immediate parent of each,
// until every chain reaches a fixed root or the level cap trips.
func StepClimbHierarchy(ctx context.Context, deps StepDeps, in ClimbInput) (ClimbOutput, error) {
	var out ClimbOutput
	if err := deps.validate("climb_hierarchy"); err != nil {
		return out, err
	}
	if err := ensureSeedCategories(ctx, deps); err != nil {
		return out, fmt.Errorf("climb_hierarchy: %w", err)
	}

	dbc := dbctx.Context{Ctx: ctx}

	for level := 0; level < maxClimbLevels; level++ {
		snap, _, _, err := deps.loadSnapshot(ctx)
		if err != nil {
			return out, fmt.Errorf("climb_hierarchy: %w", err)
		}
		pending := parentlessNonRoots(deps, snap)
		if len(pending) == 0 {
			break
		}
		out.LevelsRun++

		known := knownCategoryNames(snap, 80)
		results := parallel.Map(ctx, pending, deps.fastConc(), func(ctx context.Context, c *types.Category) (oracle.ParentAnswer, error) {
			return deps.Oracle.FindParent(ctx, c.Name, deps.Roots.Roots, known)
		})

		// Writes are applied serially, in input order, against a level-local
		// view that tracks edges and categories created within this level so
		// the cycle guard sees them.
		levelParents := map[uuid.UUID][]uuid.UUID{}
		levelByName := map[string]*types.Category{}

		resolved := 0
		for i, res := range results {
			child := pending[i]
			if res.Err != nil {
				deps.Log.Warn("parent lookup failed; deferring",
					"category", child.Name, "level", level, "error", res.Err)
				out.Deferred++
				continue
			}
			ans := res.Value
			if graph.NormalizeName(ans.Parent) == "" {
				deps.Log.Warn("oracle returned no parent; deferring",
					"category", child.Name, "level", level)
				out.Deferred++
				continue
			}
			if graph.NormalizeName(ans.Parent) == graph.NormalizeName(child.Name) {
				deps.Log.Warn("oracle proposed self as parent; deferring", "category", child.Name)
				out.Deferred++
				continue
			}

			parent := snap.ByName(ans.Parent)
			if parent == nil {
				parent = levelByName[graph.NormalizeName(ans.Parent)]
			}
			if parent == nil {
				created, err := deps.Categories.Create(dbc, []*types.Category{{
					Name:   ans.Parent,
					Depth:  -1,
					IsLeaf: false,
					Origin: types.OriginOracle,
				}})
				if err != nil {
					deps.Log.Warn("parent create failed; deferring",
						"category", child.Name, "parent", ans.Parent, "error", err)
					out.Deferred++
					continue
				}
				parent = created[0]
				levelByName[graph.NormalizeName(parent.Name)] = parent
				out.Created++
			}

			if wouldCycle(snap, levelParents, child.ID, parent.ID) {
				deps.Log.Warn("proposed parent would create cycle; deferring",
					"category", child.Name, "parent", parent.Name)
				out.Deferred++
				continue
			}

			n, err := deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
				ChildID:    child.ID,
				ParentID:   parent.ID,
				Kind:       types.EdgeIsA,
				Confidence: 0.9,
				Provenance: mustProvenance("climb", ans.Reasoning),
			}})
			if err != nil {
				deps.Log.Warn("edge create failed; deferring",
					"category", child.Name, "parent", parent.Name, "error", err)
				out.Deferred++
				continue
			}
			levelParents[child.ID] = append(levelParents[child.ID], parent.ID)
			out.EdgesCreated += n
			resolved++
		}

		deps.Log.Info("climb level done",
			"level", level, "batch", len(pending), "resolved", resolved, "deferred", len(pending)-resolved)
		deps.publish(ctx, in.RunID, types.RunKindCuration, "climb", "level_done", map[string]any{
			"level": level, "batch": len(pending), "resolved": resolved,
		})
	}

	// Force-attach stragglers; the keyword map picks a better root than the
	// blind fallback when the name gives one away.
	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("climb_hierarchy: %w", err)
	}
	for _, c := range parentlessNonRoots(deps, snap) {
		rootName := deps.Roots.KeywordRoot(c.Name)
		root := snap.ByName(rootName)
		if root == nil {
			root = snap.ByName(deps.Roots.FallbackRoot)
		}
		if root == nil {
			return out, fmt.Errorf("climb_hierarchy: fallback root %q missing", deps.Roots.FallbackRoot)
		}
		_, err := deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
			ChildID:    c.ID,
			ParentID:   root.ID,
			Kind:       types.EdgeIsA,
			Confidence: 0.1,
			Provenance: mustProvenance("climb_force_attach", ""),
		}})
		if err != nil {
			return out, fmt.Errorf("climb_hierarchy: force attach %q: %w", c.Name, err)
		}
		out.ForceAttached++
		deps.Log.Info("force attached to root", "category", c.Name, "root", root.Name)
	}

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		_, err := RecomputeDerived(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("climb_hierarchy: %w", err)
	}
	return out, nil
}

// wouldCycle checks child -> parent against both the loaded snapshot and
// the edges committed earlier in the same level.
func wouldCycle(snap *graph.Snapshot, extra map[uuid.UUID][]uuid.UUID, childID, parentID uuid.UUID) bool {
	if childID == parentID {
		return true
	}
	seen := map[uuid.UUID]bool{}
	stack := []uuid.UUID{parentID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == childID {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, snap.ParentsOf(cur)...)
		stack = append(stack, extra[cur]...)
	}
	return false
}

// parentlessNonRoots returns categories that lack a parent edge and are not
// fixed roots, sorted by name for deterministic batches.
func parentlessNonRoots(deps StepDeps, snap *graph.Snapshot) []*types.Category {
	var out []*types.Category
	for _, c := range snap.All() {
		if deps.Roots.IsRoot(c.Name) {
			continue
		}
		if snap.HasParent(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// knownCategoryNames gives the oracle some existing context without
// flooding the prompt.
func knownCategoryNames(snap *graph.Snapshot, limit int) []string {
	var out []string
	for _, c := range snap.All() {
		if len(out) >= limit {
			break
		}
		out = append(out, c.Name)
	}
	return out
}
