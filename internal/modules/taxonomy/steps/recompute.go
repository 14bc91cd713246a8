package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

// ancestorPathJSON materializes the first-parent chain of id as a JSON
// array of uuid strings, nearest ancestor first.
func ancestorPathJSON(snap *graph.Snapshot, id uuid.UUID) datatypes.JSON {
	chain := snap.Ancestors(id)
	strs := make([]string, len(chain))
	for i, a := range chain {
		strs[i] = a.String()
	}
	raw, _ := json.Marshal(strs)
	return datatypes.JSON(raw)
}

func decodeAncestorPath(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(raw, &out)
	return out
}

// recomputeDerived rebuilds depth, ancestor path, and leaf flags for the
// whole forest from the live edge set, inside the given transaction. It is
// run after every phase commit that touches edges.
func RecomputeDerived(ctx context.Context, deps StepDeps, tx *gorm.DB) (int, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	cats, err := deps.Categories.GetAll(dbc)
	if err != nil {
		return 0, fmt.Errorf("recompute: load categories: %w", err)
	}
	edges, err := deps.Edges.GetAll(dbc)
	if err != nil {
		return 0, fmt.Errorf("recompute: load edges: %w", err)
	}
	snap := graph.Build(cats, edges)
	levels := snap.Levels(deps.rootIDs(snap))

	updated := 0
	for _, c := range cats {
		depth := levels[c.ID]
		isLeaf := len(snap.ChildrenOf(c.ID)) == 0
		path := ancestorPathJSON(snap, c.ID)

		if c.Depth == depth && c.IsLeaf == isLeaf && string(c.AncestorPath) == string(path) {
			continue
		}
		err := deps.Categories.UpdateFields(dbc, c.ID, map[string]any{
			"depth":         depth,
			"is_leaf":       isLeaf,
			"ancestor_path": path,
		})
		if err != nil {
			return updated, fmt.Errorf("recompute: update %s: %w", c.Name, err)
		}
		updated++
	}
	return updated, nil
}

// recomputeUsageCounts refreshes Category.UsageCount from live assignments.
func RecomputeUsageCounts(ctx context.Context, deps StepDeps, tx *gorm.DB) (int, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	counts, err := deps.Assignments.CountByCategory(dbc)
	if err != nil {
		return 0, fmt.Errorf("recompute usage: %w", err)
	}
	cats, err := deps.Categories.GetAll(dbc)
	if err != nil {
		return 0, fmt.Errorf("recompute usage: %w", err)
	}
	updated := 0
	for _, c := range cats {
		want := counts[c.ID]
		if c.UsageCount == want {
			continue
		}
		if err := deps.Categories.UpdateFields(dbc, c.ID, map[string]any{"usage_count": want}); err != nil {
			return updated, fmt.Errorf("recompute usage: update %s: %w", c.Name, err)
		}
		updated++
	}
	return updated, nil
}
