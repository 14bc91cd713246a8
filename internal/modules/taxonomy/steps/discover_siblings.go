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

type DiscoverSiblingsInput struct {
	RunID uuid.UUID

	// MaxPerParent caps how many new children one parent may gain; <=0 uses 6.
	MaxPerParent int
}

type DiscoverSiblingsOutput struct {
	ParentsAsked      int
	CategoriesCreated int
	EdgesCreated      int
}

// StepDiscoverSiblings asks the oracle, per non-leaf category, for known
// child pathways the taxonomy is missing and fills them in. Purely
// additive; no existing structure is touched.
func StepDiscoverSiblings(ctx context.Context, deps StepDeps, in DiscoverSiblingsInput) (DiscoverSiblingsOutput, error) {
	var out DiscoverSiblingsOutput
	if err := deps.validate("discover_siblings"); err != nil {
		return out, err
	}
	maxPer := in.MaxPerParent
	if maxPer <= 0 {
		maxPer = 6
	}

	snap, _, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("discover_siblings: %w", err)
	}

	var parents []*types.Category
	for _, c := range snap.All() {
		if len(snap.ChildrenOf(c.ID)) > 0 {
			parents = append(parents, c)
		}
	}
	out.ParentsAsked = len(parents)

	results := parallel.Map(ctx, parents, deps.fastConc(), func(ctx context.Context, p *types.Category) ([]oracle.Sibling, error) {
		known := make([]string, 0, len(snap.ChildrenOf(p.ID)))
		for _, chID := range snap.ChildrenOf(p.ID) {
			if ch := snap.Category(chID); ch != nil {
				known = append(known, ch.Name)
			}
		}
		return deps.Oracle.DiscoverSiblings(ctx, p.Name, known)
	})

	dbc := dbctx.Context{Ctx: ctx}
	createdNames := map[string]bool{}
	for i, res := range results {
		parent := parents[i]
		if res.Err != nil {
			deps.Log.Warn("sibling discovery failed; skipping parent",
				"parent", parent.Name, "error", res.Err)
			continue
		}
		added := 0
		for _, sib := range res.Value {
			if added >= maxPer {
				break
			}
			if sib.Name == "" || snap.ByName(sib.Name) != nil || createdNames[graph.NormalizeName(sib.Name)] {
				continue
			}
			created, err := deps.Categories.Create(dbc, []*types.Category{{
				Name:   sib.Name,
				Depth:  -1,
				IsLeaf: true,
				Origin: types.OriginOracle,
			}})
			if err != nil {
				deps.Log.Warn("sibling create failed", "name", sib.Name, "error", err)
				continue
			}
			n, err := deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
				ChildID:    created[0].ID,
				ParentID:   parent.ID,
				Kind:       types.EdgeIsA,
				Confidence: 0.7,
				Provenance: mustProvenance("sibling_discovery", sib.Description),
			}})
			if err != nil {
				deps.Log.Warn("sibling edge create failed", "name", sib.Name, "error", err)
				continue
			}
			createdNames[graph.NormalizeName(sib.Name)] = true
			out.CategoriesCreated++
			out.EdgesCreated += n
			added++
		}
	}

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		_, err := RecomputeDerived(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("discover_siblings: %w", err)
	}

	deps.publish(ctx, in.RunID, types.RunKindCuration, "discover_siblings", "done", map[string]any{
		"created": out.CategoriesCreated,
	})
	return out, nil
}
