package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/pathatlas-backend/internal/clients/redis"
	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

// StepDeps carries everything a pipeline step needs. Bus is optional; a nil
// bus silently drops progress events.
type StepDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Oracle oracle.Oracle
	Roots  rootset.Config

	Categories  taxrepos.CategoryRepo
	Edges       taxrepos.CategoryEdgeRepo
	Items       taxrepos.ItemRepo
	Assignments taxrepos.AssignmentRepo
	Runs        taxrepos.CurationRunRepo

	Bus redisclient.RunBus

	// FastConcurrency bounds cheap classifier calls (climb, siblings);
	// DeepConcurrency bounds expensive validation calls (dedup, enforcement).
	FastConcurrency int
	DeepConcurrency int
}

func (d StepDeps) validate(step string) error {
	if d.DB == nil || d.Log == nil || d.Oracle == nil ||
		d.Categories == nil || d.Edges == nil || d.Items == nil || d.Assignments == nil {
		return fmt.Errorf("%s: missing deps", step)
	}
	if len(d.Roots.Roots) == 0 {
		return fmt.Errorf("%s: missing root set", step)
	}
	return nil
}

func (d StepDeps) fastConc() int {
	if d.FastConcurrency > 0 {
		return d.FastConcurrency
	}
	return 8
}

func (d StepDeps) deepConc() int {
	if d.DeepConcurrency > 0 {
		return d.DeepConcurrency
	}
	return 3
}

func (d StepDeps) publish(ctx context.Context, runID uuid.UUID, kind, phase, status string, detail map[string]any) {
	if d.Bus == nil {
		return
	}
	err := d.Bus.Publish(ctx, redisclient.RunEvent{
		RunID:  runID,
		Kind:   kind,
		Phase:  phase,
		Status: status,
		Detail: detail,
	})
	if err != nil {
		d.Log.Warn("run event publish failed", "phase", phase, "error", err)
	}
}

// loadSnapshot reads the full live forest into memory for planning.
func (d StepDeps) loadSnapshot(ctx context.Context) (*graph.Snapshot, []*types.Category, []*types.CategoryEdge, error) {
	cats, err := d.Categories.GetAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load categories: %w", err)
	}
	edges, err := d.Edges.GetAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load edges: %w", err)
	}
	return graph.Build(cats, edges), cats, edges, nil
}

// rootIDs resolves the configured root names against the snapshot, in
// config order; missing roots are skipped (the verifier reports them).
func (d StepDeps) rootIDs(snap *graph.Snapshot) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(d.Roots.Roots))
	for _, name := range d.Roots.Roots {
		if c := snap.ByName(name); c != nil {
			out = append(out, c.ID)
		}
	}
	return out
}

// ensureSeedCategories creates any missing fixed roots and the default
// category at their invariant positions.
func ensureSeedCategories(ctx context.Context, deps StepDeps) error {
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := deps.Categories.GetByNames(dbc, append(append([]string{}, deps.Roots.Roots...), deps.Roots.DefaultCategory))
	if err != nil {
		return fmt.Errorf("ensure_seeds: %w", err)
	}
	have := map[string]*types.Category{}
	for _, c := range existing {
		have[graph.NormalizeName(c.Name)] = c
	}

	var toCreate []*types.Category
	for _, name := range deps.Roots.Roots {
		if have[graph.NormalizeName(name)] != nil {
			continue
		}
		toCreate = append(toCreate, &types.Category{
			Name:   name,
			Depth:  0,
			IsLeaf: false,
			Origin: types.OriginSeed,
		})
	}
	created, err := deps.Categories.Create(dbc, toCreate)
	if err != nil {
		return fmt.Errorf("ensure_seeds: create roots: %w", err)
	}
	for _, c := range created {
		have[graph.NormalizeName(c.Name)] = c
	}

	if have[graph.NormalizeName(deps.Roots.DefaultCategory)] == nil {
		fallback := have[graph.NormalizeName(deps.Roots.FallbackRoot)]
		if fallback == nil {
			return fmt.Errorf("ensure_seeds: fallback root %q missing", deps.Roots.FallbackRoot)
		}
		rows, err := deps.Categories.Create(dbc, []*types.Category{{
			Name:   deps.Roots.DefaultCategory,
			Depth:  1,
			IsLeaf: true,
			Origin: types.OriginSeed,
		}})
		if err != nil {
			return fmt.Errorf("ensure_seeds: create default category: %w", err)
		}
		_, err = deps.Edges.CreateIgnoreDuplicates(dbc, []*types.CategoryEdge{{
			ChildID:    rows[0].ID,
			ParentID:   fallback.ID,
			Kind:       types.EdgeIsA,
			Confidence: 1,
			Provenance: mustProvenance("seed", ""),
		}})
		if err != nil {
			return fmt.Errorf("ensure_seeds: attach default category: %w", err)
		}
	}
	return nil
}

func mustProvenance(source, reasoning string) datatypes.JSON {
	raw, _ := json.Marshal(map[string]string{
		"source":    source,
		"reasoning": reasoning,
	})
	return datatypes.JSON(raw)
}

// markRun updates run bookkeeping; failures are logged, never fatal to the
// pipeline itself.
func markRun(ctx context.Context, deps StepDeps, runID uuid.UUID, fields map[string]any) {
	if deps.Runs == nil || runID == uuid.Nil {
		return
	}
	if err := deps.Runs.UpdateFields(dbctx.Context{Ctx: ctx}, runID, fields); err != nil {
		deps.Log.Warn("run update failed", "run_id", runID, "error", err)
	}
}

func finishedNow() *time.Time {
	t := time.Now().UTC()
	return &t
}
