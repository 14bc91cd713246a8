package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	datagraph "github.com/yungbote/pathatlas-backend/internal/data/graph"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/verify"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	"github.com/yungbote/pathatlas-backend/internal/platform/neo4jdb"
)

// Pipeline sequences the full curation flow: climb, sibling discovery, the
// five-phase reorganizer, verification, and on a passing verdict the neo4j
// mirror. Every stage records progress on the run row and the event bus.
type Pipeline struct {
	deps     steps.StepDeps
	verifier *verify.Verifier
	neo      *neo4jdb.Client

	// Dedup tuning passed through to the reorganizer; zero values take the
	// phase defaults.
	DedupSimilarity float64
	DedupBatchSize  int
}

func New(deps steps.StepDeps, verifier *verify.Verifier, neo *neo4jdb.Client) *Pipeline {
	return &Pipeline{deps: deps, verifier: verifier, neo: neo}
}

type CurationResult struct {
	Run        *types.CurationRun           `json:"run"`
	Climb      steps.ClimbOutput            `json:"climb"`
	Siblings   steps.DiscoverSiblingsOutput `json:"siblings"`
	Reorganize steps.ReorganizeOutput       `json:"reorganize"`
	Report     *types.VerificationReport    `json:"report,omitempty"`
}

// RunCuration executes the whole pipeline. A failed climb aborts; later
// stage failures degrade the run but let the remaining stages limit the
// damage. The verifier has the last word on the run status.
func (p *Pipeline) RunCuration(ctx context.Context) (*CurationResult, error) {
	run, err := p.startRun(ctx, types.RunKindCuration)
	if err != nil {
		return nil, err
	}
	res := &CurationResult{Run: run}
	degraded := false

	p.markPhase(ctx, run, "climb")
	climb, err := steps.StepClimbHierarchy(ctx, p.deps, steps.ClimbInput{RunID: run.ID})
	res.Climb = climb
	if err != nil {
		p.finishRun(ctx, run, types.RunStatusFailed, res)
		return res, fmt.Errorf("curation: climb: %w", err)
	}

	p.markPhase(ctx, run, "discover_siblings")
	siblings, err := steps.StepDiscoverSiblings(ctx, p.deps, steps.DiscoverSiblingsInput{RunID: run.ID})
	res.Siblings = siblings
	if err != nil {
		// Discovery is additive; losing it does not endanger the structure.
		p.deps.Log.Warn("sibling discovery degraded", "error", err)
		degraded = true
	}

	p.markPhase(ctx, run, "reorganize")
	reorg, err := steps.RunReorganizer(ctx, p.deps, steps.ReorganizeInput{
		RunID:               run.ID,
		SimilarityThreshold: p.DedupSimilarity,
		DedupBatchSize:      p.DedupBatchSize,
	})
	res.Reorganize = reorg
	if err != nil {
		p.finishRun(ctx, run, types.RunStatusFailed, res)
		return res, fmt.Errorf("curation: reorganize: %w", err)
	}
	if len(reorg.Degraded) > 0 {
		degraded = true
	}

	p.markPhase(ctx, run, "verify")
	report, err := p.verifier.Run(ctx, run.ID)
	if err != nil {
		p.finishRun(ctx, run, types.RunStatusFailed, res)
		return res, fmt.Errorf("curation: verify: %w", err)
	}
	res.Report = report

	if report.Verdict == types.VerdictPass {
		p.markPhase(ctx, run, "mirror")
		if err := p.mirror(ctx); err != nil {
			p.deps.Log.Warn("neo4j mirror failed", "error", err)
		}
	}

	status := types.RunStatusDone
	if degraded {
		status = types.RunStatusDegraded
	}
	if report.Verdict == types.VerdictFail {
		status = types.RunStatusFailed
	}
	p.finishRun(ctx, run, status, res)

	if report.Verdict == types.VerdictFail {
		return res, fmt.Errorf("curation: verification failed, run %s", run.ID)
	}
	return res, nil
}

// RunVerify audits the current state without reorganizing anything.
func (p *Pipeline) RunVerify(ctx context.Context) (*types.CurationRun, *types.VerificationReport, error) {
	run, err := p.startRun(ctx, types.RunKindVerify)
	if err != nil {
		return nil, nil, err
	}
	p.markPhase(ctx, run, "verify")
	report, err := p.verifier.Run(ctx, run.ID)
	if err != nil {
		p.finishRun(ctx, run, types.RunStatusFailed, nil)
		return run, nil, fmt.Errorf("verify run: %w", err)
	}
	status := types.RunStatusDone
	if report.Verdict == types.VerdictFail {
		status = types.RunStatusFailed
	}
	p.finishRun(ctx, run, status, map[string]any{"verdict": report.Verdict})
	return run, report, nil
}

// RunSyncLinks restores item coverage on demand, outside a full curation.
func (p *Pipeline) RunSyncLinks(ctx context.Context) (*types.CurationRun, steps.SyncLinksOutput, error) {
	run, err := p.startRun(ctx, types.RunKindSyncLinks)
	if err != nil {
		return nil, steps.SyncLinksOutput{}, err
	}
	p.markPhase(ctx, run, "sync_links")
	out, err := steps.StepSyncItemLinks(ctx, p.deps, steps.SyncLinksInput{RunID: run.ID})
	if err != nil {
		p.finishRun(ctx, run, types.RunStatusFailed, nil)
		return run, out, fmt.Errorf("sync_links run: %w", err)
	}
	p.finishRun(ctx, run, types.RunStatusDone, out)
	return run, out, nil
}

func (p *Pipeline) startRun(ctx context.Context, kind string) (*types.CurationRun, error) {
	run, err := p.deps.Runs.Create(dbctx.Context{Ctx: ctx}, &types.CurationRun{
		Kind:      kind,
		Status:    types.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("start %s run: %w", kind, err)
	}
	p.deps.Log.Info("run started", "kind", kind, "run_id", run.ID)
	return run, nil
}

func (p *Pipeline) markPhase(ctx context.Context, run *types.CurationRun, phase string) {
	err := p.deps.Runs.UpdateFields(dbctx.Context{Ctx: ctx}, run.ID, map[string]any{"phase": phase})
	if err != nil {
		p.deps.Log.Warn("run phase update failed", "run_id", run.ID, "error", err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, run *types.CurationRun, status string, summary any) {
	fields := map[string]any{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	if summary != nil {
		if raw, err := json.Marshal(summary); err == nil {
			fields["summary"] = datatypes.JSON(raw)
		}
	}
	err := p.deps.Runs.UpdateFields(dbctx.Context{Ctx: ctx}, run.ID, fields)
	if err != nil {
		p.deps.Log.Warn("run finish update failed", "run_id", run.ID, "error", err)
	}
	run.Status = status
	p.deps.Log.Info("run finished", "kind", run.Kind, "run_id", run.ID, "status", status)
}

// mirror pushes the verified forest into neo4j.
func (p *Pipeline) mirror(ctx context.Context) error {
	dbc := dbctx.Context{Ctx: ctx}
	cats, err := p.deps.Categories.GetAll(dbc)
	if err != nil {
		return err
	}
	edges, err := p.deps.Edges.GetAll(dbc)
	if err != nil {
		return err
	}
	items, err := p.deps.Items.GetAll(dbc)
	if err != nil {
		return err
	}
	assignments, err := p.deps.Assignments.GetAll(dbc)
	if err != nil {
		return err
	}
	return datagraph.UpsertTaxonomyGraph(ctx, p.neo, p.deps.Log, cats, edges, items, assignments)
}
