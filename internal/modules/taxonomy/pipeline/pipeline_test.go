package pipeline

import (
	"context"
	"testing"

	"gorm.io/gorm"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/verify"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

func newTestPipeline(t *testing.T) (*Pipeline, steps.StepDeps, *oracle.Scripted, *gorm.DB) {
	t.Helper()
	gdb := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	orc := oracle.NewScripted()
	deps := steps.StepDeps{
		DB:          gdb,
		Log:         log,
		Oracle:      orc,
		Roots:       rootset.Default(),
		Categories:  taxrepos.NewCategoryRepo(gdb, log),
		Edges:       taxrepos.NewCategoryEdgeRepo(gdb, log),
		Items:       taxrepos.NewItemRepo(gdb, log),
		Assignments: taxrepos.NewAssignmentRepo(gdb, log),
		Runs:        taxrepos.NewCurationRunRepo(gdb, log),
	}
	verifier := verify.New(deps, taxrepos.NewVerificationReportRepo(gdb, log))
	return New(deps, verifier, nil), deps, orc, gdb
}

func TestRunCurationFromEmptyStore(t *testing.T) {
	p, deps, orc, gdb := newTestPipeline(t)
	testutil.SeedCategory(t, gdb, "Mitophagy", -1, types.OriginOracle)
	orc.Parents["mitophagy"] = oracle.ParentAnswer{Parent: "Autophagy"}
	orc.Parents["autophagy"] = oracle.ParentAnswer{Parent: "Proteostasis"}

	res, err := p.RunCuration(context.Background())
	if err != nil {
		t.Fatalf("curation: %v", err)
	}
	if res.Run == nil || res.Run.Kind != types.RunKindCuration {
		t.Fatalf("run row wrong: %+v", res.Run)
	}
	if res.Run.Status != types.RunStatusDone {
		t.Fatalf("status = %q", res.Run.Status)
	}
	if res.Report == nil || res.Report.Verdict != types.VerdictPass {
		t.Fatalf("report = %+v", res.Report)
	}
	if res.Climb.EdgesCreated != 2 || res.Climb.Created != 1 {
		t.Fatalf("climb output: %+v", res.Climb)
	}

	// The persisted run carries the final status and a summary.
	run, err := deps.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, res.Run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if run.Status != types.RunStatusDone || run.FinishedAt == nil {
		t.Fatalf("persisted run: %+v", run)
	}
	if len(run.Summary) == 0 {
		t.Fatalf("summary missing")
	}
}

func TestRunVerifyFailsOnEmptyStore(t *testing.T) {
	p, deps, _, _ := newTestPipeline(t)

	run, report, err := p.RunVerify(context.Background())
	if err != nil {
		t.Fatalf("verify run: %v", err)
	}
	if report.Verdict != types.VerdictFail {
		t.Fatalf("verdict = %q", report.Verdict)
	}
	saved, err := deps.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if saved.Status != types.RunStatusFailed || saved.Kind != types.RunKindVerify {
		t.Fatalf("persisted run: %+v", saved)
	}
}

func TestRunSyncLinksCoversItems(t *testing.T) {
	p, deps, _, gdb := newTestPipeline(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	def := testutil.SeedCategory(t, gdb, "Protein Quality Control", 1, types.OriginSeed)
	testutil.SeedEdge(t, gdb, def.ID, root.ID)
	item := testutil.SeedItem(t, gdb, "UNLINKED-1", nil)

	run, out, err := p.RunSyncLinks(context.Background())
	if err != nil {
		t.Fatalf("sync links run: %v", err)
	}
	if out.DefaultAssigned != 1 {
		t.Fatalf("output: %+v", out)
	}
	saved, err := deps.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if saved.Status != types.RunStatusDone || saved.Kind != types.RunKindSyncLinks {
		t.Fatalf("persisted run: %+v", saved)
	}

	rows, err := deps.Assignments.GetAll(dbctx.Context{Ctx: context.Background()})
	if err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	if len(rows) != 1 || rows[0].ItemID != item.ID || rows[0].CategoryID != def.ID {
		t.Fatalf("assignment wrong: %+v", rows)
	}
}
