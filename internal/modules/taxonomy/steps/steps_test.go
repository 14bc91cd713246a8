package steps

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

// newTestDeps builds a full StepDeps over a fresh in-memory store with a
// scripted oracle and the default root set.
func newTestDeps(t *testing.T) (StepDeps, *oracle.Scripted, *gorm.DB) {
	t.Helper()
	gdb := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	orc := oracle.NewScripted()
	deps := StepDeps{
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
	return deps, orc, gdb
}

func reload(t *testing.T, deps StepDeps) *graph.Snapshot {
	t.Helper()
	snap, _, _, err := deps.loadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

func mustCategory(t *testing.T, deps StepDeps, name string) *types.Category {
	t.Helper()
	c := reload(t, deps).ByName(name)
	if c == nil {
		t.Fatalf("category %q not found", name)
	}
	return c
}

func edgesOf(t *testing.T, deps StepDeps, childID uuid.UUID) []*types.CategoryEdge {
	t.Helper()
	return reload(t, deps).EdgesOf(childID)
}

func allAssignments(t *testing.T, deps StepDeps) []*types.Assignment {
	t.Helper()
	rows, err := deps.Assignments.GetAll(dbctx.Context{Ctx: context.Background()})
	if err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	return rows
}
