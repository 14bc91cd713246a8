package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/pipeline"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/verify"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
)

func newTestService(t *testing.T) (TaxonomyService, *gorm.DB) {
	t.Helper()
	gdb := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	categories := taxrepos.NewCategoryRepo(gdb, log)
	edges := taxrepos.NewCategoryEdgeRepo(gdb, log)
	items := taxrepos.NewItemRepo(gdb, log)
	assignments := taxrepos.NewAssignmentRepo(gdb, log)
	runs := taxrepos.NewCurationRunRepo(gdb, log)
	reports := taxrepos.NewVerificationReportRepo(gdb, log)
	cacheRepo := taxrepos.NewOracleCacheRepo(gdb, log)
	cache := oracle.NewCache(cacheRepo, log)

	deps := steps.StepDeps{
		DB:          gdb,
		Log:         log,
		Oracle:      oracle.NewScripted(),
		Roots:       rootset.Default(),
		Categories:  categories,
		Edges:       edges,
		Items:       items,
		Assignments: assignments,
		Runs:        runs,
	}
	pipe := pipeline.New(deps, verify.New(deps, reports), nil)
	svc := NewTaxonomyService(log, rootset.Default(), categories, edges, items, assignments, runs, reports, cache, pipe)
	return svc, gdb
}

func TestGetTreeFollowsRootOrder(t *testing.T) {
	svc, gdb := newTestService(t)
	prot := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	signal := testutil.SeedCategory(t, gdb, "Signal Transduction", 0, types.OriginSeed)
	auto := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	mito := testutil.SeedCategory(t, gdb, "Mitophagy", 2, types.OriginOracle)
	testutil.SeedEdge(t, gdb, auto.ID, prot.ID)
	testutil.SeedEdge(t, gdb, mito.ID, auto.ID)

	tree, err := svc.GetTree(context.Background())
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	// Only seeded roots appear, in configured order.
	if len(tree) != 2 {
		t.Fatalf("roots = %d", len(tree))
	}
	if tree[0].Category.ID != prot.ID || tree[1].Category.ID != signal.ID {
		t.Fatalf("root order wrong")
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Category.ID != auto.ID {
		t.Fatalf("level-1 children wrong")
	}
	if len(tree[0].Children[0].Children) != 1 || tree[0].Children[0].Children[0].Category.ID != mito.ID {
		t.Fatalf("level-2 children wrong")
	}
}

func TestGetCategoryDetail(t *testing.T) {
	svc, gdb := newTestService(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	auto := testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)
	mito := testutil.SeedCategory(t, gdb, "Mitophagy", 2, types.OriginOracle)
	testutil.SeedEdge(t, gdb, auto.ID, root.ID)
	testutil.SeedEdge(t, gdb, mito.ID, auto.ID)

	detail, err := svc.GetCategory(context.Background(), auto.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if detail.Parent == nil || detail.Parent.ID != root.ID {
		t.Fatalf("parent wrong: %+v", detail.Parent)
	}
	if len(detail.Children) != 1 || detail.Children[0].ID != mito.ID {
		t.Fatalf("children wrong: %+v", detail.Children)
	}

	if _, err := svc.GetCategory(context.Background(), uuid.New()); !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItemAssignments(t *testing.T) {
	svc, gdb := newTestService(t)
	root := testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	item := testutil.SeedItem(t, gdb, "HSPA8", nil)
	testutil.SeedAssignment(t, gdb, item.ID, root.ID, types.MethodOracleRefined)

	views, err := svc.GetItemAssignments(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("item assignments: %v", err)
	}
	if len(views) != 1 || views[0].Category == nil || views[0].Category.ID != root.ID {
		t.Fatalf("views wrong: %+v", views)
	}

	if _, err := svc.GetItemAssignments(context.Background(), uuid.New()); !errors.Is(err, pkgerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestListCategoriesOrdersByDepthThenName(t *testing.T) {
	svc, gdb := newTestService(t)
	testutil.SeedCategory(t, gdb, "Zeta Pathway", 1, types.OriginOracle)
	testutil.SeedCategory(t, gdb, "Proteostasis", 0, types.OriginSeed)
	testutil.SeedCategory(t, gdb, "Autophagy", 1, types.OriginOracle)

	cats, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("got %d categories", len(cats))
	}
	if cats[0].Name != "Proteostasis" || cats[1].Name != "Autophagy" || cats[2].Name != "Zeta Pathway" {
		t.Fatalf("order wrong: %s, %s, %s", cats[0].Name, cats[1].Name, cats[2].Name)
	}
}

func TestInvalidateCache(t *testing.T) {
	svc, _ := newTestService(t)
	// Empty cache: nothing to clear, no error.
	n, err := svc.InvalidateCache(context.Background(), "")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 0 {
		t.Fatalf("cleared %d entries from an empty cache", n)
	}
}
