package services

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/pipeline"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

// TreeNode is one category with its resolved children, for the tree view.
type TreeNode struct {
	Category *types.Category `json:"category"`
	Children []*TreeNode     `json:"children,omitempty"`
}

// CategoryDetail is the single-category view: the node, its parent chain,
// and its direct children.
type CategoryDetail struct {
	Category *types.Category   `json:"category"`
	Parent   *types.Category   `json:"parent,omitempty"`
	Children []*types.Category `json:"children"`
}

// ItemAssignmentView pairs an assignment with its resolved category.
type ItemAssignmentView struct {
	Assignment *types.Assignment `json:"assignment"`
	Category   *types.Category   `json:"category,omitempty"`
}

type TaxonomyService interface {
	ListCategories(ctx context.Context) ([]*types.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDetail, error)
	GetTree(ctx context.Context) ([]*TreeNode, error)
	GetItemAssignments(ctx context.Context, itemID uuid.UUID) ([]*ItemAssignmentView, error)

	ListRuns(ctx context.Context, limit int) ([]*types.CurationRun, error)
	LatestVerification(ctx context.Context) (*types.VerificationReport, error)

	// StartCuration launches the full pipeline in the background. Only one
	// curation may run at a time.
	StartCuration() error
	RunVerify(ctx context.Context) (*types.CurationRun, *types.VerificationReport, error)
	RunSyncLinks(ctx context.Context) (*types.CurationRun, error)

	InvalidateCache(ctx context.Context, prefix string) (int, error)
}

type taxonomyService struct {
	log   *logger.Logger
	roots rootset.Config

	categories  taxrepos.CategoryRepo
	edges       taxrepos.CategoryEdgeRepo
	items       taxrepos.ItemRepo
	assignments taxrepos.AssignmentRepo
	runs        taxrepos.CurationRunRepo
	reports     taxrepos.VerificationReportRepo

	cache *oracle.Cache
	pipe  *pipeline.Pipeline

	curating atomic.Bool
}

func NewTaxonomyService(
	log *logger.Logger,
	roots rootset.Config,
	categories taxrepos.CategoryRepo,
	edges taxrepos.CategoryEdgeRepo,
	items taxrepos.ItemRepo,
	assignments taxrepos.AssignmentRepo,
	runs taxrepos.CurationRunRepo,
	reports taxrepos.VerificationReportRepo,
	cache *oracle.Cache,
	pipe *pipeline.Pipeline,
) TaxonomyService {
	return &taxonomyService{
		log:         log.With("service", "TaxonomyService"),
		roots:       roots,
		categories:  categories,
		edges:       edges,
		items:       items,
		assignments: assignments,
		runs:        runs,
		reports:     reports,
		cache:       cache,
		pipe:        pipe,
	}
}

func (s *taxonomyService) ListCategories(ctx context.Context) ([]*types.Category, error) {
	cats, err := s.categories.GetAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Depth != cats[j].Depth {
			return cats[i].Depth < cats[j].Depth
		}
		return cats[i].Name < cats[j].Name
	})
	return cats, nil
}

func (s *taxonomyService) GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDetail, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c := snap.Category(id)
	if c == nil {
		return nil, pkgerr.ErrNotFound
	}
	detail := &CategoryDetail{Category: c, Children: []*types.Category{}}
	if parents := snap.ParentsOf(id); len(parents) > 0 {
		detail.Parent = snap.Category(parents[0])
	}
	for _, chID := range snap.ChildrenOf(id) {
		if ch := snap.Category(chID); ch != nil {
			detail.Children = append(detail.Children, ch)
		}
	}
	sort.Slice(detail.Children, func(i, j int) bool {
		return detail.Children[i].Name < detail.Children[j].Name
	})
	return detail, nil
}

func (s *taxonomyService) GetTree(ctx context.Context) ([]*TreeNode, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var build func(id uuid.UUID, seen map[uuid.UUID]bool) *TreeNode
	build = func(id uuid.UUID, seen map[uuid.UUID]bool) *TreeNode {
		c := snap.Category(id)
		if c == nil || seen[id] {
			return nil
		}
		seen[id] = true
		node := &TreeNode{Category: c}
		childIDs := append([]uuid.UUID{}, snap.ChildrenOf(id)...)
		sort.Slice(childIDs, func(i, j int) bool {
			a, b := snap.Category(childIDs[i]), snap.Category(childIDs[j])
			if a == nil || b == nil {
				return childIDs[i].String() < childIDs[j].String()
			}
			return a.Name < b.Name
		})
		for _, chID := range childIDs {
			if ch := build(chID, seen); ch != nil {
				node.Children = append(node.Children, ch)
			}
		}
		return node
	}

	var out []*TreeNode
	seen := map[uuid.UUID]bool{}
	for _, name := range s.roots.Roots {
		root := snap.ByName(name)
		if root == nil {
			continue
		}
		if node := build(root.ID, seen); node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

func (s *taxonomyService) GetItemAssignments(ctx context.Context, itemID uuid.UUID) ([]*ItemAssignmentView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	found, err := s.items.GetByIDs(dbc, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, pkgerr.ErrNotFound
	}
	rows, err := s.assignments.GetByItemIDs(dbc, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}
	catIDs := make([]uuid.UUID, 0, len(rows))
	for _, a := range rows {
		catIDs = append(catIDs, a.CategoryID)
	}
	cats, err := s.categories.GetByIDs(dbc, catIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	out := make([]*ItemAssignmentView, 0, len(rows))
	for _, a := range rows {
		out = append(out, &ItemAssignmentView{Assignment: a, Category: byID[a.CategoryID]})
	}
	return out, nil
}

func (s *taxonomyService) ListRuns(ctx context.Context, limit int) ([]*types.CurationRun, error) {
	return s.runs.List(dbctx.Context{Ctx: ctx}, limit)
}

func (s *taxonomyService) LatestVerification(ctx context.Context) (*types.VerificationReport, error) {
	return s.reports.GetLatest(dbctx.Context{Ctx: ctx})
}

func (s *taxonomyService) StartCuration() error {
	if !s.curating.CompareAndSwap(false, true) {
		return fmt.Errorf("a curation run is already in progress: %w", pkgerr.ErrConflict)
	}
	go func() {
		defer s.curating.Store(false)
		if _, err := s.pipe.RunCuration(context.Background()); err != nil {
			s.log.Error("curation run failed", "error", err)
		}
	}()
	return nil
}

func (s *taxonomyService) RunVerify(ctx context.Context) (*types.CurationRun, *types.VerificationReport, error) {
	return s.pipe.RunVerify(ctx)
}

func (s *taxonomyService) RunSyncLinks(ctx context.Context) (*types.CurationRun, error) {
	run, _, err := s.pipe.RunSyncLinks(ctx)
	return run, err
}

func (s *taxonomyService) InvalidateCache(ctx context.Context, prefix string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Invalidate(ctx, prefix)
}

func (s *taxonomyService) snapshot(ctx context.Context) (*graph.Snapshot, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cats, err := s.categories.GetAll(dbc)
	if err != nil {
		return nil, err
	}
	edges, err := s.edges.GetAll(dbc)
	if err != nil {
		return nil, err
	}
	return graph.Build(cats, edges), nil
}
