package taxonomy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type CategoryEdgeRepo interface {
	Create(dbc dbctx.Context, rows []*types.CategoryEdge) ([]*types.CategoryEdge, error)
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.CategoryEdge) (int, error)

	GetAll(dbc dbctx.Context) ([]*types.CategoryEdge, error)
	GetByChildIDs(dbc dbctx.Context, childIDs []uuid.UUID) ([]*types.CategoryEdge, error)
	GetByParentIDs(dbc dbctx.Context, parentIDs []uuid.UUID) ([]*types.CategoryEdge, error)

	UpdateParent(dbc dbctx.Context, id uuid.UUID, newParentID uuid.UUID) error

	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) error
}

type categoryEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryEdgeRepo(db *gorm.DB, baseLog *logger.Logger) CategoryEdgeRepo {
	return &categoryEdgeRepo{db: db, log: baseLog.With("repo", "CategoryEdgeRepo")}
}

func (r *categoryEdgeRepo) Create(dbc dbctx.Context, rows []*types.CategoryEdge) ([]*types.CategoryEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.CategoryEdge{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *categoryEdgeRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.CategoryEdge) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "parent_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *categoryEdgeRepo) GetAll(dbc dbctx.Context) ([]*types.CategoryEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CategoryEdge
	if err := t.WithContext(dbc.Ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryEdgeRepo) GetByChildIDs(dbc dbctx.Context, childIDs []uuid.UUID) ([]*types.CategoryEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CategoryEdge
	if len(childIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("child_id IN ?", childIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryEdgeRepo) GetByParentIDs(dbc dbctx.Context, parentIDs []uuid.UUID) ([]*types.CategoryEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CategoryEdge
	if len(parentIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("parent_id IN ?", parentIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryEdgeRepo) UpdateParent(dbc dbctx.Context, id uuid.UUID, newParentID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || newParentID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Model(&types.CategoryEdge{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"parent_id":  newParentID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *categoryEdgeRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().Where("id IN ?", ids).Delete(&types.CategoryEdge{}).Error
}

func (r *categoryEdgeRepo) FullDeleteByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().
		Where("child_id IN ? OR parent_id IN ?", categoryIDs, categoryIDs).
		Delete(&types.CategoryEdge{}).Error
}
