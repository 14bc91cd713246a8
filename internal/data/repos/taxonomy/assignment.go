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

type AssignmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Assignment) ([]*types.Assignment, error)
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.Assignment) (int, error)

	GetAll(dbc dbctx.Context) ([]*types.Assignment, error)
	GetByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.Assignment, error)
	GetByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) ([]*types.Assignment, error)

	// CountByCategory returns live assignment counts keyed by category id.
	CountByCategory(dbc dbctx.Context) (map[uuid.UUID]int, error)

	UpdateCategory(dbc dbctx.Context, id uuid.UUID, newCategoryID uuid.UUID, method string) error

	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, rows []*types.Assignment) ([]*types.Assignment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Assignment{}, nil
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

func (r *assignmentRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.Assignment) (int, error) {
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
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "category_id"}, {Name: "facet"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *assignmentRepo) GetAll(dbc dbctx.Context) ([]*types.Assignment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Assignment
	if err := t.WithContext(dbc.Ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) GetByItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.Assignment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Assignment
	if len(itemIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("item_id IN ?", itemIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) GetByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) ([]*types.Assignment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Assignment
	if len(categoryIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("category_id IN ?", categoryIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) CountByCategory(dbc dbctx.Context) (map[uuid.UUID]int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	type countRow struct {
		CategoryID uuid.UUID
		N          int
	}
	var rows []countRow
	if err := t.WithContext(dbc.Ctx).Model(&types.Assignment{}).
		Select("category_id, COUNT(*) AS n").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = row.N
	}
	return out, nil
}

func (r *assignmentRepo) UpdateCategory(dbc dbctx.Context, id uuid.UUID, newCategoryID uuid.UUID, method string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || newCategoryID == uuid.Nil {
		return nil
	}
	fields := map[string]any{
		"category_id": newCategoryID,
		"updated_at":  time.Now().UTC(),
	}
	if method != "" {
		fields["method"] = method
	}
	return t.WithContext(dbc.Ctx).Model(&types.Assignment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *assignmentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().Where("id IN ?", ids).Delete(&types.Assignment{}).Error
}

func (r *assignmentRepo) FullDeleteByCategoryIDs(dbc dbctx.Context, categoryIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().
		Where("category_id IN ?", categoryIDs).
		Delete(&types.Assignment{}).Error
}
