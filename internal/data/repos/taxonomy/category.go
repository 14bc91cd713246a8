package taxonomy

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type CategoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.Category) ([]*types.Category, error)

	GetAll(dbc dbctx.Context) ([]*types.Category, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Category, error)
	GetByName(dbc dbctx.Context, name string) (*types.Category, error)
	GetByNames(dbc dbctx.Context, names []string) ([]*types.Category, error)
	GetByDepth(dbc dbctx.Context, depth int) ([]*types.Category, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error

	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) Create(dbc dbctx.Context, rows []*types.Category) ([]*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Category{}, nil
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

func (r *categoryRepo) GetAll(dbc dbctx.Context) ([]*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Category
	if err := t.WithContext(dbc.Ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Category
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) GetByName(dbc dbctx.Context, name string) (*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Category
	err := t.WithContext(dbc.Ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *categoryRepo) GetByNames(dbc dbctx.Context, names []string) ([]*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Category
	if len(names) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("name IN ?", names).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) GetByDepth(dbc dbctx.Context, depth int) ([]*types.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Category
	if err := t.WithContext(dbc.Ctx).Where("depth = ?", depth).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Model(&types.Category{}).Where("id = ?", id).Updates(fields).Error
}

func (r *categoryRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().Where("id IN ?", ids).Delete(&types.Category{}).Error
}
