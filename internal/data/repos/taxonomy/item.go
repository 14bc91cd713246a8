package taxonomy

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type ItemRepo interface {
	Create(dbc dbctx.Context, rows []*types.Item) ([]*types.Item, error)

	GetAll(dbc dbctx.Context) ([]*types.Item, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Item, error)
	GetByName(dbc dbctx.Context, name string) (*types.Item, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return &itemRepo{db: db, log: baseLog.With("repo", "ItemRepo")}
}

func (r *itemRepo) Create(dbc dbctx.Context, rows []*types.Item) ([]*types.Item, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Item{}, nil
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

func (r *itemRepo) GetAll(dbc dbctx.Context) ([]*types.Item, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Item
	if err := t.WithContext(dbc.Ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Item, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Item
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) GetByName(dbc dbctx.Context, name string) (*types.Item, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Item
	err := t.WithContext(dbc.Ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *itemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Model(&types.Item{}).Where("id = ?", id).Updates(fields).Error
}
