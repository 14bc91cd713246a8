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

type CurationRunRepo interface {
	Create(dbc dbctx.Context, row *types.CurationRun) (*types.CurationRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CurationRun, error)
	GetLatest(dbc dbctx.Context) (*types.CurationRun, error)
	List(dbc dbctx.Context, limit int) ([]*types.CurationRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error
}

type curationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurationRunRepo(db *gorm.DB, baseLog *logger.Logger) CurationRunRepo {
	return &curationRunRepo{db: db, log: baseLog.With("repo", "CurationRunRepo")}
}

func (r *curationRunRepo) Create(dbc dbctx.Context, row *types.CurationRun) (*types.CurationRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, pkgerr.ErrInvalidArgument
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.StartedAt.IsZero() {
		row.StartedAt = now
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *curationRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CurationRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.CurationRun
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *curationRunRepo) GetLatest(dbc dbctx.Context) (*types.CurationRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.CurationRun
	err := t.WithContext(dbc.Ctx).Order("started_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *curationRunRepo) List(dbc dbctx.Context, limit int) ([]*types.CurationRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.CurationRun
	if err := t.WithContext(dbc.Ctx).Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curationRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Model(&types.CurationRun{}).Where("id = ?", id).Updates(fields).Error
}
