package taxonomy

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type OracleCacheRepo interface {
	Get(dbc dbctx.Context, key string) (*types.OracleCacheEntry, error)
	GetAll(dbc dbctx.Context) ([]*types.OracleCacheEntry, error)
	Upsert(dbc dbctx.Context, row *types.OracleCacheEntry) error
	DeleteByPrefix(dbc dbctx.Context, prefix string) (int, error)
	DeleteAll(dbc dbctx.Context) (int, error)
}

type oracleCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOracleCacheRepo(db *gorm.DB, baseLog *logger.Logger) OracleCacheRepo {
	return &oracleCacheRepo{db: db, log: baseLog.With("repo", "OracleCacheRepo")}
}

func (r *oracleCacheRepo) Get(dbc dbctx.Context, key string) (*types.OracleCacheEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.OracleCacheEntry
	err := t.WithContext(dbc.Ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *oracleCacheRepo) GetAll(dbc dbctx.Context) ([]*types.OracleCacheEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.OracleCacheEntry
	if err := t.WithContext(dbc.Ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *oracleCacheRepo) Upsert(dbc dbctx.Context, row *types.OracleCacheEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Key == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind",
				"value",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *oracleCacheRepo) DeleteByPrefix(dbc dbctx.Context, prefix string) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if prefix == "" {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("key LIKE ?", prefix+"%").
		Delete(&types.OracleCacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *oracleCacheRepo) DeleteAll(dbc dbctx.Context) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).Where("1 = 1").Delete(&types.OracleCacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
