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

type VerificationReportRepo interface {
	Create(dbc dbctx.Context, row *types.VerificationReport) (*types.VerificationReport, error)
	GetLatest(dbc dbctx.Context) (*types.VerificationReport, error)
	GetByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*types.VerificationReport, error)
}

type verificationReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVerificationReportRepo(db *gorm.DB, baseLog *logger.Logger) VerificationReportRepo {
	return &verificationReportRepo{db: db, log: baseLog.With("repo", "VerificationReportRepo")}
}

func (r *verificationReportRepo) Create(dbc dbctx.Context, row *types.VerificationReport) (*types.VerificationReport, error) {
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
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *verificationReportRepo) GetLatest(dbc dbctx.Context) (*types.VerificationReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.VerificationReport
	err := t.WithContext(dbc.Ctx).Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *verificationReportRepo) GetByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*types.VerificationReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.VerificationReport
	if runID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("run_id = ?", runID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
