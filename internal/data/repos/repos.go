package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type CategoryRepo = taxonomy.CategoryRepo
type CategoryEdgeRepo = taxonomy.CategoryEdgeRepo
type ItemRepo = taxonomy.ItemRepo
type AssignmentRepo = taxonomy.AssignmentRepo
type OracleCacheRepo = taxonomy.OracleCacheRepo
type CurationRunRepo = taxonomy.CurationRunRepo
type VerificationReportRepo = taxonomy.VerificationReportRepo

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return taxonomy.NewCategoryRepo(db, baseLog)
}
func NewCategoryEdgeRepo(db *gorm.DB, baseLog *logger.Logger) CategoryEdgeRepo {
	return taxonomy.NewCategoryEdgeRepo(db, baseLog)
}
func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return taxonomy.NewItemRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return taxonomy.NewAssignmentRepo(db, baseLog)
}
func NewOracleCacheRepo(db *gorm.DB, baseLog *logger.Logger) OracleCacheRepo {
	return taxonomy.NewOracleCacheRepo(db, baseLog)
}
func NewCurationRunRepo(db *gorm.DB, baseLog *logger.Logger) CurationRunRepo {
	return taxonomy.NewCurationRunRepo(db, baseLog)
}
func NewVerificationReportRepo(db *gorm.DB, baseLog *logger.Logger) VerificationReportRepo {
	return taxonomy.NewVerificationReportRepo(db, baseLog)
}
