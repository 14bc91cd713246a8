package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

// AutoMigrateAll creates or updates every table the engine persists.
func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.Category{},
		&types.CategoryEdge{},
		&types.Item{},
		&types.Assignment{},
		&types.OracleCacheEntry{},
		&types.CurationRun{},
		&types.VerificationReport{},
	)
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	return AutoMigrateAll(s.db)
}
