package app

import (
	"github.com/yungbote/pathatlas-backend/internal/platform/envutil"
)

type Config struct {
	Port        string
	RootsetPath string

	// Oracle call concurrency: fast covers cheap classifier calls, deep the
	// expensive validation calls.
	FastConcurrency int
	DeepConcurrency int

	// Dedup tuning.
	DedupSimilarity float64
	DedupBatchSize  int
}

func LoadConfig() Config {
	return Config{
		Port:            envutil.String("PORT", "8080"),
		RootsetPath:     envutil.String("PATHATLAS_ROOTSET_PATH", ""),
		FastConcurrency: envutil.Int("PATHATLAS_FAST_CONCURRENCY", 8),
		DeepConcurrency: envutil.Int("PATHATLAS_DEEP_CONCURRENCY", 3),
		DedupSimilarity: envutil.Float("PATHATLAS_DEDUP_SIMILARITY", 0.86),
		DedupBatchSize:  envutil.Int("PATHATLAS_DEDUP_BATCH", 5),
	}
}
