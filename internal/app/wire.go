package app

import (
	"gorm.io/gorm"

	redisclient "github.com/yungbote/pathatlas-backend/internal/clients/redis"
	"github.com/yungbote/pathatlas-backend/internal/data/repos"
	httpserver "github.com/yungbote/pathatlas-backend/internal/http"
	httpH "github.com/yungbote/pathatlas-backend/internal/http/handlers"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/pipeline"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/verify"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
	"github.com/yungbote/pathatlas-backend/internal/platform/openai"
	"github.com/yungbote/pathatlas-backend/internal/services"
)

type Repos struct {
	Categories  repos.CategoryRepo
	Edges       repos.CategoryEdgeRepo
	Items       repos.ItemRepo
	Assignments repos.AssignmentRepo
	OracleCache repos.OracleCacheRepo
	Runs        repos.CurationRunRepo
	Reports     repos.VerificationReportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Categories:  repos.NewCategoryRepo(db, log),
		Edges:       repos.NewCategoryEdgeRepo(db, log),
		Items:       repos.NewItemRepo(db, log),
		Assignments: repos.NewAssignmentRepo(db, log),
		OracleCache: repos.NewOracleCacheRepo(db, log),
		Runs:        repos.NewCurationRunRepo(db, log),
		Reports:     repos.NewVerificationReportRepo(db, log),
	}
}

// wireEngine builds the oracle stack and the step dependency bundle. The
// returned cache is shared with the service layer so invalidation hits the
// same in-memory view the oracle reads.
func wireEngine(db *gorm.DB, log *logger.Logger, cfg Config, roots rootset.Config, r Repos, bus redisclient.RunBus) (steps.StepDeps, *verify.Verifier, *oracle.Cache, error) {
	ai, err := openai.NewClient(log)
	if err != nil {
		return steps.StepDeps{}, nil, nil, err
	}
	cache := oracle.NewCache(r.OracleCache, log)
	orc := oracle.New(ai, cache, log)

	deps := steps.StepDeps{
		DB:              db,
		Log:             log,
		Oracle:          orc,
		Roots:           roots,
		Categories:      r.Categories,
		Edges:           r.Edges,
		Items:           r.Items,
		Assignments:     r.Assignments,
		Runs:            r.Runs,
		Bus:             bus,
		FastConcurrency: cfg.FastConcurrency,
		DeepConcurrency: cfg.DeepConcurrency,
	}
	return deps, verify.New(deps, r.Reports), cache, nil
}

func wireServices(log *logger.Logger, roots rootset.Config, r Repos, cache *oracle.Cache, pipe *pipeline.Pipeline) services.TaxonomyService {
	return services.NewTaxonomyService(
		log,
		roots,
		r.Categories,
		r.Edges,
		r.Items,
		r.Assignments,
		r.Runs,
		r.Reports,
		cache,
		pipe,
	)
}

func wireServer(log *logger.Logger, port string, svc services.TaxonomyService) *httpserver.Server {
	return httpserver.NewServer(log, ":"+port, httpserver.RouterConfig{
		Log:             log,
		TaxonomyHandler: httpH.NewTaxonomyHandler(svc),
		RunHandler:      httpH.NewRunHandler(svc),
		HealthHandler:   httpH.NewHealthHandler(),
	})
}
