package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	redisclient "github.com/yungbote/pathatlas-backend/internal/clients/redis"
	"github.com/yungbote/pathatlas-backend/internal/data/db"
	httpserver "github.com/yungbote/pathatlas-backend/internal/http"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/pipeline"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/rootset"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
	"github.com/yungbote/pathatlas-backend/internal/platform/neo4jdb"
	"github.com/yungbote/pathatlas-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpserver.Server
	Cfg      Config
	Roots    rootset.Config
	Deps     steps.StepDeps
	Pipeline *pipeline.Pipeline
	Taxonomy services.TaxonomyService

	neo *neo4jdb.Client
	bus redisclient.RunBus
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	roots, err := rootset.Load(cfg.RootsetPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load rootset: %w", err)
	}

	pg, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := pg.DB()

	// Optional backends. The engine runs fine without either.
	var bus redisclient.RunBus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = redisclient.NewRunBus(log)
		if err != nil {
			log.Warn("run bus unavailable; progress events disabled", "error", err)
			bus = nil
		}
	}
	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("neo4j unavailable; graph mirror disabled", "error", err)
		neo = nil
	}

	reposet := wireRepos(theDB, log)
	deps, verifier, cache, err := wireEngine(theDB, log, cfg, roots, reposet, bus)
	if err != nil {
		log.Sync()
		return nil, err
	}
	pipe := pipeline.New(deps, verifier, neo)
	pipe.DedupSimilarity = cfg.DedupSimilarity
	pipe.DedupBatchSize = cfg.DedupBatchSize
	svc := wireServices(log, roots, reposet, cache, pipe)
	srv := wireServer(log, cfg.Port, svc)

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   srv,
		Cfg:      cfg,
		Roots:    roots,
		Deps:     deps,
		Pipeline: pipe,
		Taxonomy: svc,
		neo:      neo,
		bus:      bus,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run()
}

// Shutdown drains the HTTP server; Close still runs afterwards to release
// the backends.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.neo != nil {
		_ = a.neo.Close(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
