package container

import (
	"context"
	"fmt"
	"log"

	"statadvisor/adapters/checksapi"
	"statadvisor/adapters/postgres"
	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/internal/api"
	"statadvisor/internal/config"
	"statadvisor/internal/loader"
	"statadvisor/internal/migration"
	"statadvisor/internal/session"
	"statadvisor/internal/suitability"
	"statadvisor/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Catalog storage, only set when a database is configured
	CatalogRepo ports.CatalogRepository

	// Scoring components
	Catalog *catalog.Catalog
	Scorer  *suitability.Scorer
	Memo    *suitability.Memo

	Sessions *session.Store
	Checks   ports.CheckSource

	Server *api.Server

	cancelSweep context.CancelFunc
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
	}

	return c, nil
}

// Init builds every component. The database is only opened when the catalog
// source needs it or DATABASE_URL is set.
func (c *Container) Init(ctx context.Context) error {
	if c.Config.Database.URL != "" {
		if err := c.initDatabase(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if err := c.initCatalog(ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	c.initScoring()
	c.initSessions(ctx)
	c.initChecks()
	c.initServer()

	log.Printf("Container initialized: catalog %s (%d tests, version %s)",
		c.Catalog.Name, len(c.Catalog.Tests), core.Hash(c.Scorer.Version()).Short())
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.DB = db
	c.CatalogRepo = postgres.NewCatalogRepository(db)
	return nil
}

func (c *Container) initCatalog(ctx context.Context) error {
	var (
		cat *catalog.Catalog
		err error
	)

	switch c.Config.Catalog.Source {
	case config.CatalogSourceFile:
		cat, err = loader.LoadFile(c.Config.Catalog.Path)
	case config.CatalogSourcePostgres:
		if c.CatalogRepo == nil {
			return fmt.Errorf("catalog source postgres requires DATABASE_URL")
		}
		cat, err = c.CatalogRepo.Load(ctx, c.Config.Catalog.Name)
		if core.IsNotFoundError(err) {
			cat, err = c.seedCatalog(ctx)
		} else if err == nil {
			// stored documents skip the loader, so sanitize here
			cat, _ = cat.Sanitize()
		}
	default:
		cat, err = loader.Default()
	}
	if err != nil {
		return err
	}

	c.Catalog = cat
	return nil
}

// seedCatalog stores the bundled catalog under the configured name so an empty
// database starts with a usable catalog.
func (c *Container) seedCatalog(ctx context.Context) (*catalog.Catalog, error) {
	bundled, err := loader.Default()
	if err != nil {
		return nil, err
	}
	seeded := *bundled
	seeded.Name = c.Config.Catalog.Name
	rec, err := c.CatalogRepo.Save(ctx, &seeded)
	if err != nil {
		return nil, fmt.Errorf("failed to seed catalog %q: %w", seeded.Name, err)
	}
	log.Printf("Seeded catalog %s with %d bundled tests", rec.Name, rec.TestCount)
	return &seeded, nil
}

func (c *Container) initScoring() {
	c.Scorer = suitability.NewScorer(c.Catalog)
	c.Memo = suitability.NewMemo(c.Scorer, c.Config.Scoring.MemoCapacity)
}

func (c *Container) initSessions(ctx context.Context) {
	c.Sessions = session.NewStore(c.Config.Session.TTL)

	sweepCtx, cancel := context.WithCancel(ctx)
	c.cancelSweep = cancel
	go c.Sessions.Run(sweepCtx, c.Config.Session.SweepInterval)
}

func (c *Container) initChecks() {
	if !c.Config.ChecksAPI.Enabled() {
		return
	}
	c.Checks = checksapi.NewClient(checksapi.Config{
		BaseURL:    c.Config.ChecksAPI.URL,
		Timeout:    c.Config.ChecksAPI.Timeout,
		ResultPath: c.Config.ChecksAPI.ResultPath,
		Headers:    c.Config.ChecksAPI.Headers(),
	})
}

func (c *Container) initServer() {
	var opts []api.Option
	if c.Checks != nil {
		opts = append(opts, api.WithCheckSource(c.Checks))
	}
	if c.CatalogRepo != nil {
		opts = append(opts, api.WithCatalogRepository(c.CatalogRepo))
	}
	c.Server = api.NewServer(c.Memo, c.Sessions, api.Config{
		MinConfidence: c.Config.Scoring.MinConfidence,
		AccessLog:     true,
	}, opts...)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.cancelSweep != nil {
		c.cancelSweep()
	}

	return c.closeDatabase()
}

func (c *Container) closeDatabase() error {
	if c.DB == nil {
		return nil
	}
	err := c.DB.Close()
	c.DB = nil
	c.CatalogRepo = nil
	return err
}
