package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	"github.com/tendant/simple-content-migrate/pkg/migrate/fetch"
	"github.com/tendant/simple-content-migrate/pkg/migrate/intake"
	"github.com/tendant/simple-content-migrate/pkg/migrate/repo/memory"
	repopg "github.com/tendant/simple-content-migrate/pkg/migrate/repo/postgres"
	"github.com/tendant/simple-content-migrate/pkg/migrate/runner"
)

// Pipeline holds the wired migration components.
type Pipeline struct {
	Store        migrate.EntityStore
	Stores       map[string]migrate.BlobStore
	Fetcher      *fetch.Fetcher
	Materializer *migrate.Materializer
	Rewriter     *migrate.Rewriter
	Intake       *intake.Service
	Runner       *runner.Runner

	pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (p *Pipeline) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// BuildPipeline constructs the entity store, blob stores and every
// component that depends on them.
func (c *Config) BuildPipeline(ctx context.Context) (*Pipeline, error) {
	logger := slog.Default()
	sink := migrate.NewLoggingMessageSink(logger)
	p := &Pipeline{Stores: make(map[string]migrate.BlobStore)}

	for scheme, raw := range map[string]string{"public": c.PublicStorageURL, "private": c.PrivateStorageURL} {
		store, err := c.buildBlobStore(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s storage: %w", scheme, err)
		}
		p.Stores[scheme] = store
	}

	if err := c.buildRepository(ctx, p); err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(p.Stores,
		fetch.WithConfig(fetch.Config{Timeout: c.FetchTimeout, Retries: c.FetchRetries}),
		fetch.WithLogger(logger),
	)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Fetcher = fetcher

	p.Materializer, err = migrate.NewMaterializer(
		migrate.AssetConfig{Bundle: migrate.BundleImage, SourceDir: c.SourceDir},
		migrate.WithEntityStore(p.Store),
		migrate.WithFetcher(fetcher),
		migrate.WithMessageSink(sink),
		migrate.WithLogger(logger),
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Rewriter, err = migrate.NewRewriter(p.Materializer,
		migrate.WithBaseURI(c.BaseURI),
		migrate.WithMessageSink(sink),
		migrate.WithLogger(logger),
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Intake, err = intake.New(p.Store, p.Stores["private"], intake.WithLogger(logger))
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Runner, err = runner.New(p.Store,
		runner.WithBlobStores(p.Stores),
		runner.WithMessageSink(sink),
		runner.WithLogger(logger),
		runner.WithMigrations(
			runner.DemoArticleMigration(p.Materializer, p.Rewriter),
			runner.DemoCategoryMigration(),
		),
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

func (c *Config) buildRepository(ctx context.Context, p *Pipeline) error {
	switch c.DatabaseType() {
	case "memory":
		p.Store = memory.New()
		return nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := repopg.CreateSchema(ctx, pool, schema); err != nil {
			pool.Close()
			return err
		}
		if err := repopg.Migrate(ctx, pool, slog.Default()); err != nil {
			pool.Close()
			return err
		}
		p.pool = pool
		p.Store = repopg.NewWithPool(pool)
		return nil
	default:
		return errors.New("unsupported database type: " + c.DatabaseURL)
	}
}
