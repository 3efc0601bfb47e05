package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/splax/cornerstone/db/migrations"
)

const runTimeout = time.Minute

// Runner drives goose against the API's connection pool. Migrations come from
// the binary unless an override directory is configured.
type Runner struct {
	pool *pgxpool.Pool
	fsys fs.FS
	src  string
	log  *slog.Logger
}

func New(pool *pgxpool.Pool, overrideDir string, log *slog.Logger) (Runner, error) {
	if pool == nil {
		return Runner{}, errors.New("migrate: nil pool")
	}
	if log == nil {
		log = slog.Default()
	}
	r := Runner{pool: pool, fsys: migrations.FS, src: "embedded", log: log.With("component", "migrate")}
	if overrideDir != "" {
		info, err := os.Stat(overrideDir)
		if err != nil {
			return Runner{}, fmt.Errorf("migrate: locate %s: %w", overrideDir, err)
		}
		if !info.IsDir() {
			return Runner{}, fmt.Errorf("migrate: %s is not a directory", overrideDir)
		}
		r.fsys, r.src = os.DirFS(overrideDir), overrideDir
	}
	return r, nil
}

// Ensure applies every pending migration and logs each one.
func (r Runner) Ensure(ctx context.Context) error {
	return r.run(ctx, func(ctx context.Context, p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, res := range results {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		version, err := p.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		r.log.Info("schema up to date", "version", version, "source", r.src, "applied", len(results))
		return nil
	})
}

// Status logs one line per known migration.
func (r Runner) Status(ctx context.Context) error {
	return r.run(ctx, func(ctx context.Context, p *goose.Provider) error {
		states, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range states {
			attrs := []any{"version", st.Source.Version, "file", st.Source.Path, "state", string(st.State)}
			if st.State == goose.StateApplied {
				attrs = append(attrs, "applied_at", st.AppliedAt.Format(time.RFC3339))
			}
			r.log.Info("migration", attrs...)
		}
		return nil
	})
}

// Down rolls back one migration, or everything above target when target > 0.
func (r Runner) Down(ctx context.Context, target int64) error {
	return r.run(ctx, func(ctx context.Context, p *goose.Provider) error {
		if target > 0 {
			results, err := p.DownTo(ctx, target)
			for _, res := range results {
				r.logResult(res)
			}
			if err != nil {
				return fmt.Errorf("rollback to version %d: %w", target, err)
			}
			return nil
		}
		res, err := p.Down(ctx)
		if res != nil {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// run borrows connections from the pool through database/sql for goose.
func (r Runner) run(ctx context.Context, fn func(context.Context, *goose.Provider) error) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	p, err := r.provider(db)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	return fn(ctx, p)
}

func (r Runner) provider(db *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, r.fsys)
	if err != nil {
		return nil, fmt.Errorf("configure goose from %s: %w", r.src, err)
	}
	return p, nil
}

func (r Runner) logResult(res *goose.MigrationResult) {
	attrs := []any{"version", res.Source.Version, "direction", res.Direction, "took", res.Duration.String()}
	if res.Error != nil {
		r.log.Error("migration failed", append(attrs, "error", res.Error)...)
		return
	}
	r.log.Info("migration", attrs...)
}
