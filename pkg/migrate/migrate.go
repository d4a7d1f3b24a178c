package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written and validated from the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Applied is one migration that ran, in either direction.
type Applied struct {
	Version   int64
	Path      string
	Direction string
	Took      time.Duration
}

// Runner applies the marketcart schema to a Postgres database.
type Runner struct {
	provider *goose.Provider
}

// NewRunner builds a runner over fsys, or over the embedded migrations when
// fsys is nil.
func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if fsys == nil {
		fsys = Embedded()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	return collect(results), wrap("up", err)
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	if result == nil {
		return nil, wrap("down", err)
	}
	return collect([]*goose.MigrationResult{result}), wrap("down", err)
}

// To moves the schema up or down until version is the latest applied one.
func (r *Runner) To(ctx context.Context, version int64) ([]Applied, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	return collect(results), wrap(fmt.Sprintf("to %d", version), err)
}

// Version is one known migration and when it was applied, if it was.
type Version struct {
	Version   int64
	Path      string
	AppliedAt time.Time
}

func (v Version) Pending() bool { return v.AppliedAt.IsZero() }

// Status lists every known migration in version order.
func (r *Runner) Status(ctx context.Context) ([]Version, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, wrap("status", err)
	}
	out := make([]Version, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Version{Version: s.Source.Version, Path: s.Source.Path, AppliedAt: s.AppliedAt})
	}
	return out, nil
}

func (r *Runner) Close() error {
	return r.provider.Close()
}

func collect(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Took:      res.Duration,
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("migrate %s: %w", op, err)
}
