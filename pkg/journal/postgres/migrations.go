package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rhuss/cuckoo/pkg/debug"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// journalMigration is one versioned schema change of the submissions table.
type journalMigration struct {
	version int
	file    string
}

// loadMigrations lists the *.sql files of dir in fsys ordered by version.
// Files are named "<version>_<description>.sql"; a malformed name or a
// version used twice is an error.
func loadMigrations(fsys fs.FS, dir string) ([]journalMigration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var out []journalMigration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: name must start with <version>_", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version %q", entry.Name(), prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, entry.Name(), version)
		}
		seen[version] = entry.Name()
		out = append(out, journalMigration{version: version, file: path.Join(dir, entry.Name())})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// appliedVersions returns the versions recorded in schema_migrations. A
// database without that table has none.
func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	var present bool
	if err := s.pool.QueryRow(ctx,
		"SELECT to_regclass('schema_migrations') IS NOT NULL",
	).Scan(&present); err != nil {
		return nil, fmt.Errorf("checking schema_migrations: %w", err)
	}
	applied := make(map[int]bool)
	if !present {
		return applied, nil
	}

	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// migrate brings the journal schema up to date. Each pending migration runs
// in its own transaction together with its schema_migrations row.
func (s *Store) migrate(ctx context.Context) error {
	migrations, err := loadMigrations(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range migrations {
		if applied[m.version] {
			debug.Log(debug.Journal, "migration already applied", "version", m.version)
			continue
		}
		content, err := fs.ReadFile(migrationFiles, m.file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.file, err)
		}

		debug.Log(debug.Journal, "applying migration", "version", m.version, "file", path.Base(m.file))
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
				m.version,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", path.Base(m.file), err)
		}
		pending++
	}

	if pending > 0 {
		slog.Info("journal schema migrated", "applied", pending, "latest", migrations[len(migrations)-1].version)
	}
	return nil
}
