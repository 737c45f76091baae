// Package postgres provides a PostgreSQL implementation of journal.Journal.
// It uses pgx/v5 for connection pooling and JSONB for the raw server response.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/cuckoo/pkg/debug"
	"github.com/rhuss/cuckoo/pkg/journal"
)

// Store is a PostgreSQL-backed Journal.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements journal.Journal at compile time.
var _ journal.Journal = (*Store)(nil)

// New creates a new PostgreSQL journal with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const selectColumns = `SELECT id, kind, target, task_ids, response, submitted_at FROM submissions`

// Record inserts a submission.
func (s *Store) Record(ctx context.Context, sub *journal.Submission) error {
	taskIDs := make([]int64, 0, len(sub.TaskIDs))
	for _, id := range sub.TaskIDs {
		taskIDs = append(taskIDs, int64(id))
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, kind, target, task_ids, response, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		sub.ID, string(sub.Kind), sub.Target, taskIDs, nullJSON(sub.Response), sub.SubmittedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return journal.ErrConflict
		}
		return fmt.Errorf("inserting submission: %w", err)
	}

	debug.Log(debug.Journal, "inserted submission", "id", sub.ID, "backend", "postgres")
	return nil
}

// Get retrieves a submission by ID.
func (s *Store) Get(ctx context.Context, id string) (*journal.Submission, error) {
	row := s.pool.QueryRow(ctx, selectColumns+" WHERE id = $1", id)

	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, journal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying submission: %w", err)
	}
	return sub, nil
}

// List returns the newest submissions first.
func (s *Store) List(ctx context.Context, limit int) ([]*journal.Submission, error) {
	query := selectColumns + " ORDER BY submitted_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	subs := []*journal.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return subs, nil
}

// Delete removes a submission.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return journal.ErrNotFound
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanSubmission reads one row produced by selectColumns.
func scanSubmission(row pgx.Row) (*journal.Submission, error) {
	var sub journal.Submission
	var kind string
	var taskIDs []int64
	var response *[]byte

	if err := row.Scan(&sub.ID, &kind, &sub.Target, &taskIDs, &response, &sub.SubmittedAt); err != nil {
		return nil, err
	}

	sub.Kind = journal.Kind(kind)
	for _, id := range taskIDs {
		sub.TaskIDs = append(sub.TaskIDs, int(id))
	}
	if response != nil {
		sub.Response = *response
	}
	return &sub, nil
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
