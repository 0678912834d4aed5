// Package storage persists the caller-owned job row set.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"RefScreener/internal/doi"
	"RefScreener/internal/domain"
	"RefScreener/internal/ports"
)

// doiListSep joins the retracted DOI list into one column. DOIs may contain
// commas, so a pipe is used instead.
const doiListSep = "|"

// SQLiteStore implements ports.JobStore over a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.JobStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the job_rows table. seq preserves insertion order, which is
// the row order pending selection follows.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS job_rows (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		doi            TEXT NOT NULL UNIQUE,
		status         TEXT NOT NULL DEFAULT '',
		reason         TEXT NOT NULL DEFAULT '',
		refs_evaluated INTEGER NOT NULL DEFAULT 0,
		retracted_dois TEXT NOT NULL DEFAULT '',
		updated_at     TIMESTAMP
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate job_rows: %w", err)
	}
	return nil
}

// Seed inserts pending rows for each DOI, ignoring duplicates. Returns how
// many rows were actually added. Values that fail normalization are kept
// verbatim: screening records them as error rows instead of dropping them.
func (s *SQLiteStore) Seed(ctx context.Context, dois []string) (int, error) {
	added := 0
	for _, raw := range dois {
		norm := rowKey(raw)
		if norm == "" {
			continue
		}
		query, args, err := s.sb.
			Insert("job_rows").
			Options("OR IGNORE").
			Columns("doi").
			Values(norm).
			ToSql()
		if err != nil {
			return added, fmt.Errorf("build insert: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", norm, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}

// ListPending returns up to limit rows with empty status, in row order.
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.JobRow, error) {
	query, args, err := s.sb.
		Select("doi", "status", "reason", "refs_evaluated", "retracted_dois").
		From("job_rows").
		Where(sq.Eq{"status": ""}).
		OrderBy("seq").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRow
	for rows.Next() {
		var row domain.JobRow
		var retracted string
		if err := rows.Scan(&row.DOI, &row.Status, &row.Reason, &row.RefsEvaluated, &retracted); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.RetractedDOIs = splitDOIList(retracted)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

// Commit writes the screening result back to the row. Upsert semantics make
// a double commit from overlapping runner invocations idempotent in effect.
func (s *SQLiteStore) Commit(ctx context.Context, d string, result domain.RowResult) error {
	query, args, err := s.sb.
		Update("job_rows").
		Set("status", string(result.Status)).
		Set("reason", result.Reason).
		Set("refs_evaluated", result.RefsEvaluated).
		Set("retracted_dois", strings.Join(result.RetractedDOIs, doiListSep)).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"doi": rowKey(d)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("commit %s: %w", d, err)
	}
	return nil
}

// Rows returns every row in row order, for export and inspection.
func (s *SQLiteStore) Rows(ctx context.Context) ([]domain.JobRow, error) {
	query, args, err := s.sb.
		Select("doi", "status", "reason", "refs_evaluated", "retracted_dois").
		From("job_rows").
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRow
	for rows.Next() {
		var row domain.JobRow
		var retracted string
		if err := rows.Scan(&row.DOI, &row.Status, &row.Reason, &row.RefsEvaluated, &retracted); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.RetractedDOIs = splitDOIList(retracted)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

// rowKey canonicalizes a DOI where possible; a value that is not a DOI keys
// its row verbatim so seeding and committing agree on it.
func rowKey(raw string) string {
	if norm := doi.Normalize(raw); norm != "" {
		return norm
	}
	return strings.TrimSpace(raw)
}

func splitDOIList(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, doiListSep)
}
