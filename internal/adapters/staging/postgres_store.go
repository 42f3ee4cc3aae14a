package staging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"visit-route-service/internal/config"
	"visit-route-service/internal/platform/obs"
)

const seqColumn = "_seq"

// PostgresStore stages records in a per-run Postgres schema. Each target
// path is a table in that schema.
type PostgresStore struct {
	DB     *sql.DB
	schema string
}

func NewPostgresStore(db *sql.DB, runFullName string) *PostgresStore {
	return &PostgresStore{DB: db, schema: SchemaName(runFullName)}
}

func (s *PostgresStore) Path() string { return s.schema }

// CreateWorkingArea drops any previous schema of the same name and creates
// an empty one.
func (s *PostgresStore) CreateWorkingArea(ctx context.Context) (err error) {
	defer obs.Time(ctx, "staging.CreateWorkingArea")(&err)

	if s.DB == nil {
		return errors.New("create working area: db is nil")
	}
	if s.schema == "" {
		return errors.New("create working area: schema name is empty")
	}

	schema := pgx.Identifier{s.schema}.Sanitize()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create working area: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		"DROP SCHEMA IF EXISTS " + schema + " CASCADE",
		"CREATE SCHEMA " + schema,
	}
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create working area %q: exec statement #%d: %w", s.schema, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create working area: commit tx: %w", err)
	}
	return nil
}

// Drop removes the run's schema and everything staged in it.
func (s *PostgresStore) Drop(ctx context.Context) (err error) {
	defer obs.Time(ctx, "staging.Drop")(&err)

	if s.DB == nil {
		return errors.New("drop working area: db is nil")
	}
	if s.schema == "" {
		return errors.New("drop working area: schema name is empty")
	}

	stmt := "DROP SCHEMA IF EXISTS " + pgx.Identifier{s.schema}.Sanitize() + " CASCADE"
	if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop working area %q: %w", s.schema, err)
	}
	return nil
}

// Write replaces the table at targetPath with records. Row order is kept.
func (s *PostgresStore) Write(
	ctx context.Context,
	records []map[string]any,
	targetPath string,
	mapping []config.FieldMapping,
) (err error) {
	defer obs.Time(ctx, "staging.Write")(&err)

	if s.DB == nil {
		return errors.New("staging write: db is nil")
	}
	if strings.TrimSpace(targetPath) == "" {
		return errors.New("staging write: target path is empty")
	}
	if len(mapping) == 0 {
		return errors.New("staging write: field mapping is empty")
	}

	table := pgx.Identifier{s.schema, targetPath}.Sanitize()

	cols := make([]string, 0, len(mapping)+1)
	defs := make([]string, 0, len(mapping)+1)
	cols = append(cols, pgx.Identifier{seqColumn}.Sanitize())
	defs = append(defs, pgx.Identifier{seqColumn}.Sanitize()+" BIGINT PRIMARY KEY")
	for _, f := range mapping {
		typ, err := sqlType(f.Type)
		if err != nil {
			return fmt.Errorf("staging write %q: %w", targetPath, err)
		}
		col := pgx.Identifier{f.Name}.Sanitize()
		cols = append(cols, col)
		defs = append(defs, col+" "+typ)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("staging write: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("staging write: drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("staging write: create %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+table+" ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(placeholders, ", ")+")")
	if err != nil {
		return fmt.Errorf("staging write: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		vals, err := rowValues(rec, mapping)
		if err != nil {
			return fmt.Errorf("staging write: record #%d: %w", i+1, err)
		}
		args := append([]any{int64(i)}, vals...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("staging write: insert record #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("staging write: commit tx: %w", err)
	}
	return nil
}

// Records reads the table at targetPath back in insertion order. NULL
// columns are omitted from the returned maps.
func (s *PostgresStore) Records(
	ctx context.Context,
	targetPath string,
	mapping []config.FieldMapping,
) (_ []map[string]any, err error) {
	defer obs.Time(ctx, "staging.Records")(&err)

	if s.DB == nil {
		return nil, errors.New("staging records: db is nil")
	}
	if len(mapping) == 0 {
		return nil, errors.New("staging records: field mapping is empty")
	}

	cols := make([]string, 0, len(mapping))
	for _, f := range mapping {
		cols = append(cols, pgx.Identifier{f.Name}.Sanitize())
	}

	q := "SELECT " + strings.Join(cols, ", ") +
		" FROM " + pgx.Identifier{s.schema, targetPath}.Sanitize() +
		" ORDER BY " + pgx.Identifier{seqColumn}.Sanitize()

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("staging records %q: query: %w", targetPath, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(mapping))
		ptrs := make([]any, len(mapping))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("staging records %q: scan rows: %w", targetPath, err)
		}

		rec := make(map[string]any, len(mapping))
		for i, f := range mapping {
			if vals[i] != nil {
				rec[f.Name] = vals[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staging records %q: row iteration: %w", targetPath, err)
	}

	return out, nil
}
