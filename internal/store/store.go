// Package store loads sessions into an in-memory SQLite database for ad-hoc queries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Table is the name sessions are loaded under.
const Table = "sessions"

// Derived column names added next to the merged log columns.
const (
	ColParsedDate      = "parsed_date"
	ColDurationSeconds = "duration_seconds"
)

// ErrEmptyQuery is returned when no SQL is given.
var ErrEmptyQuery = errors.New("empty query")

// Store wraps an in-memory SQLite database.
type Store struct {
	db *sql.DB
}

// QueryResult holds the header and rendered cells of a query.
type QueryResult struct {
	Columns []string
	Rows    [][]string
}

// Open creates an empty in-memory database.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on open failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load creates the sessions table for the given columns and inserts every session.
// Numeric columns are stored as REAL, everything else as TEXT.
func (s *Store) Load(ctx context.Context, columns []string, sessions []model.Session) (err error) {
	numeric := map[string]bool{}
	for _, col := range pipeline.NumericColumns(sessions) {
		numeric[col] = true
	}
	defs := make([]string, 0, len(columns)+2)
	names := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		typ := "TEXT"
		if numeric[col] {
			typ = "REAL"
		}
		defs = append(defs, quoteIdent(col)+" "+typ)
		names = append(names, quoteIdent(col))
	}
	defs = append(defs, quoteIdent(ColParsedDate)+" TEXT", quoteIdent(ColDurationSeconds)+" REAL")
	names = append(names, quoteIdent(ColParsedDate), quoteIdent(ColDurationSeconds))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin load: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(Table)); err != nil {
		return fmt.Errorf("failed to reset table: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(Table), strings.Join(defs, ", "))
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(Table), strings.Join(names, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	args := make([]any, len(names))
	for _, session := range sessions {
		for i, col := range columns {
			args[i] = cellArg(session.Values[col])
		}
		args[len(columns)] = dateArg(session.ParsedDate)
		args[len(columns)+1] = durationArg(session.DurationSeconds)
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert session from %s: %w", session.Source, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	return nil
}

// Query runs a read query and renders every cell as text. NULL becomes "".
func (s *Store) Query(ctx context.Context, query string) (QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return QueryResult{}, ErrEmptyQuery
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to run query: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read columns: %w", err)
	}
	result := QueryResult{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatCell(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}

func cellArg(v model.Value) any {
	switch v.Kind {
	case model.KindNumber:
		return v.Num
	case model.KindString:
		return v.Str
	default:
		return nil
	}
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func durationArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
