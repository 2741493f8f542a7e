package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
	"ingestion-gateway/internal/utils/sqlbuilder"
)

// Store is the write side of a store connection
type Store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// LoadOptions controls destination table DDL
type LoadOptions struct {
	// TextType is the column type used when ColumnTypes has no entry;
	// empty means the dialect's text type
	TextType string
	// Engine overrides the dialect's table engine clause
	Engine      string
	ColumnTypes map[string]string
}

// LoadReport describes what CreateAndLoad left behind. TableCreated is true
// once the CREATE TABLE IF NOT EXISTS statement has succeeded, whether or not
// the table already existed.
type LoadReport struct {
	Table        string `json:"table"`
	TableCreated bool   `json:"tableCreated"`
	RowsLoaded   int64  `json:"rowsLoaded"`
}

// Loader creates destination tables and batch-inserts text rows.
//
// Loading is two steps. Prepare issues idempotent DDL; Load submits every row
// in one transaction-scoped batch. If Load fails after Prepare succeeded the
// table exists with zero rows from this call; nothing is dropped.
type Loader struct {
	db      Store
	dialect Dialect
	opts    LoadOptions
}

// NewLoader creates a loader for db in dialect.
func NewLoader(db Store, dialect Dialect, opts LoadOptions) *Loader {
	if opts.TextType == "" {
		opts.TextType = dialect.TextType
	}
	if opts.Engine == "" {
		opts.Engine = dialect.TableEngine
	}
	// Column names match overrides case-insensitively; config keys arrive lowercased.
	if len(opts.ColumnTypes) > 0 {
		folded := make(map[string]string, len(opts.ColumnTypes))
		for column, t := range opts.ColumnTypes {
			folded[strings.ToLower(column)] = t
		}
		opts.ColumnTypes = folded
	}
	return &Loader{db: db, dialect: dialect, opts: opts}
}

func (l *Loader) columnType(column string) (string, error) {
	t := l.opts.TextType
	if override, ok := l.opts.ColumnTypes[strings.ToLower(column)]; ok {
		t = override
	}
	if !validColumnType(t) {
		return "", utils.NewValidationError("invalid column type", fmt.Sprintf("%s: %q", column, t))
	}
	return t, nil
}

func checkTarget(table string, columns []string) error {
	if strings.TrimSpace(table) == "" {
		return utils.NewMalformedInputError("destination table name is required", nil)
	}
	if len(columns) == 0 {
		return utils.NewMalformedInputError("at least one column is required", nil)
	}
	return nil
}

// CreateTableSQL renders the destination DDL.
func (l *Loader) CreateTableSQL(table string, columns []string) (string, error) {
	if err := checkTarget(table, columns); err != nil {
		return "", err
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		t, err := l.columnType(c)
		if err != nil {
			return "", err
		}
		defs[i] = sqlbuilder.Sanitize(c) + " " + t
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sqlbuilder.Sanitize(table), strings.Join(defs, ", "))
	if l.opts.Engine != "" {
		ddl += " ENGINE = " + l.opts.Engine
	}
	return ddl, nil
}

// InsertSQL renders the parameterized insert, one placeholder per column.
func (l *Loader) InsertSQL(table string, columns []string) (string, error) {
	if err := checkTarget(table, columns); err != nil {
		return "", err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlbuilder.Sanitize(table),
		strings.Join(sqlbuilder.SanitizeAll(columns), ", "),
		placeholders), nil
}

// Prepare creates the destination table if it does not exist.
func (l *Loader) Prepare(ctx context.Context, table string, columns []string) error {
	ddl, err := l.CreateTableSQL(table, columns)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return utils.NewLoadError(err, fmt.Sprintf("create table %s", table))
	}
	return nil
}

// Load inserts rows as one batch. Null cells are bound as empty strings.
// Any failure rolls back the batch and nothing from this call is kept.
func (l *Loader) Load(ctx context.Context, table string, columns []string, rows []model.Row) (int64, error) {
	insert, err := l.InsertSQL(table, columns)
	if err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, utils.NewLoadError(err, "begin batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, utils.NewLoadError(err, "prepare batch")
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for n, row := range rows {
		for i, cell := range row.Cells(columns) {
			if cell == nil {
				args[i] = ""
			} else {
				args[i] = *cell
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, utils.NewLoadError(err, fmt.Sprintf("append row %d", n+1))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, utils.NewLoadError(err, "send batch")
	}
	return int64(len(rows)), nil
}

// CreateAndLoad runs Prepare then Load. Zero rows fail with EmptyInput before
// any statement is issued.
func (l *Loader) CreateAndLoad(ctx context.Context, table string, columns []string, rows []model.Row) (LoadReport, error) {
	report := LoadReport{Table: table}
	if len(rows) == 0 {
		return report, utils.NewEmptyInputError("no data rows to load")
	}

	if err := l.Prepare(ctx, table, columns); err != nil {
		return report, err
	}
	report.TableCreated = true

	n, err := l.Load(ctx, table, columns, rows)
	if err != nil {
		return report, utils.NewErrorBuilder(utils.ErrCodeLoadFailure).
			WithMessage(fmt.Sprintf("table %s exists, 0 rows loaded", table)).
			WithCause(err).
			Build()
	}
	report.RowsLoaded = n
	return report, nil
}
