package database

import (
	"context"
	"fmt"

	"ingestion-gateway/internal/utils"
)

// ListTables returns the table names visible in the current database.
func ListTables(ctx context.Context, db Querier, dialect Dialect) ([]string, error) {
	return listNames(ctx, db, dialect.ListTablesSQL)
}

// ListColumns returns table's column names in declaration order. A table
// with no columns does not exist.
func ListColumns(ctx context.Context, db Querier, dialect Dialect, table string) ([]string, error) {
	columns, err := listNames(ctx, db, dialect.ListColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, utils.NewNotFoundError(fmt.Sprintf("table %s", table))
	}
	return columns, nil
}

func listNames(ctx context.Context, db Querier, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewQueryError(err, query)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, utils.NewQueryError(err, "scan name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewQueryError(err, query)
	}
	return names, nil
}
