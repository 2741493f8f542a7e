package database

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"time"

	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
)

// Querier is the read side of a store connection
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Cursor streams a query result as text rows. Column names come from the
// result metadata, so joined and aliased columns are named as the store
// reports them.
type Cursor struct {
	rows    *sql.Rows
	columns []string
}

// Query executes query and opens a cursor over its result.
func Query(ctx context.Context, db Querier, query string, args ...any) (*Cursor, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewQueryError(err, query)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, utils.NewQueryError(err, "read result metadata")
	}
	return &Cursor{rows: rows, columns: columns}, nil
}

func (c *Cursor) Columns() []string {
	return c.columns
}

// Rows yields each result row once. The cursor is closed when the sequence
// ends; a mid-stream driver error is yielded as a query failure.
func (c *Cursor) Rows() iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		defer c.rows.Close()

		raw := make([]any, len(c.columns))
		dest := make([]any, len(c.columns))
		for i := range raw {
			dest[i] = &raw[i]
		}

		for c.rows.Next() {
			if err := c.rows.Scan(dest...); err != nil {
				yield(model.Row{}, utils.NewQueryError(err, "scan row"))
				return
			}
			values := make([]*string, len(raw))
			for i, v := range raw {
				values[i] = textOf(v)
			}
			if !yield(model.NewRow(c.columns, values), nil) {
				return
			}
		}
		if err := c.rows.Err(); err != nil {
			yield(model.Row{}, utils.NewQueryError(err, "iterate rows"))
		}
	}
}

func (c *Cursor) Close() error {
	return c.rows.Close()
}

const (
	dateTimeLayout     = "2006-01-02 15:04:05"
	dateTimeNanoLayout = "2006-01-02 15:04:05.999999999"
)

// textOf renders a scanned driver value as cell text. nil and nil pointers
// are null cells.
func textOf(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case time.Time:
		if x.Nanosecond() == 0 {
			s = x.Format(dateTimeLayout)
		} else {
			s = x.Format(dateTimeNanoLayout)
		}
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil
			}
			if str, ok := v.(fmt.Stringer); ok {
				s = str.String()
				break
			}
			return textOf(rv.Elem().Interface())
		}
		s = fmt.Sprint(v)
	}
	return &s
}
