package security

import (
	"fmt"
	"strings"
	"unicode"

	"vitess.io/vitess/go/vt/sqlparser"

	"ingestion-gateway/internal/utils"
)

// DefaultMaxQueryLength bounds generated statements
const DefaultMaxQueryLength = 64 * 1024

// QueryShape is what the guard learned about a statement
type QueryShape struct {
	// Parsed is false when the statement uses syntax outside the MySQL
	// grammar; such statements are passed through unchecked.
	Parsed     bool
	Tables     int
	Joins      int
	HasLimit   bool
	Complexity int
}

// SQLValidator checks generated SELECT statements before they reach the store
type SQLValidator struct {
	maxQueryLength int
	parser         *sqlparser.Parser
}

// NewSQLValidator creates a new SQLValidator instance
func NewSQLValidator(maxQueryLength int) *SQLValidator {
	if maxQueryLength <= 0 {
		maxQueryLength = DefaultMaxQueryLength
	}
	return &SQLValidator{
		maxQueryLength: maxQueryLength,
		parser:         sqlparser.NewTestParser(),
	}
}

// ValidateSelect rejects statements that are empty, oversized, carry control
// characters, or parse as anything other than a single SELECT.
func (sv *SQLValidator) ValidateSelect(sql string) (QueryShape, error) {
	if strings.TrimSpace(sql) == "" {
		return QueryShape{}, utils.NewMalformedInputError("query cannot be empty", nil)
	}
	if len(sql) > sv.maxQueryLength {
		return QueryShape{}, utils.NewMalformedInputError(
			fmt.Sprintf("query exceeds maximum length of %d bytes", sv.maxQueryLength), nil)
	}
	if hasControlCharacters(sql) {
		return QueryShape{}, utils.NewMalformedInputError("query contains control characters", nil)
	}

	stmt, err := sv.parser.Parse(sql)
	if err != nil {
		return QueryShape{}, nil
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return QueryShape{}, utils.NewMalformedInputError("only SELECT statements are allowed", nil)
	}
	return shapeOf(sel), nil
}

func shapeOf(sel *sqlparser.Select) QueryShape {
	shape := QueryShape{Parsed: true, HasLimit: sel.Limit != nil}
	for _, expr := range sel.From {
		countTables(expr, &shape)
	}

	// Base complexity, plus each join and the limit
	shape.Complexity = 1 + shape.Joins*5
	if shape.HasLimit {
		shape.Complexity++
	}
	return shape
}

func countTables(expr sqlparser.TableExpr, shape *QueryShape) {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		shape.Tables++
	case *sqlparser.JoinTableExpr:
		shape.Joins++
		countTables(t.LeftExpr, shape)
		countTables(t.RightExpr, shape)
	}
}

func hasControlCharacters(sql string) bool {
	for _, r := range sql {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
