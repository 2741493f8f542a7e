package sqlbuilder

import (
	"fmt"
	"strconv"
	"strings"

	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
)

// Select is a structured SELECT over one base table and an ordered join list.
// Every identifier is sanitized by Render; nothing is concatenated before then.
type Select struct {
	from       string
	projection []string
	joins      []model.JoinSpec
	limit      int
}

// NewSelect starts a query over the base table.
func NewSelect(from string) *Select {
	return &Select{from: from}
}

// Columns appends projected columns. Tokens may be `table.column`; bare
// names are qualified with the base table.
func (s *Select) Columns(tokens ...string) *Select {
	s.projection = append(s.projection, tokens...)
	return s
}

// Join appends join clauses in order.
func (s *Select) Join(joins ...model.JoinSpec) *Select {
	s.joins = append(s.joins, joins...)
	return s
}

// Limit caps the result. Zero or negative means no LIMIT clause.
func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

// Render validates the clauses and produces the SQL text.
func (s *Select) Render() (string, error) {
	if strings.TrimSpace(s.from) == "" {
		return "", utils.NewMalformedInputError("base table name is required", nil)
	}
	if len(s.projection) == 0 {
		return "", utils.NewMalformedInputError("at least one column is required", nil)
	}

	base := Sanitize(s.from)
	cols := make([]string, len(s.projection))
	for i, token := range s.projection {
		ref := model.ParseColumnRef(token)
		if ref.Column == "" || (ref.Table == "" && strings.HasPrefix(token, ".")) {
			return "", utils.NewMalformedInputError(fmt.Sprintf("invalid column reference %q", token), nil)
		}
		table := base
		if ref.Table != "" {
			table = Sanitize(ref.Table)
		}
		cols[i] = table + "." + Sanitize(ref.Column)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(base)

	for i, j := range s.joins {
		if !j.Complete() {
			return "", utils.NewMalformedInputError(fmt.Sprintf("join %d is incomplete", i), nil)
		}
		joinTable := Sanitize(j.JoinTable)
		fmt.Fprintf(&b, " %s JOIN %s ON %s.%s = %s.%s",
			j.JoinType, joinTable,
			Sanitize(j.MainTable), Sanitize(j.MainColumn),
			joinTable, Sanitize(j.JoinColumn))
	}

	if s.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.limit))
	}
	return b.String(), nil
}

// BuildQuery renders a SELECT of columns from baseTable with the given joins.
func BuildQuery(baseTable string, columns []string, joins []model.JoinSpec) (string, error) {
	return NewSelect(baseTable).Columns(columns...).Join(joins...).Render()
}

// BuildPreviewQuery is BuildQuery with a row limit appended.
func BuildPreviewQuery(baseTable string, columns []string, joins []model.JoinSpec, limit int) (string, error) {
	return NewSelect(baseTable).Columns(columns...).Join(joins...).Limit(limit).Render()
}
