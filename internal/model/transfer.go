package model

import (
	"strings"
)

// Source identifies which endpoint a transfer reads from
type Source string

const (
	SourceClickHouse Source = "clickhouse"
	SourceFlatFile   Source = "flatfile"
)

// Direction names the two supported transfer directions
type Direction string

const (
	DirectionExport Direction = "clickhouse_to_flatfile"
	DirectionImport Direction = "flatfile_to_clickhouse"
)

// TransferRequest is the request body shared by preview and start.
//
// When Source is clickhouse, TableName is the base table to query, Columns and
// JoinConditions shape the SELECT, and FilePath names the output file. When
// Source is flatfile, FilePath is the input file and TableName the destination
// table.
type TransferRequest struct {
	Source         Source          `json:"source" validate:"required,oneof=clickhouse flatfile"`
	TableName      string          `json:"tableName"`
	FilePath       string          `json:"filePath"`
	Columns        []string        `json:"columns" validate:"dive,required"`
	JoinConditions []JoinCondition `json:"joinConditions"`
	Credential     string          `json:"jwtToken,omitempty"`
}

// ColumnRefs parses the requested column tokens.
func (r *TransferRequest) ColumnRefs() []ColumnRef {
	refs := make([]ColumnRef, len(r.Columns))
	for i, c := range r.Columns {
		refs[i] = ParseColumnRef(c)
	}
	return refs
}

// ColumnRef is a requested column, optionally qualified with its table.
// An empty Table means the base table of the query.
type ColumnRef struct {
	Table  string `json:"table,omitempty"`
	Column string `json:"column"`
}

// ParseColumnRef splits a `table.column` token on its first dot.
// Tokens without a dot are bare column names.
func ParseColumnRef(token string) ColumnRef {
	if i := strings.IndexByte(token, '.'); i >= 0 {
		return ColumnRef{Table: token[:i], Column: token[i+1:]}
	}
	return ColumnRef{Column: token}
}

func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// TransferResult reports a completed transfer
type TransferResult struct {
	Direction    Direction `json:"direction"`
	RecordCount  int64     `json:"recordCount"`
	TableName    string    `json:"tableName,omitempty"`
	OutputPath   string    `json:"outputPath,omitempty"`
	ArchiveURI   string    `json:"archiveUri,omitempty"`
	TableCreated bool      `json:"tableCreated,omitempty"`
	DurationMs   int64     `json:"durationMs"`
}

// PreviewResult holds at most Limit rows read from either endpoint
type PreviewResult struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Limit   int      `json:"limit"`
}
