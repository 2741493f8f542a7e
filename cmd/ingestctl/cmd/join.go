package cmd

import (
	"fmt"
	"strings"

	"ingestion-gateway/internal/model"
)

// parseJoinFlag turns TYPE:mainTable.mainColumn=joinTable.joinColumn into a
// join condition. The type is passed through verbatim.
func parseJoinFlag(value string) (model.JoinCondition, error) {
	joinType, rest, ok := strings.Cut(value, ":")
	if !ok || strings.TrimSpace(joinType) == "" {
		return nil, fmt.Errorf("join %q: expected TYPE:mainTable.mainColumn=joinTable.joinColumn", value)
	}
	left, right, ok := strings.Cut(rest, "=")
	if !ok {
		return nil, fmt.Errorf("join %q: missing '='", value)
	}

	mainTable, mainColumn, err := splitQualified(left)
	if err != nil {
		return nil, fmt.Errorf("join %q: %w", value, err)
	}
	joinTable, joinColumn, err := splitQualified(right)
	if err != nil {
		return nil, fmt.Errorf("join %q: %w", value, err)
	}

	return model.JoinCondition{
		"joinType":   strings.TrimSpace(joinType),
		"mainTable":  mainTable,
		"mainColumn": mainColumn,
		"joinTable":  joinTable,
		"joinColumn": joinColumn,
	}, nil
}

func splitQualified(s string) (string, string, error) {
	table, column, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || table == "" || column == "" {
		return "", "", fmt.Errorf("%q is not table.column", s)
	}
	return table, column, nil
}

func parseJoinFlags(values []string) ([]model.JoinCondition, error) {
	var out []model.JoinCondition
	for _, v := range values {
		cond, err := parseJoinFlag(v)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}
