package model

import (
	"fmt"
	"strings"
)

// JoinCondition is the loosely-typed wire form of a join, as posted by clients.
// Expected keys are joinType, mainTable, mainColumn, joinTable and joinColumn.
type JoinCondition map[string]string

// JoinSpec is an equi-join: MainTable.MainColumn = JoinTable.JoinColumn.
// JoinType is rendered verbatim in front of JOIN.
type JoinSpec struct {
	JoinType   string `json:"joinType"`
	MainTable  string `json:"mainTable"`
	MainColumn string `json:"mainColumn"`
	JoinTable  string `json:"joinTable"`
	JoinColumn string `json:"joinColumn"`
}

var joinConditionKeys = []string{"joinType", "mainTable", "mainColumn", "joinTable", "joinColumn"}

// Complete reports whether all five fields are set.
func (j JoinSpec) Complete() bool {
	return len(j.missing()) == 0
}

func (j JoinSpec) missing() []string {
	var missing []string
	for i, v := range []string{j.JoinType, j.MainTable, j.MainColumn, j.JoinTable, j.JoinColumn} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, joinConditionKeys[i])
		}
	}
	return missing
}

// JoinPolicy decides what happens to a join condition with missing fields
type JoinPolicy string

const (
	// JoinPolicyDrop omits incomplete conditions
	JoinPolicyDrop JoinPolicy = "drop"
	// JoinPolicyReject fails the whole request
	JoinPolicyReject JoinPolicy = "reject"
)

// ParseJoinPolicy validates a configured policy name.
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch p := JoinPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case JoinPolicyDrop, JoinPolicyReject:
		return p, nil
	case "":
		return JoinPolicyDrop, nil
	default:
		return "", fmt.Errorf("unknown join policy %q (expected drop or reject)", s)
	}
}

// IncompleteJoinError names the first join condition rejected under JoinPolicyReject
type IncompleteJoinError struct {
	Index   int
	Missing []string
}

func (e *IncompleteJoinError) Error() string {
	return fmt.Sprintf("join condition %d is missing %s", e.Index, strings.Join(e.Missing, ", "))
}

// ToJoinSpec converts the wire form without checking completeness.
func (c JoinCondition) ToJoinSpec() JoinSpec {
	return JoinSpec{
		JoinType:   c["joinType"],
		MainTable:  c["mainTable"],
		MainColumn: c["mainColumn"],
		JoinTable:  c["joinTable"],
		JoinColumn: c["joinColumn"],
	}
}

// ToJoinSpecs converts join conditions in request order. Under JoinPolicyDrop
// incomplete conditions are skipped and their indexes returned in dropped;
// under JoinPolicyReject the first incomplete condition yields an
// *IncompleteJoinError.
func ToJoinSpecs(conditions []JoinCondition, policy JoinPolicy) (specs []JoinSpec, dropped []int, err error) {
	specs = make([]JoinSpec, 0, len(conditions))
	for i, c := range conditions {
		spec := c.ToJoinSpec()
		if missing := spec.missing(); len(missing) > 0 {
			if policy == JoinPolicyReject {
				return nil, nil, &IncompleteJoinError{Index: i, Missing: missing}
			}
			dropped = append(dropped, i)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, dropped, nil
}
