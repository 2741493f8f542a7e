package database

import "fmt"

// Dialect holds the store-specific SQL the transfer engine needs.
// Identifier quoting is shared: both dialects accept backticks.
type Dialect struct {
	Name       string
	DriverName string
	// TableEngine is appended as `ENGINE = <TableEngine>`; empty omits it
	TableEngine    string
	TextType       string
	ListTablesSQL  string
	ListColumnsSQL string
}

var ClickHouse = Dialect{
	Name:          "clickhouse",
	DriverName:    "clickhouse",
	TableEngine:   "MergeTree() ORDER BY tuple()",
	TextType:      "String",
	ListTablesSQL: "SHOW TABLES",
	ListColumnsSQL: "SELECT name FROM system.columns " +
		"WHERE database = currentDatabase() AND table = ? ORDER BY position",
}

var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	TextType:   "TEXT",
	ListTablesSQL: "SELECT name FROM sqlite_master " +
		"WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	ListColumnsSQL: "SELECT name FROM pragma_table_info(?) ORDER BY cid",
}

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case ClickHouse.Name:
		return ClickHouse, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver: %s", driver)
	}
}
