package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/utils"
)

type fixture struct {
	svc    TransferService
	pool   *database.ConnectionPool
	db     *sql.DB
	outDir string
	inDir  string
}

type fakeArchiver struct {
	archived []string
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, localPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, localPath)
	return "s3://bucket/" + filepath.Base(localPath), nil
}

func newFixture(t *testing.T, settings Settings, archiver *fakeArchiver) *fixture {
	t.Helper()
	connector, err := database.NewConnector(config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "store.db"),
	})
	require.NoError(t, err)
	pool := database.NewConnectionPool(connector)
	t.Cleanup(func() { pool.CloseAll() })

	db, err := pool.Acquire(context.Background(), "")
	require.NoError(t, err)

	settings.OutputDir = t.TempDir()
	var svc TransferService
	if archiver != nil {
		svc = NewTransferService(pool, settings, archiver)
	} else {
		svc = NewTransferService(pool, settings, nil)
	}
	return &fixture{svc: svc, pool: pool, db: db, outDir: settings.OutputDir, inDir: t.TempDir()}
}

func (f *fixture) exec(t *testing.T, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := f.db.Exec(s)
		require.NoError(t, err, s)
	}
}

func (f *fixture) seedOrders(t *testing.T) {
	f.exec(t,
		"CREATE TABLE orders (id TEXT, total TEXT, cust_id TEXT)",
		"CREATE TABLE customers (id TEXT, name TEXT)",
		"INSERT INTO customers VALUES ('c1', 'Ada'), ('c2', 'Grace, Hopper'), ('c3', 'Edsger')",
		"INSERT INTO orders VALUES ('o1', '10', 'c1'), ('o2', '20', 'c2'), ('o3', '30', 'c3')",
	)
}

func (f *fixture) writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.inDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) tables(t *testing.T) []string {
	t.Helper()
	tables, err := f.svc.ListTables(context.Background(), "")
	require.NoError(t, err)
	return tables
}

func ordersJoin() []model.JoinCondition {
	return []model.JoinCondition{{
		"joinType":   "INNER",
		"mainTable":  "orders",
		"mainColumn": "cust_id",
		"joinTable":  "customers",
		"joinColumn": "id",
	}}
}

func TestExportJoinedTable(t *testing.T) {
	archiver := &fakeArchiver{}
	f := newFixture(t, Settings{}, archiver)
	f.seedOrders(t)

	result, err := f.svc.Transfer(context.Background(), &model.TransferRequest{
		Source:         model.SourceClickHouse,
		TableName:      "orders",
		FilePath:       "/somewhere/else/orders_export.csv",
		Columns:        []string{"orders.id", "customers.name"},
		JoinConditions: ordersJoin(),
	})
	require.NoError(t, err)

	wantPath := filepath.Join(f.outDir, "orders_export.csv")
	assert.Equal(t, model.DirectionExport, result.Direction)
	assert.Equal(t, int64(3), result.RecordCount)
	assert.Equal(t, wantPath, result.OutputPath)
	assert.Equal(t, "s3://bucket/orders_export.csv", result.ArchiveURI)
	assert.Equal(t, []string{wantPath}, archiver.archived)

	data, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,name", lines[0])
	assert.ElementsMatch(t, []string{"o1,Ada", `o2,"Grace, Hopper"`, "o3,Edsger"}, lines[1:])
}

func TestExportArchiveFailure(t *testing.T) {
	f := newFixture(t, Settings{}, &fakeArchiver{err: errors.New("bucket missing")})
	f.seedOrders(t)

	_, err := f.svc.Transfer(context.Background(), &model.TransferRequest{
		Source:    model.SourceClickHouse,
		TableName: "orders",
		FilePath:  "out.csv",
		Columns:   []string{"id"},
	})
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeIOFailure))
}

func TestExportUnknownTable(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	_, err := f.svc.Transfer(context.Background(), &model.TransferRequest{
		Source:    model.SourceClickHouse,
		TableName: "ghost",
		FilePath:  "out.csv",
		Columns:   []string{"id"},
	})
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeQueryFailed))
	assert.Equal(t, int64(1), f.svc.Stats().ByDirection[model.DirectionExport].Failed)
}

func TestJoinPolicy(t *testing.T) {
	incomplete := append(ordersJoin(), model.JoinCondition{"joinType": "LEFT", "mainTable": "orders"})
	req := func() *model.TransferRequest {
		return &model.TransferRequest{
			Source:         model.SourceClickHouse,
			TableName:      "orders",
			FilePath:       "out.csv",
			Columns:        []string{"orders.id", "customers.name"},
			JoinConditions: incomplete,
		}
	}

	dropping := newFixture(t, Settings{JoinPolicy: model.JoinPolicyDrop}, nil)
	dropping.seedOrders(t)
	result, err := dropping.svc.Transfer(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.RecordCount)

	rejecting := newFixture(t, Settings{JoinPolicy: model.JoinPolicyReject}, nil)
	rejecting.seedOrders(t)
	_, err = rejecting.svc.Transfer(context.Background(), req())
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeMalformedInput))
	var incompleteErr *model.IncompleteJoinError
	assert.ErrorAs(t, err, &incompleteErr)
}

func TestImportCreatesTable(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	path := f.writeInput(t, "people.csv", "id,name,city\n1,\"Doe, Jane\",Oslo\n2,Bob,\n")

	result, err := f.svc.Transfer(context.Background(), &model.TransferRequest{
		Source:    model.SourceFlatFile,
		TableName: "people",
		FilePath:  path,
		Columns:   []string{"id", "name"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.DirectionImport, result.Direction)
	assert.Equal(t, int64(2), result.RecordCount)
	assert.True(t, result.TableCreated)

	columns, err := f.svc.ListColumns(context.Background(), "people", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, columns)

	var name string
	require.NoError(t, f.db.QueryRow("SELECT name FROM people WHERE id = '1'").Scan(&name))
	assert.Equal(t, "Doe, Jane", name)
}

func TestImportAllColumnsWhenNoneRequested(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	path := f.writeInput(t, "all.csv", "a,b\n1,2\n")

	_, err := f.svc.Transfer(context.Background(), &model.TransferRequest{
		Source: model.SourceFlatFile, TableName: "all_cols", FilePath: path,
	})
	require.NoError(t, err)

	byTable, err := f.svc.ListColumnsForTables(context.Background(), []string{"all_cols"}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"all_cols": {"a", "b"}}, byTable)
}

func TestImportFailures(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, &model.TransferRequest{
		Source: model.SourceFlatFile, TableName: "t", FilePath: filepath.Join(f.inDir, "absent.csv"),
	})
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeNotFound))

	headerOnly := f.writeInput(t, "header.csv", "a,b\n")
	_, err = f.svc.Transfer(ctx, &model.TransferRequest{
		Source: model.SourceFlatFile, TableName: "empty", FilePath: headerOnly,
	})
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeEmptyInput))

	_, err = f.svc.Transfer(ctx, &model.TransferRequest{
		Source: model.SourceFlatFile, TableName: "t", FilePath: headerOnly, Columns: []string{"zzz"},
	})
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeColumnNotFound))

	assert.Empty(t, f.tables(t))
}

func TestPreviewFileCapsRowsAndWritesNothing(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	var b strings.Builder
	b.WriteString("n,sq\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i*i)
	}
	path := f.writeInput(t, "big.csv", b.String())

	preview, err := f.svc.Preview(context.Background(), &model.TransferRequest{
		Source:    model.SourceFlatFile,
		FilePath:  path,
		TableName: "must_not_exist",
		Columns:   []string{"sq"},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, preview.Limit)
	assert.Len(t, preview.Rows, 100)
	assert.Equal(t, []string{"sq"}, preview.Columns)
	v, _ := preview.Rows[99].Get("sq")
	assert.Equal(t, "9801", v)

	assert.Empty(t, f.tables(t))
	entries, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreviewStoreCapsRows(t *testing.T) {
	f := newFixture(t, Settings{PreviewLimit: 5}, nil)
	f.exec(t, "CREATE TABLE nums (n TEXT)")
	for i := 0; i < 12; i++ {
		f.exec(t, fmt.Sprintf("INSERT INTO nums VALUES ('%d')", i))
	}

	preview, err := f.svc.Preview(context.Background(), &model.TransferRequest{
		Source:    model.SourceClickHouse,
		TableName: "nums",
		Columns:   []string{"n"},
	})
	require.NoError(t, err)
	assert.Len(t, preview.Rows, 5)
	assert.Equal(t, []string{"n"}, preview.Columns)

	entries, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(1), f.svc.Stats().Previews)
}

func TestPreviewLimitNeverExceedsHundred(t *testing.T) {
	f := newFixture(t, Settings{PreviewLimit: 500}, nil)
	f.exec(t, "CREATE TABLE nums (n TEXT)")
	for i := 0; i < 150; i++ {
		f.exec(t, fmt.Sprintf("INSERT INTO nums VALUES ('%d')", i))
	}

	preview, err := f.svc.Preview(context.Background(), &model.TransferRequest{
		Source:    model.SourceClickHouse,
		TableName: "nums",
		Columns:   []string{"n"},
	})
	require.NoError(t, err)
	assert.Len(t, preview.Rows, 100)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, Settings{}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.TransferRequest
		run  func(*model.TransferRequest) error
	}{
		{"nil request", nil, func(r *model.TransferRequest) error { _, err := f.svc.Transfer(ctx, r); return err }},
		{"unknown source", &model.TransferRequest{Source: "kafka", TableName: "t", FilePath: "f"},
			func(r *model.TransferRequest) error { _, err := f.svc.Transfer(ctx, r); return err }},
		{"export without file", &model.TransferRequest{Source: model.SourceClickHouse, TableName: "t", Columns: []string{"a"}},
			func(r *model.TransferRequest) error { _, err := f.svc.Transfer(ctx, r); return err }},
		{"import without table", &model.TransferRequest{Source: model.SourceFlatFile, FilePath: "f.csv"},
			func(r *model.TransferRequest) error { _, err := f.svc.Transfer(ctx, r); return err }},
		{"preview store without table", &model.TransferRequest{Source: model.SourceClickHouse, Columns: []string{"a"}},
			func(r *model.TransferRequest) error { _, err := f.svc.Preview(ctx, r); return err }},
		{"blank column", &model.TransferRequest{Source: model.SourceFlatFile, FilePath: "f.csv", Columns: []string{""}},
			func(r *model.TransferRequest) error { _, err := f.svc.Preview(ctx, r); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(tt.req)
			assert.True(t, utils.IsErrorType(err, utils.ErrCodeValidationFailed), "got %v", err)
		})
	}
}

func TestStatsCollector(t *testing.T) {
	sc := NewStatsCollector()
	sc.RecordTransfer(model.DirectionImport, nil, 0, 10)
	sc.RecordTransfer(model.DirectionImport, errors.New("boom"), 0, 0)

	stats := sc.Snapshot().ByDirection[model.DirectionImport]
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(10), stats.RowsMoved)
	assert.Equal(t, "boom", stats.LastError)
}
