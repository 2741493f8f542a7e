package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/flatfile"
	"ingestion-gateway/internal/logger"
	"ingestion-gateway/internal/middleware"
	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/security"
	"ingestion-gateway/internal/storage"
	"ingestion-gateway/internal/utils"
	"ingestion-gateway/internal/utils/sqlbuilder"
)

// maxPreviewLimit is also the default preview size
const maxPreviewLimit = 100

// StoreOpener hands out live store connections for a caller credential.
// Returned handles are owned by the opener.
type StoreOpener interface {
	Acquire(ctx context.Context, credential string) (*sql.DB, error)
	Dialect() database.Dialect
}

// Settings tune the transfer engine
type Settings struct {
	PreviewLimit int
	// OutputDir receives export files; only the base name of the requested
	// path is kept
	OutputDir  string
	JoinPolicy model.JoinPolicy
	Load       database.LoadOptions
}

type TransferService interface {
	ListTables(ctx context.Context, credential string) ([]string, error)
	ListColumns(ctx context.Context, table, credential string) ([]string, error)
	ListColumnsForTables(ctx context.Context, tables []string, credential string) (map[string][]string, error)
	FileColumns(ctx context.Context, path string) ([]string, error)
	Preview(ctx context.Context, req *model.TransferRequest) (*model.PreviewResult, error)
	Transfer(ctx context.Context, req *model.TransferRequest) (*model.TransferResult, error)
	Stats() TransferStats
}

type transferService struct {
	store    StoreOpener
	settings Settings
	archiver storage.Archiver
	validate *validator.Validate
	queries  *security.SQLValidator
	stats    *StatsCollector
}

// NewTransferService creates a new instance of TransferService. archiver may
// be nil, in which case exports stay local.
func NewTransferService(store StoreOpener, settings Settings, archiver storage.Archiver) TransferService {
	if settings.PreviewLimit <= 0 || settings.PreviewLimit > maxPreviewLimit {
		settings.PreviewLimit = maxPreviewLimit
	}
	if settings.JoinPolicy == "" {
		settings.JoinPolicy = model.JoinPolicyDrop
	}
	return &transferService{
		store:    store,
		settings: settings,
		archiver: archiver,
		validate: validator.New(),
		queries:  security.NewSQLValidator(security.DefaultMaxQueryLength),
		stats:    NewStatsCollector(),
	}
}

func (s *transferService) ListTables(ctx context.Context, credential string) ([]string, error) {
	db, err := s.store.Acquire(ctx, credential)
	if err != nil {
		return nil, err
	}
	return database.ListTables(ctx, db, s.store.Dialect())
}

func (s *transferService) ListColumns(ctx context.Context, table, credential string) ([]string, error) {
	if strings.TrimSpace(table) == "" {
		return nil, utils.NewValidationError("tableName is required", "")
	}
	db, err := s.store.Acquire(ctx, credential)
	if err != nil {
		return nil, err
	}
	return database.ListColumns(ctx, db, s.store.Dialect(), table)
}

// ListColumnsForTables fails as a whole if any table cannot be described.
func (s *transferService) ListColumnsForTables(ctx context.Context, tables []string, credential string) (map[string][]string, error) {
	if len(tables) == 0 {
		return nil, utils.NewValidationError("at least one table is required", "")
	}
	db, err := s.store.Acquire(ctx, credential)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(tables))
	for _, table := range tables {
		columns, err := database.ListColumns(ctx, db, s.store.Dialect(), table)
		if err != nil {
			return nil, err
		}
		out[table] = columns
	}
	return out, nil
}

func (s *transferService) FileColumns(ctx context.Context, path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, utils.NewValidationError("filePath is required", "")
	}
	return flatfile.ReadHeader(path)
}

// Preview reads at most the configured number of rows from either source.
// It never writes a file or touches a destination table.
func (s *transferService) Preview(ctx context.Context, req *model.TransferRequest) (*model.PreviewResult, error) {
	if err := s.validateRequest(req, false); err != nil {
		return nil, err
	}
	limit := s.settings.PreviewLimit

	var (
		columns []string
		rows    []model.Row
		err     error
	)
	switch req.Source {
	case model.SourceClickHouse:
		columns, rows, err = s.previewStore(ctx, req, limit)
	case model.SourceFlatFile:
		columns, rows, err = s.previewFile(req, limit)
	}

	middleware.RecordPreview(string(req.Source), err)
	s.stats.RecordPreview()
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("source", string(req.Source)).Msg("preview failed")
		return nil, err
	}
	if rows == nil {
		rows = []model.Row{}
	}
	return &model.PreviewResult{Columns: columns, Rows: rows, Limit: limit}, nil
}

func (s *transferService) previewStore(ctx context.Context, req *model.TransferRequest, limit int) ([]string, []model.Row, error) {
	joins, err := s.joinSpecs(ctx, req.JoinConditions)
	if err != nil {
		return nil, nil, err
	}
	query, err := sqlbuilder.BuildPreviewQuery(req.TableName, req.Columns, joins, limit)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkQuery(ctx, query); err != nil {
		return nil, nil, err
	}
	db, err := s.store.Acquire(ctx, req.Credential)
	if err != nil {
		return nil, nil, err
	}
	cursor, err := database.Query(ctx, db, query)
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Close()

	rows, err := collectAtMost(cursor.Rows(), limit)
	return cursor.Columns(), rows, err
}

func (s *transferService) previewFile(req *model.TransferRequest, limit int) ([]string, []model.Row, error) {
	columns, seq, err := flatfile.ReadRows(req.FilePath, req.Columns, limit)
	if err != nil {
		return nil, nil, err
	}
	rows, err := collectAtMost(seq, limit)
	return columns, rows, err
}

// Transfer runs a full export or import, chosen by the request source.
func (s *transferService) Transfer(ctx context.Context, req *model.TransferRequest) (*model.TransferResult, error) {
	if err := s.validateRequest(req, true); err != nil {
		return nil, err
	}

	direction := model.DirectionExport
	if req.Source == model.SourceFlatFile {
		direction = model.DirectionImport
	}
	ctx, log := logger.WithFields(ctx, map[string]any{
		"direction": string(direction),
		"table":     req.TableName,
		"file":      req.FilePath,
	})
	log.Info().Int("columns", len(req.Columns)).Msg("transfer started")

	start := time.Now()
	var (
		result *model.TransferResult
		err    error
	)
	if direction == model.DirectionExport {
		result, err = s.export(ctx, req)
	} else {
		result, err = s.load(ctx, req)
	}
	elapsed := time.Since(start)

	var rows int64
	if result != nil {
		rows = result.RecordCount
	}
	middleware.RecordTransfer(string(direction), err, elapsed, rows)
	s.stats.RecordTransfer(direction, err, elapsed, rows)

	if err != nil {
		log.Error().Err(err).Str("kind", utils.KindOf(err)).Dur("duration", elapsed).Msg("transfer failed")
		return nil, err
	}
	result.Direction = direction
	result.DurationMs = elapsed.Milliseconds()
	log.Info().Int64("rows", rows).Dur("duration", elapsed).Msg("transfer completed")
	return result, nil
}

// export streams a store query result into a file in the output directory.
func (s *transferService) export(ctx context.Context, req *model.TransferRequest) (*model.TransferResult, error) {
	joins, err := s.joinSpecs(ctx, req.JoinConditions)
	if err != nil {
		return nil, err
	}
	query, err := sqlbuilder.BuildQuery(req.TableName, req.Columns, joins)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuery(ctx, query); err != nil {
		return nil, err
	}

	db, err := s.store.Acquire(ctx, req.Credential)
	if err != nil {
		return nil, err
	}
	cursor, err := database.Query(ctx, db, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	outPath := filepath.Join(s.settings.OutputDir, filepath.Base(req.FilePath))
	count, err := flatfile.WriteRows(outPath, cursor.Columns(), cursor.Rows())
	if err != nil {
		return nil, err
	}

	result := &model.TransferResult{RecordCount: count, TableName: req.TableName, OutputPath: outPath}
	if s.archiver != nil {
		uri, err := s.archiver.Archive(ctx, outPath)
		if err != nil {
			return nil, utils.NewIOError(err, "archive export")
		}
		result.ArchiveURI = uri
	}
	return result, nil
}

// load reads every row of the input file, then creates and fills the table.
func (s *transferService) load(ctx context.Context, req *model.TransferRequest) (*model.TransferResult, error) {
	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.NewNotFoundError(fmt.Sprintf("file %s", req.FilePath))
		}
		return nil, utils.NewIOError(err, fmt.Sprintf("stat %s", req.FilePath))
	}

	columns, seq, err := flatfile.ReadRows(req.FilePath, req.Columns, 0)
	if err != nil {
		return nil, err
	}
	rows, err := flatfile.Collect(seq)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, utils.NewEmptyInputError(fmt.Sprintf("%s has no data rows", req.FilePath))
	}

	db, err := s.store.Acquire(ctx, req.Credential)
	if err != nil {
		return nil, err
	}
	report, err := database.NewLoader(db, s.store.Dialect(), s.settings.Load).
		CreateAndLoad(ctx, req.TableName, columns, rows)
	if err != nil {
		if report.TableCreated {
			logger.FromContext(ctx).Warn().Str("table", report.Table).Msg("table exists but no rows were loaded")
		}
		return nil, err
	}
	return &model.TransferResult{
		RecordCount:  report.RowsLoaded,
		TableName:    report.Table,
		TableCreated: report.TableCreated,
	}, nil
}

func (s *transferService) Stats() TransferStats {
	return s.stats.Snapshot()
}

// joinSpecs applies the configured policy to the wire join conditions.
func (s *transferService) joinSpecs(ctx context.Context, conditions []model.JoinCondition) ([]model.JoinSpec, error) {
	specs, dropped, err := model.ToJoinSpecs(conditions, s.settings.JoinPolicy)
	if err != nil {
		return nil, utils.NewMalformedInputError(err.Error(), err)
	}
	if len(dropped) > 0 {
		logger.FromContext(ctx).Warn().Ints("dropped", dropped).Msg("incomplete join conditions dropped")
	}
	return specs, nil
}

func (s *transferService) checkQuery(ctx context.Context, query string) error {
	shape, err := s.queries.ValidateSelect(query)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug().
		Str("sql", query).
		Bool("parsed", shape.Parsed).
		Int("joins", shape.Joins).
		Int("complexity", shape.Complexity).
		Msg("query built")
	return nil
}

// validateRequest checks the fields each source needs. A full transfer also
// needs its destination: a table name for imports, a file name for exports.
func (s *transferService) validateRequest(req *model.TransferRequest, full bool) error {
	if req == nil {
		return utils.NewValidationError("request body is required", "")
	}
	if err := s.validate.Struct(req); err != nil {
		return utils.NewValidationError("invalid transfer request", err.Error())
	}

	needTable := req.Source == model.SourceClickHouse || full
	needFile := req.Source == model.SourceFlatFile || full
	if needTable && strings.TrimSpace(req.TableName) == "" {
		return utils.NewValidationError("tableName is required", "")
	}
	if needFile && strings.TrimSpace(req.FilePath) == "" {
		return utils.NewValidationError("filePath is required", "")
	}
	if full && req.Source == model.SourceClickHouse {
		if base := filepath.Base(req.FilePath); base == "." || base == ".." || base == string(filepath.Separator) {
			return utils.NewValidationError("filePath must name a file", req.FilePath)
		}
	}
	return nil
}

// collectAtMost drains up to limit rows, stopping the sequence early.
func collectAtMost(seq iter.Seq2[model.Row, error], limit int) ([]model.Row, error) {
	rows := make([]model.Row, 0, min(limit, 16))
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
