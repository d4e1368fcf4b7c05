package usecase

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ImportKindCSV  = "csv"
	ImportKindJSON = "json"
)

// ImportConfig - параметры пакетного импорта
type ImportConfig struct {
	ChunkSize      int
	MaxJSONRecords int
}

// ImportListingsUseCase разбивает загрузку на чанки, каждый чанк фиксируется отдельно.
// Сбой строки не влияет на соседние строки, сбой фиксации чанка не влияет на другие чанки.
type ImportListingsUseCase struct {
	decoder    port.TableDecoderPort
	mapper     *ListingMapper
	upserter   *UpsertPropertyUseCase
	uowFactory port.UnitOfWorkFactory
	failures   *failureRecorder
	files      port.FailureFileStorePort
	reporter   port.ImportReporterPort
	cfg        ImportConfig
}

func NewImportListingsUseCase(
	decoder port.TableDecoderPort,
	mapper *ListingMapper,
	upserter *UpsertPropertyUseCase,
	uowFactory port.UnitOfWorkFactory,
	sink port.FailedRecordSinkPort,
	files port.FailureFileStorePort,
	reporter port.ImportReporterPort,
	cfg ImportConfig,
) *ImportListingsUseCase {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.MaxJSONRecords <= 0 {
		cfg.MaxJSONRecords = 10000
	}
	return &ImportListingsUseCase{
		decoder:    decoder,
		mapper:     mapper,
		upserter:   upserter,
		uowFactory: uowFactory,
		failures:   &failureRecorder{sink: sink},
		files:      files,
		reporter:   reporter,
		cfg:        cfg,
	}
}

// ImportCSV импортирует загруженный CSV-файл.
// Ошибка возвращается только если файл целиком нельзя разобрать.
func (uc *ImportListingsUseCase) ImportCSV(ctx context.Context, filename string, data []byte) (*domain.ImportResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ImportListingsCSV",
		"filename": filename,
		"size":     len(data),
	})

	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		ucLogger.Warn("Rejected upload with unsupported extension", nil)
		return nil, domain.ErrUnsupportedFile
	}

	table, err := uc.decoder.DecodeCSV(ctx, data)
	if err == nil && len(table.Rows) == 0 {
		err = domain.ErrEmptyUpload
	}
	if err != nil {
		var fileErr *domain.FileProcessingError
		if !errors.As(err, &fileErr) {
			fileErr = &domain.FileProcessingError{Reason: err.Error(), Err: err}
		}
		ucLogger.Error("Upload could not be parsed into rows", fileErr, nil)
		uc.failures.record(ctx, map[string]any{"filename": filename, "size": len(data)}, "", fileErr)
		return nil, fileErr
	}

	ucLogger.Info("Upload decoded, starting import", port.Fields{"rows": len(table.Rows), "columns": len(table.Columns)})
	return uc.run(ctx, ImportKindCSV, table)
}

// ImportRecords импортирует JSON-пакет уже разобранных объектов
func (uc *ImportListingsUseCase) ImportRecords(ctx context.Context, records []map[string]any) (*domain.ImportResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":     "ImportListingsJSON",
		"record_count": len(records),
	})

	if len(records) > uc.cfg.MaxJSONRecords {
		ucLogger.Warn("Rejected oversized batch", port.Fields{"max_records": uc.cfg.MaxJSONRecords})
		return nil, fmt.Errorf("%w: got %d, max %d", domain.ErrBatchTooLarge, len(records), uc.cfg.MaxJSONRecords)
	}

	table, err := uc.decoder.DecodeRecords(ctx, records)
	if err != nil {
		var fileErr *domain.FileProcessingError
		if !errors.As(err, &fileErr) {
			fileErr = &domain.FileProcessingError{Reason: err.Error(), Err: err}
		}
		ucLogger.Error("Batch could not be decoded", fileErr, nil)
		uc.failures.record(ctx, map[string]any{"record_count": len(records)}, "", fileErr)
		return nil, fileErr
	}

	return uc.run(ctx, ImportKindJSON, table)
}

// ImportRecord сохраняет одну запись в собственной единице работы, без чанков и отчета об импорте.
// Ошибка возвращается только если запись нельзя разобрать, сбой строки приходит в UpsertResult.
func (uc *ImportListingsUseCase) ImportRecord(ctx context.Context, record map[string]any) (domain.UpsertResult, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ImportListingRecord",
	})

	table, err := uc.decoder.DecodeRecords(ctx, []map[string]any{record})
	if err == nil && len(table.Rows) == 0 {
		err = domain.ErrEmptyUpload
	}
	if err != nil {
		var fileErr *domain.FileProcessingError
		if !errors.As(err, &fileErr) {
			fileErr = &domain.FileProcessingError{Reason: err.Error(), Err: err}
		}
		ucLogger.Error("Record could not be decoded", fileErr, nil)
		uc.failures.record(ctx, record, "", fileErr)
		return domain.UpsertResult{}, fileErr
	}

	row := table.Rows[0]
	input, err := uc.mapper.Map(row)
	if err != nil {
		recordImportRow(false)
		reason := uc.failures.record(ctx, row.Original, row.Value(domain.FieldDataSource), err)
		return domain.UpsertResult{Success: false, Reason: reason}, nil
	}

	res := uc.upserter.Upsert(ctx, input, row.Original)
	recordImportRow(res.Success)
	ucLogger.Info("Record processed", port.Fields{
		"success":     res.Success,
		"created":     res.Created,
		"change_type": string(res.ChangeType),
	})
	return res, nil
}

// GetFailureFile отдает ранее сохраненный CSV со сбойными строками
func (uc *ImportListingsUseCase) GetFailureFile(ctx context.Context, fileID string) ([]byte, error) {
	return uc.files.Get(ctx, fileID)
}

type mappedRow struct {
	row   domain.RawRow
	input domain.ListingInput
}

func (uc *ImportListingsUseCase) run(ctx context.Context, kind string, table *domain.RawTable) (*domain.ImportResult, error) {
	result := &domain.ImportResult{
		ImportID:      uuid.New(),
		Total:         len(table.Rows),
		FailedRecords: []domain.FailedRow{},
		Columns:       table.Columns,
	}

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "ImportListings",
		"import_id":  result.ImportID.String(),
		"kind":       kind,
		"total_rows": result.Total,
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	for start := 0; start < len(table.Rows); start += uc.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			ucLogger.Warn("Import interrupted, remaining chunks skipped", port.Fields{
				"processed_rows": start,
				"error":          err.Error(),
			})
			return nil, fmt.Errorf("import interrupted after %d rows: %w", start, err)
		}

		end := min(start+uc.cfg.ChunkSize, len(table.Rows))
		uc.processChunk(ctx, table.Rows[start:end], result)
	}

	sort.SliceStable(result.FailedRecords, func(i, j int) bool {
		return result.FailedRecords[i].RowNumber < result.FailedRecords[j].RowNumber
	})
	result.FailedCount = len(result.FailedRecords)

	if kind == ImportKindCSV && result.FailedCount > 0 && uc.files != nil {
		url, err := uc.files.Save(ctx, table.Columns, result.FailedRecords)
		if err != nil {
			ucLogger.Error("Failed to store failure file", err, nil)
		} else {
			result.FailedFileURL = url
		}
	}

	ucLogger.Info("Import finished", port.Fields{
		"success": result.SuccessCount,
		"failed":  result.FailedCount,
	})

	if uc.reporter != nil {
		summary := domain.ImportSummary{
			ImportID:   result.ImportID,
			Kind:       kind,
			Total:      result.Total,
			Success:    result.SuccessCount,
			Failed:     result.FailedCount,
			FinishedAt: time.Now().UTC(),
		}
		if err := uc.reporter.ReportImport(ctx, summary); err != nil {
			ucLogger.Error("Failed to report import results", err, nil)
		}
	}

	return result, nil
}

// processChunk: сначала валидация всех строк чанка, затем upsert каждой валидной строки
// в своей точке сохранения и одна фиксация на чанк.
func (uc *ImportListingsUseCase) processChunk(ctx context.Context, rows []domain.RawRow, result *domain.ImportResult) {
	logger := contextkeys.LoggerFromContext(ctx)
	chunkLogger := logger.WithFields(port.Fields{
		"first_row": rows[0].Number,
		"last_row":  rows[len(rows)-1].Number,
	})

	valid := make([]mappedRow, 0, len(rows))
	for _, row := range rows {
		input, err := uc.mapper.Map(row)
		if err != nil {
			uc.failRow(ctx, result, row, row.Value(domain.FieldDataSource), err, "")
			continue
		}
		valid = append(valid, mappedRow{row: row, input: input})
	}
	if len(valid) == 0 {
		chunkLogger.Debug("Chunk has no valid rows", nil)
		return
	}

	uow, err := uc.uowFactory.Begin(ctx)
	if err != nil {
		chunkLogger.Error("Failed to begin chunk unit of work", err, nil)
		recordImportChunk(false)
		for _, m := range valid {
			uc.failRow(ctx, result, m.row, m.input.DataSource, err, "chunk could not be started: ")
		}
		return
	}

	succeeded := make([]mappedRow, 0, len(valid))
	for _, m := range valid {
		res := uc.upserter.UpsertInUnit(ctx, uow, m.input, m.row.Original)
		if !res.Success {
			result.FailedRecords = append(result.FailedRecords, domain.FailedRow{
				RowNumber: m.row.Number,
				RawData:   m.row.Original,
				Reason:    res.Reason,
			})
			recordImportRow(false)
			continue
		}
		succeeded = append(succeeded, m)
	}

	if err := uow.Commit(ctx); err != nil {
		rollbackQuietly(ctx, uow)
		chunkLogger.Error("Chunk commit failed, chunk rolled back", err, port.Fields{"rolled_back_rows": len(succeeded)})
		recordImportChunk(false)
		for _, m := range succeeded {
			uc.failRow(ctx, result, m.row, m.input.DataSource, err, "chunk commit failed: ")
		}
		return
	}

	recordImportChunk(true)
	result.SuccessCount += len(succeeded)
	for range succeeded {
		recordImportRow(true)
	}
	chunkLogger.Debug("Chunk committed", port.Fields{"committed_rows": len(succeeded)})
}

func (uc *ImportListingsUseCase) failRow(ctx context.Context, result *domain.ImportResult, row domain.RawRow, dataSource string, cause error, prefix string) {
	reason := uc.failures.record(ctx, row.Original, dataSource, cause)
	result.FailedRecords = append(result.FailedRecords, domain.FailedRow{
		RowNumber: row.Number,
		RawData:   row.Original,
		Reason:    prefix + reason,
	})
	recordImportRow(false)
}
