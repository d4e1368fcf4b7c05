package usecase

import (
	"context"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"

	"github.com/google/uuid"
)

// FailedRecordsUseCase - разбор журнала сбоев оператором
type FailedRecordsUseCase struct {
	sink port.FailedRecordSinkPort
}

func NewFailedRecordsUseCase(sink port.FailedRecordSinkPort) *FailedRecordsUseCase {
	return &FailedRecordsUseCase{sink: sink}
}

func (uc *FailedRecordsUseCase) ListUnhandled(ctx context.Context, limit, offset int) ([]domain.FailedRecord, int64, error) {
	records, total, err := uc.sink.ListUnhandled(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list unhandled failed records: %w", err)
	}
	return records, total, nil
}

func (uc *FailedRecordsUseCase) MarkHandled(ctx context.Context, id uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":         "MarkFailedRecordHandled",
		"failed_record_id": id.String(),
	})

	if err := uc.sink.MarkHandled(ctx, id); err != nil {
		return fmt.Errorf("failed to mark record %s as handled: %w", id, err)
	}

	ucLogger.Info("Failed record marked as handled", nil)
	return nil
}
