package usecases_port

import (
	"context"
	"listing-ingest-service/internal/core/domain"

	"github.com/google/uuid"
)

type FailedRecordsUseCase interface {
	ListUnhandled(ctx context.Context, limit, offset int) ([]domain.FailedRecord, int64, error)
	MarkHandled(ctx context.Context, id uuid.UUID) error
}
