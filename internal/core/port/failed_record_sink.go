package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"

	"github.com/google/uuid"
)

// FailedRecordSinkPort пишет сбойные строки через отдельное соединение,
// чтобы откат основной транзакции не стирал причину сбоя.
type FailedRecordSinkPort interface {
	Record(ctx context.Context, record domain.FailedRecord) error
	ListUnhandled(ctx context.Context, limit, offset int) ([]domain.FailedRecord, int64, error)
	MarkHandled(ctx context.Context, id uuid.UUID) error
}
