package usecases_port

import (
	"context"
	"listing-ingest-service/internal/core/domain"
)

type ImportListingsUseCase interface {
	ImportCSV(ctx context.Context, filename string, data []byte) (*domain.ImportResult, error)
	ImportRecords(ctx context.Context, records []map[string]any) (*domain.ImportResult, error)
	ImportRecord(ctx context.Context, record map[string]any) (domain.UpsertResult, error)
	GetFailureFile(ctx context.Context, fileID string) ([]byte, error)
}
