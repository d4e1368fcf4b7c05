package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"
)

// FailureFileStorePort хранит временные CSV-файлы со сбойными строками
type FailureFileStorePort interface {
	// Save возвращает ссылку для скачивания
	Save(ctx context.Context, columns []string, rows []domain.FailedRow) (string, error)
	Get(ctx context.Context, fileID string) ([]byte, error)
}
