package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"
)

// TableDecoderPort превращает сырую загрузку в строки с каноническими полями
type TableDecoderPort interface {
	DecodeCSV(ctx context.Context, data []byte) (*domain.RawTable, error)
	DecodeRecords(ctx context.Context, records []map[string]any) (*domain.RawTable, error)
}
