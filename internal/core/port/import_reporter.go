package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"
)

type ImportReporterPort interface {
	ReportImport(ctx context.Context, summary domain.ImportSummary) error
	ReportMerge(ctx context.Context, summary domain.MergeSummary) error
}
