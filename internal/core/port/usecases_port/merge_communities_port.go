package usecases_port

import (
	"context"
	"listing-ingest-service/internal/core/domain"
)

type MergeCommunitiesUseCase interface {
	Merge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error)
}
