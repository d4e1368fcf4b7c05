package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"

	"github.com/google/uuid"
)

type PropertyRepositoryPort interface {
	// FindByNaturalKey возвращает domain.ErrPropertyNotFound, если записи нет
	FindByNaturalKey(ctx context.Context, dataSource, sourcePropertyID string) (*domain.PropertyRecord, error)
	Insert(ctx context.Context, record *domain.PropertyRecord) error
	Update(ctx context.Context, record *domain.PropertyRecord) error
	InsertSnapshot(ctx context.Context, snapshot domain.PropertyHistorySnapshot) error
	ReplaceImages(ctx context.Context, propertyID uuid.UUID, urls []string) error

	CountActiveByCommunities(ctx context.Context, communityIDs []uuid.UUID) (int64, error)
	ReassignCommunity(ctx context.Context, fromIDs []uuid.UUID, toID uuid.UUID) (int64, error)
}
