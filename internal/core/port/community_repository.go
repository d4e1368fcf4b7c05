package port

import (
	"context"
	"listing-ingest-service/internal/core/domain"

	"github.com/google/uuid"
)

// CommunityRepositoryPort - хранилище мастер-списка сообществ и их алиасов.
// Методы поиска возвращают domain.ErrCommunityNotFound, если ничего не найдено.
type CommunityRepositoryPort interface {
	FindActiveByName(ctx context.Context, name string) (*domain.Community, error)
	FindActiveByAlias(ctx context.Context, alias string) (*domain.Community, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error)
	// LockByIDs - как FindByIDs, но строки заблокированы до конца единицы работы
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error)

	// InsertIfAbsent вставляет сообщество, если активного с таким именем нет.
	// Возвращает false, если вставку опередила другая транзакция.
	InsertIfAbsent(ctx context.Context, community *domain.Community) (bool, error)
	BackfillGeo(ctx context.Context, id uuid.UUID, geo domain.GeoAttrs) error

	AddAlias(ctx context.Context, alias domain.CommunityAlias) (bool, error)
	ListAliases(ctx context.Context, communityID uuid.UUID) ([]domain.CommunityAlias, error)
	MoveAlias(ctx context.Context, aliasID, toCommunityID uuid.UUID) error
	DeleteAlias(ctx context.Context, aliasID uuid.UUID) error

	Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error)
	RefreshPropertyCount(ctx context.Context, id uuid.UUID) (int, error)
}
