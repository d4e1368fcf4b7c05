package usecase

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"strings"
	"time"

	"github.com/google/uuid"
)

// сколько раз перечитываем сообщество после проигранной гонки на уникальном имени
const maxResolveAttempts = 3

// CommunityResolver находит сообщество по имени или алиасу, либо создает новое.
// Работает с репозиторием переданной единицы работы.
type CommunityResolver struct {
	now func() time.Time
}

func NewCommunityResolver() *CommunityResolver {
	return &CommunityResolver{now: time.Now}
}

// ResolveOrCreate: точное совпадение активного имени, затем алиас, затем создание.
// У найденного сообщества дозаполняются только пустые гео-атрибуты.
func (r *CommunityResolver) ResolveOrCreate(ctx context.Context, repo port.CommunityRepositoryPort, name string, geo domain.GeoAttrs) (uuid.UUID, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":      "CommunityResolver",
		"community_name": name,
	})

	name = strings.TrimSpace(name)
	if name == "" {
		verr := domain.NewValidationError()
		verr.Add(domain.FieldCommunityName, "is required")
		return uuid.Nil, verr
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		existing, err := r.lookup(ctx, repo, name)
		if err == nil {
			if missing := geo.MissingFrom(existing); !missing.IsEmpty() {
				logger.Debug("Backfilling missing geo attributes", port.Fields{"community_id": existing.ID.String()})
				if err := repo.BackfillGeo(ctx, existing.ID, missing); err != nil {
					return uuid.Nil, fmt.Errorf("failed to backfill community %s: %w", existing.ID, err)
				}
			}
			return existing.ID, nil
		}
		if !errors.Is(err, domain.ErrCommunityNotFound) {
			return uuid.Nil, err
		}

		now := r.now().UTC()
		created := &domain.Community{
			ID:             uuid.New(),
			Name:           name,
			City:           geo.City,
			District:       geo.District,
			BusinessCircle: geo.BusinessCircle,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		inserted, err := repo.InsertIfAbsent(ctx, created)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to create community %q: %w", name, err)
		}
		if inserted {
			logger.Info("Created new community", port.Fields{"community_id": created.ID.String()})
			return created.ID, nil
		}

		logger.Warn("Concurrent community creation detected, re-querying", port.Fields{"attempt": attempt})
	}

	return uuid.Nil, &domain.IntegrityError{
		Constraint: "communities_active_name_key",
		Message:    fmt.Sprintf("community %q is being created concurrently, retry the import", name),
	}
}

func (r *CommunityResolver) lookup(ctx context.Context, repo port.CommunityRepositoryPort, name string) (*domain.Community, error) {
	c, err := repo.FindActiveByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCommunityNotFound) {
		return nil, fmt.Errorf("failed to find community by name: %w", err)
	}

	c, err = repo.FindActiveByAlias(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCommunityNotFound) {
		return nil, fmt.Errorf("failed to find community by alias: %w", err)
	}
	return nil, domain.ErrCommunityNotFound
}
