package postgres

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const communityColumns = `id, name, city, district, business_circle, property_count, is_active, created_at, updated_at`

// CommunityRepository работает поверх транзакции единицы работы или поверх пула (только чтение)
type CommunityRepository struct {
	db DBTX
}

func NewCommunityRepository(db DBTX) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func scanCommunity(row pgx.Row) (*domain.Community, error) {
	var c domain.Community
	err := row.Scan(&c.ID, &c.Name, &c.City, &c.District, &c.BusinessCircle,
		&c.PropertyCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommunityRepository) FindActiveByName(ctx context.Context, name string) (*domain.Community, error) {
	query := `SELECT ` + communityColumns + ` FROM communities WHERE name = $1 AND is_active LIMIT 1`

	c, err := scanCommunity(r.db.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommunityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find community by name: %w", err)
	}
	return c, nil
}

func (r *CommunityRepository) FindActiveByAlias(ctx context.Context, alias string) (*domain.Community, error) {
	query := `
		SELECT c.id, c.name, c.city, c.district, c.business_circle, c.property_count, c.is_active, c.created_at, c.updated_at
		FROM community_aliases a
		JOIN communities c ON c.id = a.community_id
		WHERE a.alias_name = $1 AND c.is_active
		ORDER BY a.created_at
		LIMIT 1`

	c, err := scanCommunity(r.db.QueryRow(ctx, query, alias))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommunityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find community by alias: %w", err)
	}
	return c, nil
}

func (r *CommunityRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error) {
	return r.queryCommunities(ctx, `SELECT `+communityColumns+` FROM communities WHERE id = ANY($1)`, ids)
}

// LockByIDs блокирует строки до конца транзакции. Порядок по id исключает взаимоблокировку двух слияний.
func (r *CommunityRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Community, error) {
	return r.queryCommunities(ctx, `SELECT `+communityColumns+` FROM communities WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
}

func (r *CommunityRepository) queryCommunities(ctx context.Context, query string, ids []uuid.UUID) ([]domain.Community, error) {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query communities: %w", err)
	}
	defer rows.Close()

	var out []domain.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CommunityRepository) InsertIfAbsent(ctx context.Context, community *domain.Community) (bool, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "CommunityRepository",
		"method":    "InsertIfAbsent",
	})

	query := `
		INSERT INTO communities (id, name, city, district, business_circle, property_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, TRUE, $6, $6)
		ON CONFLICT (name) WHERE is_active DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		community.ID, community.Name, community.City, community.District, community.BusinessCircle,
		community.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		repoLogger.Debug("Active community with this name already exists", port.Fields{"name": community.Name})
		return false, nil
	}
	if err != nil {
		return false, mapPgError(err)
	}
	return true, nil
}

func (r *CommunityRepository) BackfillGeo(ctx context.Context, id uuid.UUID, geo domain.GeoAttrs) error {
	query := `
		UPDATE communities SET
			city = COALESCE(city, $2),
			district = COALESCE(district, $3),
			business_circle = COALESCE(business_circle, $4),
			updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, geo.City, geo.District, geo.BusinessCircle); err != nil {
		return fmt.Errorf("failed to backfill community geo: %w", mapPgError(err))
	}
	return nil
}

func (r *CommunityRepository) AddAlias(ctx context.Context, alias domain.CommunityAlias) (bool, error) {
	query := `
		INSERT INTO community_aliases (id, alias_name, community_id, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (alias_name, source) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, alias.ID, alias.AliasName, alias.CommunityID, alias.Source, alias.CreatedAt)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CommunityRepository) ListAliases(ctx context.Context, communityID uuid.UUID) ([]domain.CommunityAlias, error) {
	query := `
		SELECT id, alias_name, community_id, source, created_at
		FROM community_aliases
		WHERE community_id = $1
		ORDER BY created_at, alias_name`

	rows, err := r.db.Query(ctx, query, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var out []domain.CommunityAlias
	for rows.Next() {
		var a domain.CommunityAlias
		if err := rows.Scan(&a.ID, &a.AliasName, &a.CommunityID, &a.Source, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *CommunityRepository) MoveAlias(ctx context.Context, aliasID, toCommunityID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE community_aliases SET community_id = $2 WHERE id = $1`, aliasID, toCommunityID)
	if err != nil {
		return fmt.Errorf("failed to move alias: %w", mapPgError(err))
	}
	return nil
}

func (r *CommunityRepository) DeleteAlias(ctx context.Context, aliasID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM community_aliases WHERE id = $1`, aliasID); err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}
	return nil
}

func (r *CommunityRepository) Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error) {
	query := `UPDATE communities SET is_active = FALSE, updated_at = NOW() WHERE id = ANY($1) AND is_active`

	tag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate communities: %w", mapPgError(err))
	}
	return tag.RowsAffected(), nil
}

// RefreshPropertyCount пересчитывает счетчик по активным объектам
func (r *CommunityRepository) RefreshPropertyCount(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE communities SET
			property_count = (SELECT COUNT(*) FROM properties WHERE community_id = $1 AND is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING property_count`

	var count int
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrCommunityNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to refresh property count: %w", err)
	}
	return count, nil
}
