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

const propertyColumns = `id, data_source, source_property_id, community_id, status,
	rooms, halls, baths, orientation, floor_original, floor_number, total_floors, floor_level,
	build_area, inner_area, listed_price, listed_date, sold_price, sold_date,
	property_type, build_year, structure, decoration, elevator,
	ownership_type, ownership_years, heating_method, remarks,
	is_active, created_at, updated_at`

type PropertyRepository struct {
	db DBTX
}

func NewPropertyRepository(db DBTX) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func scanProperty(row pgx.Row) (*domain.PropertyRecord, error) {
	var (
		p      domain.PropertyRecord
		status string
		level  *string
	)
	err := row.Scan(
		&p.ID, &p.DataSource, &p.SourcePropertyID, &p.CommunityID, &status,
		&p.Rooms, &p.Halls, &p.Baths, &p.Orientation, &p.FloorOriginal, &p.FloorNumber, &p.TotalFloors, &level,
		&p.BuildArea, &p.InnerArea, &p.ListedPrice, &p.ListedDate, &p.SoldPrice, &p.SoldDate,
		&p.PropertyType, &p.BuildYear, &p.Structure, &p.Decoration, &p.Elevator,
		&p.OwnershipType, &p.OwnershipYears, &p.HeatingMethod, &p.Remarks,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PropertyStatus(status)
	if level != nil {
		l := domain.FloorLevel(*level)
		p.FloorLevel = &l
	}
	return &p, nil
}

func floorLevelArg(l *domain.FloorLevel) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}

func (r *PropertyRepository) FindByNaturalKey(ctx context.Context, dataSource, sourcePropertyID string) (*domain.PropertyRecord, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE data_source = $1 AND source_property_id = $2`

	p, err := scanProperty(r.db.QueryRow(ctx, query, dataSource, sourcePropertyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return p, nil
}

func (r *PropertyRepository) Insert(ctx context.Context, p *domain.PropertyRecord) error {
	query := `INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.DataSource, p.SourcePropertyID, p.CommunityID, string(p.Status),
		p.Rooms, p.Halls, p.Baths, p.Orientation, p.FloorOriginal, p.FloorNumber, p.TotalFloors, floorLevelArg(p.FloorLevel),
		p.BuildArea, p.InnerArea, p.ListedPrice, p.ListedDate, p.SoldPrice, p.SoldDate,
		p.PropertyType, p.BuildYear, p.Structure, p.Decoration, p.Elevator,
		p.OwnershipType, p.OwnershipYears, p.HeatingMethod, p.Remarks,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PropertyRepository) Update(ctx context.Context, p *domain.PropertyRecord) error {
	query := `
		UPDATE properties SET
			community_id = $2, status = $3,
			rooms = $4, halls = $5, baths = $6, orientation = $7,
			floor_original = $8, floor_number = $9, total_floors = $10, floor_level = $11,
			build_area = $12, inner_area = $13,
			listed_price = $14, listed_date = $15, sold_price = $16, sold_date = $17,
			property_type = $18, build_year = $19, structure = $20, decoration = $21, elevator = $22,
			ownership_type = $23, ownership_years = $24, heating_method = $25, remarks = $26,
			is_active = $27, updated_at = $28
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		p.ID, p.CommunityID, string(p.Status),
		p.Rooms, p.Halls, p.Baths, p.Orientation,
		p.FloorOriginal, p.FloorNumber, p.TotalFloors, floorLevelArg(p.FloorLevel),
		p.BuildArea, p.InnerArea,
		p.ListedPrice, p.ListedDate, p.SoldPrice, p.SoldDate,
		p.PropertyType, p.BuildYear, p.Structure, p.Decoration, p.Elevator,
		p.OwnershipType, p.OwnershipYears, p.HeatingMethod, p.Remarks,
		p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPropertyNotFound
	}
	return nil
}

func (r *PropertyRepository) InsertSnapshot(ctx context.Context, s domain.PropertyHistorySnapshot) error {
	query := `
		INSERT INTO property_history (id, property_id, change_type, state, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, s.ID, s.PropertyID, string(s.ChangeType), []byte(s.State), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history snapshot: %w", mapPgError(err))
	}
	return nil
}

// ReplaceImages полностью заменяет набор изображений. Порядок сохраняется в sort_order.
func (r *PropertyRepository) ReplaceImages(ctx context.Context, propertyID uuid.UUID, urls []string) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PropertyRepository",
		"method":      "ReplaceImages",
		"property_id": propertyID.String(),
	})

	if _, err := r.db.Exec(ctx, `DELETE FROM property_images WHERE property_id = $1`, propertyID); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	if len(urls) == 0 {
		return nil
	}

	rows := make([][]any, len(urls))
	for i, u := range urls {
		rows[i] = []any{uuid.New(), propertyID, u, i}
	}

	copied, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"property_images"},
		[]string{"id", "property_id", "url", "sort_order"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy images: %w", mapPgError(err))
	}

	repoLogger.Debug("Images replaced", port.Fields{"count": copied})
	return nil
}

func (r *PropertyRepository) CountActiveByCommunities(ctx context.Context, communityIDs []uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM properties WHERE community_id = ANY($1) AND is_active`, communityIDs,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}

func (r *PropertyRepository) ReassignCommunity(ctx context.Context, fromIDs []uuid.UUID, toID uuid.UUID) (int64, error) {
	query := `UPDATE properties SET community_id = $2, updated_at = NOW() WHERE community_id = ANY($1) AND is_active`

	tag, err := r.db.Exec(ctx, query, fromIDs, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign properties: %w", mapPgError(err))
	}
	return tag.RowsAffected(), nil
}
