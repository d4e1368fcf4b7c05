package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FailedRecordRepository пишет напрямую в пул, вне транзакций импорта:
// откат чанка не должен стирать запись о сбое.
type FailedRecordRepository struct {
	pool *pgxpool.Pool
}

func NewFailedRecordRepository(pool *pgxpool.Pool) (*FailedRecordRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &FailedRecordRepository{pool: pool}, nil
}

func (r *FailedRecordRepository) Record(ctx context.Context, rec domain.FailedRecord) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "FailedRecordRepository",
		"method":    "Record",
	})

	query := `
		INSERT INTO failed_records (id, payload, failure_type, reason, data_source, is_handled, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), FALSE, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, []byte(rec.Payload), string(rec.FailureType), rec.Reason, rec.DataSource, rec.CreatedAt,
	)
	if err != nil {
		repoLogger.Error("Failed to persist failed record", err, port.Fields{"failure_type": rec.FailureType})
		return fmt.Errorf("failed to insert failed record: %w", err)
	}
	return nil
}

func (r *FailedRecordRepository) ListUnhandled(ctx context.Context, limit, offset int) ([]domain.FailedRecord, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM failed_records WHERE NOT is_handled`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count failed records: %w", err)
	}

	query := `
		SELECT id, payload, failure_type, reason, data_source, is_handled, created_at, handled_at
		FROM failed_records
		WHERE NOT is_handled
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query failed records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FailedRecord, 0, limit)
	for rows.Next() {
		var (
			rec         domain.FailedRecord
			payload     []byte
			failureType string
			dataSource  *string
		)
		err := rows.Scan(&rec.ID, &payload, &failureType, &rec.Reason, &dataSource, &rec.IsHandled, &rec.CreatedAt, &rec.HandledAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan failed record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.FailureType = domain.FailureType(failureType)
		if dataSource != nil {
			rec.DataSource = *dataSource
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *FailedRecordRepository) MarkHandled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE failed_records SET is_handled = TRUE, handled_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark failed record handled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFailedRecordNotFound
	}
	return nil
}
