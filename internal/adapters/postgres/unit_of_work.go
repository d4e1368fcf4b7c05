package postgres

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWorkFactory открывает транзакции на пуле соединений
type UnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

func NewUnitOfWorkFactory(pool *pgxpool.Pool) (*UnitOfWorkFactory, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &UnitOfWorkFactory{pool: pool}, nil
}

func (f *UnitOfWorkFactory) Begin(ctx context.Context) (port.UnitOfWork, error) {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

// unitOfWork - транзакция или точка сохранения внутри нее.
// pgx сам превращает вложенный Begin в SAVEPOINT.
type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Communities() port.CommunityRepositoryPort {
	return NewCommunityRepository(u.tx)
}

func (u *unitOfWork) Properties() port.PropertyRepositoryPort {
	return NewPropertyRepository(u.tx)
}

func (u *unitOfWork) Savepoint(ctx context.Context) (port.UnitOfWork, error) {
	nested, err := u.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	return &unitOfWork{tx: nested}, nil
}

// Commit может вернуть нарушение отложенного ограничения, поэтому ошибка проходит через mapPgError
func (u *unitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
