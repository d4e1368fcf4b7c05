package port

import "context"

// UnitOfWork - явная единица работы (транзакция). Все шаги upsert/merge получают ее параметром
// и фиксируются ровно одним Commit.
type UnitOfWork interface {
	Communities() CommunityRepositoryPort
	Properties() PropertyRepositoryPort

	// Savepoint открывает вложенную единицу работы. Ее Rollback откатывает только
	// изменения, сделанные после точки сохранения.
	Savepoint(ctx context.Context) (UnitOfWork, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory начинает новые единицы работы
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
