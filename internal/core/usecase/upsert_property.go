package usecase

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

// время на запись в журнал сбоев, даже если контекст запроса уже отменен
const sinkWriteTimeout = 5 * time.Second

// UpsertPropertyUseCase создает или обновляет объект по естественному ключу,
// сохраняя снимок предыдущего состояния.
type UpsertPropertyUseCase struct {
	uowFactory port.UnitOfWorkFactory
	resolver   *CommunityResolver
	failures   *failureRecorder
	now        func() time.Time
}

func NewUpsertPropertyUseCase(uowFactory port.UnitOfWorkFactory, resolver *CommunityResolver, sink port.FailedRecordSinkPort) *UpsertPropertyUseCase {
	return &UpsertPropertyUseCase{
		uowFactory: uowFactory,
		resolver:   resolver,
		failures:   &failureRecorder{sink: sink},
		now:        time.Now,
	}
}

// Upsert обрабатывает одну запись в собственной единице работы.
// Любая ошибка откатывает единицу работы, а payload уходит в журнал сбоев.
func (uc *UpsertPropertyUseCase) Upsert(ctx context.Context, input domain.ListingInput, payload any) domain.UpsertResult {
	uow, err := uc.uowFactory.Begin(ctx)
	if err != nil {
		return uc.fail(ctx, input, payload, fmt.Errorf("failed to begin unit of work: %w", err))
	}

	result, err := uc.apply(ctx, uow, input)
	if err != nil {
		rollbackQuietly(ctx, uow)
		return uc.fail(ctx, input, payload, err)
	}

	if err := uow.Commit(ctx); err != nil {
		rollbackQuietly(ctx, uow)
		return uc.fail(ctx, input, payload, fmt.Errorf("failed to commit upsert: %w", err))
	}

	recordUpsertChange(string(result.ChangeType))
	return result
}

// UpsertInUnit выполняет upsert внутри точки сохранения переданной единицы работы.
// Сбой строки откатывает только ее точку сохранения, сама единица работы остается пригодной.
func (uc *UpsertPropertyUseCase) UpsertInUnit(ctx context.Context, uow port.UnitOfWork, input domain.ListingInput, payload any) domain.UpsertResult {
	sp, err := uow.Savepoint(ctx)
	if err != nil {
		return uc.fail(ctx, input, payload, fmt.Errorf("failed to open savepoint: %w", err))
	}

	result, err := uc.apply(ctx, sp, input)
	if err != nil {
		rollbackQuietly(ctx, sp)
		return uc.fail(ctx, input, payload, err)
	}

	if err := sp.Commit(ctx); err != nil {
		rollbackQuietly(ctx, sp)
		return uc.fail(ctx, input, payload, fmt.Errorf("failed to release savepoint: %w", err))
	}

	recordUpsertChange(string(result.ChangeType))
	return result
}

func (uc *UpsertPropertyUseCase) apply(ctx context.Context, uow port.UnitOfWork, input domain.ListingInput) (domain.UpsertResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":           "UpsertProperty",
		"data_source":        input.DataSource,
		"source_property_id": input.SourcePropertyID,
	})

	communities := uow.Communities()
	properties := uow.Properties()

	communityID, err := uc.resolver.ResolveOrCreate(ctx, communities, input.CommunityName, input.Geo)
	if err != nil {
		return domain.UpsertResult{}, err
	}

	incoming := domain.NewPropertyRecord(input, communityID)
	now := uc.now().UTC()

	result := domain.UpsertResult{Success: true}
	var previousCommunity uuid.UUID

	existing, err := properties.FindByNaturalKey(ctx, input.DataSource, input.SourcePropertyID)
	switch {
	case err == nil:
		change := domain.ClassifyChange(*existing, incoming)

		snapshot, err := domain.NewSnapshot(*existing, change, now)
		if err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to build history snapshot: %w", err)
		}
		if err := properties.InsertSnapshot(ctx, snapshot); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to save history snapshot: %w", err)
		}

		previousCommunity = existing.CommunityID
		existing.ApplyMutable(incoming)
		existing.UpdatedAt = now
		if err := properties.Update(ctx, existing); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to update property: %w", err)
		}

		result.PropertyID = existing.ID
		result.ChangeType = change
		ucLogger.Debug("Property updated", port.Fields{"property_id": existing.ID.String(), "change_type": string(change)})

	case errors.Is(err, domain.ErrPropertyNotFound):
		incoming.ID = uuid.New()
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := properties.Insert(ctx, &incoming); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to insert property: %w", err)
		}

		result.PropertyID = incoming.ID
		result.Created = true
		ucLogger.Debug("Property created", port.Fields{"property_id": incoming.ID.String()})

	default:
		return domain.UpsertResult{}, fmt.Errorf("failed to find property by natural key: %w", err)
	}

	if err := properties.ReplaceImages(ctx, result.PropertyID, NormalizeImageURLs(input.ImageURLs)); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("failed to replace property images: %w", err)
	}

	if _, err := communities.RefreshPropertyCount(ctx, communityID); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("failed to refresh property count: %w", err)
	}
	if previousCommunity != uuid.Nil && previousCommunity != communityID {
		if _, err := communities.RefreshPropertyCount(ctx, previousCommunity); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("failed to refresh property count of previous community: %w", err)
		}
	}

	return result, nil
}

func (uc *UpsertPropertyUseCase) fail(ctx context.Context, input domain.ListingInput, payload any, cause error) domain.UpsertResult {
	reason := uc.failures.record(ctx, payload, input.DataSource, cause)
	return domain.UpsertResult{Success: false, Reason: reason}
}

// failureRecorder пишет сбойные строки в журнал. Ошибка журнала только логируется.
type failureRecorder struct {
	sink port.FailedRecordSinkPort
}

func (f *failureRecorder) record(ctx context.Context, payload any, dataSource string, cause error) string {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "FailedRecordSink",
		"data_source": dataSource,
	})

	rec := domain.NewFailedRecord(payload, dataSource, cause)
	logger.Warn("Record failed, routing to failed records", port.Fields{
		"failure_type": string(rec.FailureType),
		"cause":        cause.Error(),
	})

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkWriteTimeout)
	defer cancel()

	if err := f.sink.Record(sinkCtx, rec); err != nil {
		logger.Error("Failed to write failed record", err, port.Fields{"failed_record_id": rec.ID.String()})
	} else {
		recordFailedRecord(string(rec.FailureType))
	}
	return rec.Reason
}

func rollbackQuietly(ctx context.Context, uow port.UnitOfWork) {
	if err := uow.Rollback(context.WithoutCancel(ctx)); err != nil {
		contextkeys.LoggerFromContext(ctx).Warn("Rollback failed", port.Fields{"error": err.Error()})
	}
}
