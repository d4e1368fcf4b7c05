package usecase

import (
	"context"
	"errors"
	"fmt"
	"listing-ingest-service/internal/constants"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

// MergeCommunitiesUseCase объединяет дубликаты сообществ в основное.
// Все шаги выполняются в одной единице работы с единственной фиксацией.
type MergeCommunitiesUseCase struct {
	communities port.CommunityRepositoryPort
	uowFactory  port.UnitOfWorkFactory
	reporter    port.ImportReporterPort
	now         func() time.Time
}

// communities используется только для чтения при проверке запроса, до открытия единицы работы
func NewMergeCommunitiesUseCase(communities port.CommunityRepositoryPort, uowFactory port.UnitOfWorkFactory, reporter port.ImportReporterPort) *MergeCommunitiesUseCase {
	return &MergeCommunitiesUseCase{
		communities: communities,
		uowFactory:  uowFactory,
		reporter:    reporter,
		now:         time.Now,
	}
}

func (uc *MergeCommunitiesUseCase) Merge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "MergeCommunities",
		"primary_id":  req.PrimaryID.String(),
		"merge_count": len(req.MergeIDs),
	})

	ucLogger.Info("Use case started: validating merge request", nil)

	found, err := uc.validate(ctx, req)
	if err != nil {
		ucLogger.Warn("Merge request rejected", port.Fields{"reason": err.Error()})
		recordMerge("rejected")
		return nil, err
	}

	uow, err := uc.uowFactory.Begin(ctx)
	if err != nil {
		recordMerge("failed")
		return nil, fmt.Errorf("failed to begin merge: %w", err)
	}

	affected, err := uc.apply(ctx, uow, req, found)
	if errors.Is(err, domain.ErrInvalidMergeRequest) {
		rollbackQuietly(ctx, uow)
		ucLogger.Warn("Merge request rejected after locking", port.Fields{"reason": err.Error()})
		recordMerge("rejected")
		return nil, err
	}
	if err != nil {
		rollbackQuietly(ctx, uow)
		ucLogger.Error("Merge failed, rolled back", err, nil)
		recordMerge("failed")
		return nil, fmt.Errorf("failed to merge communities into %s: %w", req.PrimaryID, err)
	}

	if err := uow.Commit(ctx); err != nil {
		rollbackQuietly(ctx, uow)
		ucLogger.Error("Merge commit failed", err, nil)
		recordMerge("failed")
		return nil, fmt.Errorf("failed to commit merge into %s: %w", req.PrimaryID, err)
	}
	recordMerge("merged")

	ucLogger.Info("Use case finished: communities merged", port.Fields{"affected_properties": affected})

	if uc.reporter != nil {
		summary := domain.MergeSummary{
			PrimaryID:          req.PrimaryID,
			MergedIDs:          req.MergeIDs,
			AffectedProperties: affected,
			FinishedAt:         uc.now().UTC(),
		}
		if err := uc.reporter.ReportMerge(ctx, summary); err != nil {
			ucLogger.Error("Failed to report merge results", err, nil)
		}
	}

	return &domain.MergeResult{
		Success:            true,
		AffectedProperties: affected,
		Message: fmt.Sprintf("merged %d communities into %q, %d properties reassigned",
			len(req.MergeIDs), found[req.PrimaryID].Name, affected),
	}, nil
}

// validate проверяет предусловия без каких-либо записей
func (uc *MergeCommunitiesUseCase) validate(ctx context.Context, req domain.MergeRequest) (map[uuid.UUID]domain.Community, error) {
	verr := domain.NewValidationError()

	if req.PrimaryID == uuid.Nil {
		verr.Add("primary_id", "is required")
	}
	if len(req.MergeIDs) == 0 {
		verr.Add("merge_ids", "must contain at least one community id")
	}

	seen := make(map[uuid.UUID]struct{}, len(req.MergeIDs))
	for _, id := range req.MergeIDs {
		if id == req.PrimaryID {
			verr.Add("merge_ids", "must not contain the primary community")
		}
		if _, dup := seen[id]; dup {
			verr.Add("merge_ids", fmt.Sprintf("contains duplicate id %s", id))
		}
		seen[id] = struct{}{}
	}
	if verr.HasErrors() {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidMergeRequest, verr)
	}

	ids := append([]uuid.UUID{req.PrimaryID}, req.MergeIDs...)
	list, err := uc.communities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities for merge: %w", err)
	}

	return checkActive(req, list)
}

// checkActive требует, чтобы все участники слияния существовали и были активны
func checkActive(req domain.MergeRequest, list []domain.Community) (map[uuid.UUID]domain.Community, error) {
	verr := domain.NewValidationError()

	found := make(map[uuid.UUID]domain.Community, len(list))
	for _, c := range list {
		found[c.ID] = c
	}

	if c, ok := found[req.PrimaryID]; !ok || !c.IsActive {
		verr.Add("primary_id", fmt.Sprintf("community %s does not exist or is inactive", req.PrimaryID))
	}
	for _, id := range req.MergeIDs {
		if c, ok := found[id]; !ok || !c.IsActive {
			verr.Add("merge_ids", fmt.Sprintf("community %s does not exist or is inactive", id))
		}
	}
	if verr.HasErrors() {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidMergeRequest, verr)
	}

	return found, nil
}

func (uc *MergeCommunitiesUseCase) apply(ctx context.Context, uow port.UnitOfWork, req domain.MergeRequest, found map[uuid.UUID]domain.Community) (int64, error) {
	communities := uow.Communities()
	properties := uow.Properties()

	// повторная проверка под блокировкой строк
	locked, err := communities.LockByIDs(ctx, append([]uuid.UUID{req.PrimaryID}, req.MergeIDs...))
	if err != nil {
		return 0, fmt.Errorf("failed to lock communities: %w", err)
	}
	if found, err = checkActive(req, locked); err != nil {
		return 0, err
	}

	affected, err := properties.CountActiveByCommunities(ctx, req.MergeIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}

	primaryAliases, err := communities.ListAliases(ctx, req.PrimaryID)
	if err != nil {
		return 0, fmt.Errorf("failed to list aliases of primary: %w", err)
	}
	owned := map[string]struct{}{found[req.PrimaryID].Name: {}}
	for _, a := range primaryAliases {
		owned[a.AliasName] = struct{}{}
	}

	// существующие алиасы всех участников переносятся до добавления бывших имен
	for _, mergedID := range req.MergeIDs {
		aliases, err := communities.ListAliases(ctx, mergedID)
		if err != nil {
			return 0, fmt.Errorf("failed to list aliases of %s: %w", mergedID, err)
		}
		for _, a := range aliases {
			// алиас с именем, которое уже есть у основного, отбрасывается
			if _, taken := owned[a.AliasName]; taken {
				if err := communities.DeleteAlias(ctx, a.ID); err != nil {
					return 0, fmt.Errorf("failed to drop alias %q: %w", a.AliasName, err)
				}
				continue
			}
			if err := communities.MoveAlias(ctx, a.ID, req.PrimaryID); err != nil {
				return 0, fmt.Errorf("failed to transfer alias %q: %w", a.AliasName, err)
			}
			owned[a.AliasName] = struct{}{}
		}
	}

	now := uc.now().UTC()
	for _, mergedID := range req.MergeIDs {
		name := found[mergedID].Name
		inserted, err := communities.AddAlias(ctx, domain.CommunityAlias{
			ID:          uuid.New(),
			AliasName:   name,
			CommunityID: req.PrimaryID,
			Source:      constants.AliasSourceMerge,
			CreatedAt:   now,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to add alias %q: %w", name, err)
		}
		if inserted {
			owned[name] = struct{}{}
			continue
		}
		if _, ok := owned[name]; !ok {
			// (name, merge) занят сообществом вне слияния
			return 0, &domain.IntegrityError{
				Constraint: "community_aliases_name_source_key",
				Message:    fmt.Sprintf("alias %q is already held by another community", name),
			}
		}
	}

	if _, err := properties.ReassignCommunity(ctx, req.MergeIDs, req.PrimaryID); err != nil {
		return 0, fmt.Errorf("failed to reassign properties: %w", err)
	}

	deactivated, err := communities.Deactivate(ctx, req.MergeIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate merged communities: %w", err)
	}
	if deactivated != int64(len(req.MergeIDs)) {
		return 0, fmt.Errorf("deactivated %d of %d merged communities", deactivated, len(req.MergeIDs))
	}

	if _, err := communities.RefreshPropertyCount(ctx, req.PrimaryID); err != nil {
		return 0, fmt.Errorf("failed to refresh property count: %w", err)
	}

	return affected, nil
}
