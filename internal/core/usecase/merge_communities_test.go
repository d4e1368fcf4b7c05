package usecase

import (
	"context"
	"errors"
	"listing-ingest-service/internal/constants"
	"listing-ingest-service/internal/core/domain"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMergeFixture() (*memStore, *memReporter, *MergeCommunitiesUseCase) {
	store := newMemStore()
	reporter := &memReporter{}
	return store, reporter, NewMergeCommunitiesUseCase(store.Communities(), store, reporter)
}

func TestMerge_ReassignsAliasesAndDeactivates(t *testing.T) {
	store, reporter, uc := newMergeFixture()
	a := store.addCommunity("Sunrise Gardens", true)
	b := store.addCommunity("Sunrise Garden", true)
	c := store.addCommunity("日出花园", true)

	store.addProperty(a.ID, "A1")
	store.addProperty(b.ID, "B1")
	store.addProperty(b.ID, "B2")
	store.addProperty(c.ID, "C1")
	store.addAlias(b.ID, "Sunrise Gdns", "anjuke")

	res, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID, c.ID}})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(3), res.AffectedProperties)

	for _, p := range store.state.properties {
		assert.Equal(t, a.ID, p.CommunityID, "property %s must belong to primary", p.SourcePropertyID)
	}

	primary := store.state.communities[a.ID]
	assert.Equal(t, 4, primary.PropertyCount)
	assert.True(t, primary.IsActive)
	assert.False(t, store.state.communities[b.ID].IsActive)
	assert.False(t, store.state.communities[c.ID].IsActive)

	names := map[string]string{}
	for _, alias := range store.aliasesOf(a.ID) {
		names[alias.AliasName] = alias.Source
	}
	assert.Equal(t, map[string]string{
		"Sunrise Garden": constants.AliasSourceMerge,
		"日出花园":         constants.AliasSourceMerge,
		"Sunrise Gdns":   "anjuke",
	}, names)
	assert.Empty(t, store.aliasesOf(b.ID))

	require.Len(t, reporter.merges, 1)
	assert.Equal(t, int64(3), reporter.merges[0].AffectedProperties)
}

func TestMerge_MergedNameResolvesToPrimary(t *testing.T) {
	store, _, uc := newMergeFixture()
	a := store.addCommunity("Sunrise Gardens", true)
	b := store.addCommunity("Sunrise Garden", true)

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)

	id, err := NewCommunityResolver().ResolveOrCreate(context.Background(), store.Communities(), "Sunrise Garden", domain.GeoAttrs{})
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
}

func TestMerge_DiscardsAliasPrimaryAlreadyOwns(t *testing.T) {
	store, _, uc := newMergeFixture()
	a := store.addCommunity("Sunrise Gardens", true)
	b := store.addCommunity("Sunrise Garden", true)
	store.addAlias(a.ID, "SG", "lianjia")
	dup := store.addAlias(b.ID, "SG", "anjuke")
	moved := store.addAlias(b.ID, "Sunrise G.", "anjuke")

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)

	_, stillThere := store.state.aliases[dup.ID]
	assert.False(t, stillThere, "colliding alias must be discarded, not transferred")
	assert.Equal(t, a.ID, store.state.aliases[moved.ID].CommunityID)
	var sg []domain.CommunityAlias
	for _, al := range store.aliasesOf(a.ID) {
		if al.AliasName == "SG" {
			sg = append(sg, al)
		}
	}
	require.Len(t, sg, 1)
	assert.Equal(t, "lianjia", sg[0].Source)
}

func TestMerge_ExistingMergeAliasIsNotDuplicated(t *testing.T) {
	store, _, uc := newMergeFixture()
	a := store.addCommunity("Sunrise Gardens", true)
	b := store.addCommunity("Sunrise Garden", true)
	store.addAlias(a.ID, "Sunrise Garden", constants.AliasSourceMerge)

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)

	assert.Len(t, store.aliasesOf(a.ID), 1)
}

func TestMerge_InvalidRequestsPerformNoWrites(t *testing.T) {
	missing := uuid.New()

	tests := []struct {
		name  string
		build func(store *memStore) domain.MergeRequest
		field string
	}{
		{
			name: "primary inside merge set",
			build: func(store *memStore) domain.MergeRequest {
				a := store.addCommunity("A", true)
				b := store.addCommunity("B", true)
				return domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID, a.ID}}
			},
			field: "merge_ids",
		},
		{
			name: "non-existent merge id",
			build: func(store *memStore) domain.MergeRequest {
				a := store.addCommunity("A", true)
				return domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{missing}}
			},
			field: "merge_ids",
		},
		{
			name: "duplicate merge ids",
			build: func(store *memStore) domain.MergeRequest {
				a := store.addCommunity("A", true)
				b := store.addCommunity("B", true)
				return domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID, b.ID}}
			},
			field: "merge_ids",
		},
		{
			name: "inactive primary",
			build: func(store *memStore) domain.MergeRequest {
				a := store.addCommunity("A", false)
				b := store.addCommunity("B", true)
				return domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}}
			},
			field: "primary_id",
		},
		{
			name: "empty merge set",
			build: func(store *memStore) domain.MergeRequest {
				a := store.addCommunity("A", true)
				return domain.MergeRequest{PrimaryID: a.ID}
			},
			field: "merge_ids",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, reporter, uc := newMergeFixture()
			req := tt.build(store)

			res, err := uc.Merge(context.Background(), req)

			assert.Nil(t, res)
			require.ErrorIs(t, err, domain.ErrInvalidMergeRequest)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)

			assert.Zero(t, store.begins)
			assert.Zero(t, store.writes)
			assert.Empty(t, reporter.merges)
		})
	}
}

func TestMerge_StepFailureRollsBackEverything(t *testing.T) {
	store, reporter, uc := newMergeFixture()
	a := store.addCommunity("A", true)
	b := store.addCommunity("B", true)
	store.addProperty(b.ID, "B1")
	store.failOps["reassign"] = errors.New("connection reset")

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidMergeRequest)
	assert.True(t, store.state.communities[b.ID].IsActive)
	assert.Empty(t, store.aliasesOf(a.ID))
	assert.Empty(t, reporter.merges)
}

func TestMerge_FormerNameSurvivesWhenLaterMemberOwnsItAsAlias(t *testing.T) {
	store, _, uc := newMergeFixture()
	a := store.addCommunity("Sunrise Gardens", true)
	c := store.addCommunity("Foo", true)
	b := store.addCommunity("Bar", true)
	store.addAlias(b.ID, "Foo", constants.AliasSourceMerge)

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{c.ID, b.ID}})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, alias := range store.aliasesOf(a.ID) {
		names[alias.AliasName] = true
	}
	assert.Equal(t, map[string]bool{"Foo": true, "Bar": true}, names)

	for _, name := range []string{"Foo", "Bar"} {
		id, err := NewCommunityResolver().ResolveOrCreate(context.Background(), store.Communities(), name, domain.GeoAttrs{})
		require.NoError(t, err)
		assert.Equal(t, a.ID, id, "former name %s must resolve to primary", name)
	}
}

func TestMerge_FormerNameHeldByOutsideCommunityAborts(t *testing.T) {
	store, reporter, uc := newMergeFixture()
	a := store.addCommunity("A", true)
	b := store.addCommunity("Foo", true)
	d := store.addCommunity("D", true)
	store.addAlias(d.ID, "Foo", constants.AliasSourceMerge)

	_, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})

	var integrityErr *domain.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Contains(t, integrityErr.Message, `"Foo"`)
	assert.True(t, store.state.communities[b.ID].IsActive)
	assert.Empty(t, reporter.merges)
}

func TestMerge_MemberDeactivatedConcurrentlyIsRejected(t *testing.T) {
	store, reporter, uc := newMergeFixture()
	a := store.addCommunity("A", true)
	b := store.addCommunity("B", true)
	c := store.addCommunity("C", true)
	store.addProperty(b.ID, "B1")
	store.beforeBegin = func(st *memState) {
		other := st.communities[c.ID]
		other.IsActive = false
		st.communities[c.ID] = other
	}

	res, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID, c.ID}})

	assert.Nil(t, res)
	require.ErrorIs(t, err, domain.ErrInvalidMergeRequest)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "merge_ids")
	assert.Zero(t, store.commits)
	assert.True(t, store.state.communities[b.ID].IsActive)
	assert.Empty(t, reporter.merges)
}

func TestMerge_InactivePropertiesStayWithMergedCommunity(t *testing.T) {
	store, _, uc := newMergeFixture()
	a := store.addCommunity("A", true)
	b := store.addCommunity("B", true)
	live := store.addProperty(b.ID, "B1")
	delisted := store.addProperty(b.ID, "B2")
	delisted.IsActive = false
	store.state.properties[delisted.ID] = delisted

	res, err := uc.Merge(context.Background(), domain.MergeRequest{PrimaryID: a.ID, MergeIDs: []uuid.UUID{b.ID}})

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.AffectedProperties)
	assert.Equal(t, a.ID, store.state.properties[live.ID].CommunityID)
	assert.Equal(t, b.ID, store.state.properties[delisted.ID].CommunityID)
	assert.Equal(t, 1, store.state.communities[a.ID].PropertyCount)
}
