package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassifyFailureAndReason(t *testing.T) {
	verr := NewValidationError()
	verr.Add("sold_price", "is required for SOLD listings")
	verr.Add("build_area", "must be greater than 0")
	verr.Add("build_area", "ignored second message")

	integrity := &IntegrityError{Constraint: "properties_natural_key", Message: "a listing with this source id already exists", Err: errors.New("pg 23505")}
	fileErr := &FileProcessingError{Reason: "file has no header row", Err: ErrEmptyUpload}

	tests := []struct {
		name       string
		err        error
		wantType   FailureType
		wantReason string
	}{
		{"validation", fmt.Errorf("wrapped: %w", verr), FailureValidation,
			"validation failed: build_area: must be greater than 0; sold_price: is required for SOLD listings"},
		{"integrity", fmt.Errorf("insert: %w", integrity), FailureIntegrity,
			"data conflict: a listing with this source id already exists"},
		{"file", fileErr, FailureFileProcessing, "file could not be processed: file has no header row"},
		{"unknown", errors.New("driver: connection reset by peer"), FailureUnknown,
			"unexpected error while saving the record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, ClassifyFailure(tt.err))
			assert.Equal(t, tt.wantReason, FailureReason(tt.err))
		})
	}

	assert.ErrorIs(t, integrity, ErrIntegrity)
	assert.ErrorIs(t, fileErr, ErrEmptyUpload)
}

func TestNewFailedRecord(t *testing.T) {
	rec := NewFailedRecord(map[string]any{"小区": "A"}, "lianjia", errors.New("boom"))

	assert.JSONEq(t, `{"小区":"A"}`, string(rec.Payload))
	assert.Equal(t, FailureUnknown, rec.FailureType)
	assert.Equal(t, "lianjia", rec.DataSource)
	assert.False(t, rec.IsHandled)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestGeoAttrsMissingFrom(t *testing.T) {
	city, district := "Shanghai", "Pudong"
	c := &Community{City: &city}

	missing := GeoAttrs{City: strp("Beijing"), District: &district}.MissingFrom(c)

	assert.Nil(t, missing.City)
	assert.Equal(t, &district, missing.District)
	assert.True(t, GeoAttrs{}.MissingFrom(c).IsEmpty())
}

func TestPropertyRecordApplyMutableKeepsIdentity(t *testing.T) {
	rooms := 3
	area := 99.0
	id, oldCommunity, newCommunity := uuid.New(), uuid.New(), uuid.New()

	existing := NewPropertyRecord(ListingInput{DataSource: "a", SourcePropertyID: "1", Status: StatusForSale, Rooms: &rooms, BuildArea: &area, FloorOriginal: "2/10"}, oldCommunity)
	existing.ID = id

	incoming := NewPropertyRecord(ListingInput{DataSource: "b", SourcePropertyID: "2", Status: StatusSold, Rooms: &rooms, BuildArea: &area}, newCommunity)
	existing.ApplyMutable(incoming)

	assert.Equal(t, id, existing.ID)
	assert.Equal(t, "a", existing.DataSource)
	assert.Equal(t, "1", existing.SourcePropertyID)
	assert.Equal(t, StatusSold, existing.Status)
	assert.Equal(t, newCommunity, existing.CommunityID)
	assert.Nil(t, existing.FloorNumber)
}

func strp(s string) *string { return &s }
