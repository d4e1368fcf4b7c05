package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PropertyStatus string

const (
	StatusForSale PropertyStatus = "FOR_SALE"
	StatusSold    PropertyStatus = "SOLD"
)

// ListingInput - нормализованная входящая запись (после маппинга полей CSV/JSON)
type ListingInput struct {
	DataSource       string         `json:"data_source" validate:"required"`
	SourcePropertyID string         `json:"source_property_id" validate:"required"`
	Status           PropertyStatus `json:"status" validate:"required,oneof=FOR_SALE SOLD"`
	CommunityName    string         `json:"community_name" validate:"required"`
	Rooms            *int           `json:"rooms" validate:"required,gte=0"`
	Halls            *int           `json:"halls,omitempty"`
	Baths            *int           `json:"baths,omitempty"`
	Orientation      string         `json:"orientation" validate:"required"`
	FloorOriginal    string         `json:"floor_original" validate:"required"`
	BuildArea        *float64       `json:"build_area" validate:"required,gt=0"`
	InnerArea        *float64       `json:"inner_area,omitempty"`

	ListedPrice *float64   `json:"listed_price,omitempty"`
	ListedDate  *time.Time `json:"listed_date,omitempty"`
	SoldPrice   *float64   `json:"sold_price,omitempty"`
	SoldDate    *time.Time `json:"sold_date,omitempty"`

	PropertyType   *string  `json:"property_type,omitempty"`
	BuildYear      *int     `json:"build_year,omitempty"`
	Structure      *string  `json:"structure,omitempty"`
	Decoration     *string  `json:"decoration,omitempty"`
	Elevator       *bool    `json:"elevator,omitempty"`
	OwnershipType  *string  `json:"ownership_type,omitempty"`
	OwnershipYears *int     `json:"ownership_years,omitempty"`
	HeatingMethod  *string  `json:"heating_method,omitempty"`
	Remarks        *string  `json:"remarks,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`

	Geo GeoAttrs `json:"-"`
}

// PropertyRecord - каноническая запись объекта. Естественный ключ (DataSource, SourcePropertyID).
type PropertyRecord struct {
	ID               uuid.UUID      `json:"id"`
	DataSource       string         `json:"data_source"`
	SourcePropertyID string         `json:"source_property_id"`
	CommunityID      uuid.UUID      `json:"community_id"`
	Status           PropertyStatus `json:"status"`

	Rooms         int         `json:"rooms"`
	Halls         *int        `json:"halls"`
	Baths         *int        `json:"baths"`
	Orientation   string      `json:"orientation"`
	FloorOriginal string      `json:"floor_original"`
	FloorNumber   *int        `json:"floor_number"`
	TotalFloors   *int        `json:"total_floors"`
	FloorLevel    *FloorLevel `json:"floor_level"`
	BuildArea     float64     `json:"build_area"`
	InnerArea     *float64    `json:"inner_area"`

	ListedPrice *float64   `json:"listed_price"`
	ListedDate  *time.Time `json:"listed_date"`
	SoldPrice   *float64   `json:"sold_price"`
	SoldDate    *time.Time `json:"sold_date"`

	PropertyType   *string `json:"property_type"`
	BuildYear      *int    `json:"build_year"`
	Structure      *string `json:"structure"`
	Decoration     *string `json:"decoration"`
	Elevator       *bool   `json:"elevator"`
	OwnershipType  *string `json:"ownership_type"`
	OwnershipYears *int    `json:"ownership_years"`
	HeatingMethod  *string `json:"heating_method"`
	Remarks        *string `json:"remarks"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPropertyRecord собирает запись из входных данных. ID и CommunityID проставляет вызывающий.
func NewPropertyRecord(in ListingInput, communityID uuid.UUID) PropertyRecord {
	floor := ParseFloor(in.FloorOriginal)

	rec := PropertyRecord{
		DataSource:       in.DataSource,
		SourcePropertyID: in.SourcePropertyID,
		CommunityID:      communityID,
		Status:           in.Status,
		Halls:            in.Halls,
		Baths:            in.Baths,
		Orientation:      in.Orientation,
		FloorOriginal:    in.FloorOriginal,
		FloorNumber:      floor.FloorNumber,
		TotalFloors:      floor.TotalFloors,
		FloorLevel:       floor.Level,
		InnerArea:        in.InnerArea,
		PropertyType:     in.PropertyType,
		BuildYear:        in.BuildYear,
		Structure:        in.Structure,
		Decoration:       in.Decoration,
		Elevator:         in.Elevator,
		OwnershipType:    in.OwnershipType,
		OwnershipYears:   in.OwnershipYears,
		HeatingMethod:    in.HeatingMethod,
		Remarks:          in.Remarks,
		IsActive:         true,
	}
	if in.Rooms != nil {
		rec.Rooms = *in.Rooms
	}
	if in.BuildArea != nil {
		rec.BuildArea = *in.BuildArea
	}

	// Цена и дата берутся только для текущего статуса
	switch in.Status {
	case StatusForSale:
		rec.ListedPrice = in.ListedPrice
		rec.ListedDate = in.ListedDate
	case StatusSold:
		rec.SoldPrice = in.SoldPrice
		rec.SoldDate = in.SoldDate
		// дата выставления полезна для истории сделки
		rec.ListedPrice = in.ListedPrice
		rec.ListedDate = in.ListedDate
	}
	return rec
}

// ApplyMutable переносит изменяемые поля из incoming. Идентичность, естественный ключ
// и CreatedAt не трогаются.
func (p *PropertyRecord) ApplyMutable(incoming PropertyRecord) {
	id, createdAt := p.ID, p.CreatedAt
	source, sourceID := p.DataSource, p.SourcePropertyID

	*p = incoming

	p.ID, p.CreatedAt = id, createdAt
	p.DataSource, p.SourcePropertyID = source, sourceID
}

// PropertyHistorySnapshot - неизменяемая копия предыдущего состояния записи
type PropertyHistorySnapshot struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	ChangeType ChangeType
	State      json.RawMessage
	CreatedAt  time.Time
}

// NewSnapshot сериализует текущее состояние перед перезаписью
func NewSnapshot(current PropertyRecord, change ChangeType, at time.Time) (PropertyHistorySnapshot, error) {
	state, err := json.Marshal(current)
	if err != nil {
		return PropertyHistorySnapshot{}, err
	}
	return PropertyHistorySnapshot{
		ID:         uuid.New(),
		PropertyID: current.ID,
		ChangeType: change,
		State:      state,
		CreatedAt:  at,
	}, nil
}

// UpsertResult - результат обработки одной записи
type UpsertResult struct {
	Success    bool
	PropertyID uuid.UUID
	Created    bool
	ChangeType ChangeType
	Reason     string
}
