package domain

import (
	"time"

	"github.com/google/uuid"
)

// Community - мастер-запись жилого комплекса. Имя уникально среди активных записей.
type Community struct {
	ID             uuid.UUID
	Name           string
	City           *string
	District       *string
	BusinessCircle *string
	PropertyCount  int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GeoAttrs - необязательные гео-атрибуты, которые приходят вместе с объявлением
type GeoAttrs struct {
	City           *string
	District       *string
	BusinessCircle *string
}

// IsEmpty сообщает, что ни один атрибут не передан
func (g GeoAttrs) IsEmpty() bool {
	return g.City == nil && g.District == nil && g.BusinessCircle == nil
}

// MissingFrom возвращает только те атрибуты, которых нет у сообщества,
// но которые есть во входящей записи. Существующие значения никогда не перезаписываются.
func (g GeoAttrs) MissingFrom(c *Community) GeoAttrs {
	var out GeoAttrs
	if c.City == nil && g.City != nil {
		out.City = g.City
	}
	if c.District == nil && g.District != nil {
		out.District = g.District
	}
	if c.BusinessCircle == nil && g.BusinessCircle != nil {
		out.BusinessCircle = g.BusinessCircle
	}
	return out
}

// CommunityAlias - альтернативное имя сообщества в рамках источника данных.
// Уникально по паре (AliasName, Source).
type CommunityAlias struct {
	ID          uuid.UUID
	AliasName   string
	CommunityID uuid.UUID
	Source      string
	CreatedAt   time.Time
}

// MergeRequest - запрос на объединение дубликатов сообществ
type MergeRequest struct {
	PrimaryID uuid.UUID
	MergeIDs  []uuid.UUID
}

// MergeResult - итог объединения
type MergeResult struct {
	Success            bool
	AffectedProperties int64
	Message            string
}
