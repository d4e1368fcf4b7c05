package domain

import "math"

type ChangeType string

const (
	ChangeStatus ChangeType = "STATUS_CHANGE"
	ChangePrice  ChangeType = "PRICE_CHANGE"
	ChangeInfo   ChangeType = "INFO_CHANGE"
)

// ClassifyChange определяет тип изменения. Первое совпадение выигрывает:
// смена статуса важнее смены цены.
func ClassifyChange(existing, incoming PropertyRecord) ChangeType {
	if existing.Status != incoming.Status {
		return ChangeStatus
	}

	var before, after *float64
	switch incoming.Status {
	case StatusSold:
		before, after = existing.SoldPrice, incoming.SoldPrice
	default:
		before, after = existing.ListedPrice, incoming.ListedPrice
	}
	if !samePrice(before, after) {
		return ChangePrice
	}

	return ChangeInfo
}

// цены сравниваются с точностью до сотых
func samePrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Round(*a*100) == math.Round(*b*100)
}
