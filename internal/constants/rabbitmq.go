package constants

// Обменник для событий сервиса
const (
	ExchangeListingEvents = "listing_events"
)

// Ключи маршрутизации
const (
	RoutingKeyImportFinished = "listing.import.finished"

	RoutingKeyCommunitiesMerged = "community.merge.finished"
)
