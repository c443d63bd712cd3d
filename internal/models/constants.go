package models

// ListingStatus константы статусов объявлений
const (
	ListingStatusAvailable = "available"
	ListingStatusHidden    = "hidden"
	ListingStatusSold      = "sold"
	ListingStatusPending   = "pending"
	ListingStatusBanned    = "banned"
	ListingStatusDeleted   = "deleted"
)

// TradeStatus константы статусов сделок
const (
	TradeStatusPending   = "PENDING"
	TradeStatusCompleted = "COMPLETED"
	TradeStatusCancelled = "CANCELLED"
)

// DisputeStatus константы статусов споров
const (
	DisputeStatusOpen     = "OPEN"
	DisputeStatusResolved = "RESOLVED"
)

// ConversationStatus константы статусов диалогов
const (
	ConversationStatusOpen   = "open"
	ConversationStatusClosed = "closed"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Тарифы подписки продавца
const (
	TierFree  = "FREE"
	TierPro   = "PRO"
	TierElite = "ELITE"
)

// ValidListingStatuses список валидных статусов объявлений
var ValidListingStatuses = map[string]struct{}{
	ListingStatusAvailable: {},
	ListingStatusHidden:    {},
	ListingStatusSold:      {},
	ListingStatusPending:   {},
	ListingStatusBanned:    {},
	ListingStatusDeleted:   {},
}

// TerminalListingStatuses статусы без исходящих переходов
var TerminalListingStatuses = map[string]struct{}{
	ListingStatusSold:    {},
	ListingStatusDeleted: {},
	ListingStatusBanned:  {},
}

// ValidTiers список валидных тарифов подписки
var ValidTiers = map[string]struct{}{
	TierFree:  {},
	TierPro:   {},
	TierElite: {},
}
