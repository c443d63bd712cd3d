package dto

import "encoding/json"

// RegisterRequest represents the request to register a new account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to rotate a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateListingRequest represents the request to publish a listing
type CreateListingRequest struct {
	Kind        string   `json:"kind" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Rate        *float64 `json:"rate"`
	Amount      *float64 `json:"amount"`
}

// UpdateListingStatusRequest represents the request to change listing status
type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OpenTradeRequest represents the request to open a trade on a listing
type OpenTradeRequest struct {
	Kind      string `json:"kind" binding:"required"`
	ListingID string `json:"listing_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// FileDisputeRequest represents the request to file a dispute on a trade
type FileDisputeRequest struct {
	Reason   string          `json:"reason" binding:"required"`
	Evidence json.RawMessage `json:"evidence"`
}

// ResolveDisputeRequest represents the moderator verdict on a dispute
type ResolveDisputeRequest struct {
	Outcome    string `json:"outcome" binding:"required"`
	Resolution string `json:"resolution" binding:"required"`
}

// OverrideTradeRequest represents a direct moderator intervention on a trade
type OverrideTradeRequest struct {
	Outcome    string `json:"outcome" binding:"required"`
	Resolution string `json:"resolution" binding:"required"`
}

// FileReportRequest represents the request to report a user or listing
type FileReportRequest struct {
	TargetType  string `json:"target_type" binding:"required"`
	TargetID    string `json:"target_id" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

// ReviewReportRequest represents the moderator verdict on a report
type ReviewReportRequest struct {
	Verdict string `json:"verdict" binding:"required"`
}

// VouchRequest represents the request to vouch for another user
type VouchRequest struct {
	Comment string `json:"comment"`
}

// SetBannedRequest represents the moderator request to ban or unban a user
type SetBannedRequest struct {
	Banned bool   `json:"banned"`
	Reason string `json:"reason"`
}

// SetVerifiedRequest represents the moderator request to mark a user verified
type SetVerifiedRequest struct {
	Verified bool `json:"verified"`
}

// SetTierRequest represents the request to change a user's subscription tier
type SetTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// UpdateSettingRequest represents the moderator request to change a runtime setting
type UpdateSettingRequest struct {
	Value float64 `json:"value"`
}
