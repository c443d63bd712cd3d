package dto

import "github.com/ignatzorin/gamemarket-backend/internal/models"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standardized success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse represents the response to register, login and refresh
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// UnreadCountResponse represents the unread notifications counter
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// EvidenceUploadResponse represents the stored evidence file metadata
type EvidenceUploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}
