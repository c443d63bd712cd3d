package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя торговой площадки.
// Пользователи никогда не удаляются физически, только банятся.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Username         string     `db:"username" json:"username"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             string     `db:"role" json:"role"`
	IsBanned         bool       `db:"is_banned" json:"is_banned"`
	IsVerified       bool       `db:"is_verified" json:"is_verified"`
	SubscriptionTier string     `db:"subscription_tier" json:"subscription_tier"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor представляет уже аутентифицированного инициатора операции.
// Передаётся в сервисы явным параметром, а не через контекст запроса.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// IsModerator сообщает, имеет ли актор права модератора.
func (a Actor) IsModerator() bool {
	return a.Role == RoleAdmin
}

// Vouch описывает поручительство одного пользователя за другого.
type Vouch struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	VoucherID uuid.UUID  `db:"voucher_id" json:"voucher_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	TradeID   *uuid.UUID `db:"trade_id" json:"trade_id,omitempty"`
	Comment   *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserTrust агрегирует производные поля, питающие оценку риска.
type UserTrust struct {
	User              *User `json:"user"`
	VouchCount        int   `json:"vouch_count"`
	ResolvedReports   int   `json:"resolved_reports"`
	RiskScore         int   `json:"risk_score"`
	AvailableListings int   `json:"available_listings"`
}
