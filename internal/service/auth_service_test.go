package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s, ok := m.sessions[refreshToken]; ok {
		return s, nil
	}
	return nil, apperror.New(apperror.ErrCodeNotFound, "сессия не найдена")
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)

	ctx := context.Background()
	res, err := service.Register(ctx, RegisterInput{
		Email:    "trader@example.com",
		Password: "password123",
	}, SessionMeta{IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("register вернул ошибку: %v", err)
	}

	if res.User.ID == uuid.Nil {
		t.Fatalf("user ID должен быть установлен")
	}
	if res.User.Role != models.RoleUser {
		t.Fatalf("новый пользователь получает роль user, получили %q", res.User.Role)
	}
	if res.User.SubscriptionTier != models.TierFree {
		t.Fatalf("новый пользователь стартует на FREE, получили %q", res.User.SubscriptionTier)
	}
	if res.User.Username != "trader" {
		t.Fatalf("имя должно выводиться из email, получили %q", res.User.Username)
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("ожидалась одна сессия, получили %d", len(repo.sessions))
	}

	// Повторная регистрация на тот же email отклоняется.
	if _, err := service.Register(ctx, RegisterInput{
		Email:    "trader@example.com",
		Password: "password123",
	}, SessionMeta{}); !apperror.IsConflict(err) {
		t.Fatalf("ожидался CONFLICT, получили %v", err)
	}

	loginRes, err := service.Login(ctx, LoginInput{
		Email:    "trader@example.com",
		Password: "password123",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("login вернул ошибку: %v", err)
	}
	if loginRes.TokenPair.AccessToken == "" {
		t.Fatalf("ожидался access токен")
	}

	actor, err := tokenManager.ParseAccess(loginRes.TokenPair.AccessToken)
	if err != nil {
		t.Fatalf("access токен не распарсился: %v", err)
	}
	if actor.ID != res.User.ID || actor.Role != models.RoleUser {
		t.Fatalf("клеймы токена не совпадают с пользователем")
	}
}

func TestAuthService_Login_Rejections(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "banned@example.com",
		Username:     "banned",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsBanned:     true,
	}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user

	if _, err := service.Login(ctx, LoginInput{Email: "banned@example.com", Password: "wrong"}, SessionMeta{}); err == nil {
		t.Fatalf("неверный пароль должен отклоняться")
	}

	_, err := service.Login(ctx, LoginInput{Email: "banned@example.com", Password: "password123"}, SessionMeta{})
	if !apperror.IsForbidden(err) {
		t.Fatalf("забаненный пользователь не должен входить, получили %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)
	ctx := context.Background()

	res, err := service.Register(ctx, RegisterInput{
		Email:    "user@example.com",
		Password: "password123",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("register вернул ошибку: %v", err)
	}

	newPair, err := service.Refresh(ctx, res.TokenPair.RefreshToken, SessionMeta{})
	if err != nil {
		t.Fatalf("refresh вернул ошибку: %v", err)
	}
	if newPair.RefreshToken == res.TokenPair.RefreshToken {
		t.Fatalf("ожидался новый refresh токен")
	}

	// Старый токен ротирован: сессии по нему больше нет.
	if _, err := service.Refresh(ctx, res.TokenPair.RefreshToken, SessionMeta{}); err == nil {
		t.Fatalf("повторное использование старого refresh токена должно отклоняться")
	}
}
