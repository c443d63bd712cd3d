package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/risk"
)

type mockRiskUserRepo struct {
	mock.Mock
}

func (m *mockRiskUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRiskUserRepo) CountVouches(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockRiskUserRepo) CountResolvedReports(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockRiskListingRepo struct {
	mock.Mock
}

func (m *mockRiskListingRepo) CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	args := m.Called(ctx, sellerID)
	return args.Int(0), args.Error(1)
}

type mockRiskDisputeRepo struct {
	mock.Mock
}

func (m *mockRiskDisputeRepo) GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, tradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type staticThresholds struct{}

func (staticThresholds) Thresholds(ctx context.Context) (risk.Thresholds, error) {
	return risk.DefaultThresholds(), nil
}

func TestRiskService_ScoreUser(t *testing.T) {
	users := new(mockRiskUserRepo)
	disputes := new(mockRiskDisputeRepo)
	svc := NewRiskService(users, nil, disputes, staticThresholds{})
	ctx := context.Background()

	userID := uuid.New()
	// Аккаунту три дня, поручительств нет: 30 за возраст плюс 20 за
	// отсутствие поручительств.
	users.On("GetByID", ctx, userID).Return(&models.User{
		ID:        userID,
		CreatedAt: time.Now().Add(-3 * 24 * time.Hour),
	}, nil)
	users.On("CountVouches", ctx, userID).Return(0, nil)
	users.On("CountResolvedReports", ctx, userID).Return(0, nil)

	score, err := svc.ScoreUser(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 50, score)
}

func TestRiskService_UserTrust(t *testing.T) {
	users := new(mockRiskUserRepo)
	listings := new(mockRiskListingRepo)
	disputes := new(mockRiskDisputeRepo)
	svc := NewRiskService(users, listings, disputes, staticThresholds{})
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(&models.User{
		ID:         userID,
		IsVerified: true,
		CreatedAt:  time.Now().Add(-400 * 24 * time.Hour),
	}, nil)
	users.On("CountVouches", ctx, userID).Return(25, nil)
	users.On("CountResolvedReports", ctx, userID).Return(0, nil)
	listings.On("CountAvailableBySeller", ctx, userID).Return(4, nil)

	trust, err := svc.UserTrust(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 25, trust.VouchCount)
	assert.Equal(t, 4, trust.AvailableListings)
	// Старый верифицированный аккаунт с поручительствами чист.
	assert.Equal(t, 0, trust.RiskScore)
}

func TestRiskService_FlagTrade(t *testing.T) {
	users := new(mockRiskUserRepo)
	disputes := new(mockRiskDisputeRepo)
	svc := NewRiskService(users, nil, disputes, staticThresholds{})
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	trade := &models.Trade{
		ID:       uuid.New(),
		SellerID: sellerID,
		BuyerID:  buyerID,
		Price:    20000,
		Quantity: 1,
		Status:   models.TradeStatusPending,
	}

	// Продавцу два дня, покупатель давний и чистый.
	users.On("GetByID", ctx, sellerID).Return(&models.User{
		ID:        sellerID,
		CreatedAt: time.Now().Add(-2 * 24 * time.Hour),
	}, nil)
	users.On("GetByID", ctx, buyerID).Return(&models.User{
		ID:        buyerID,
		CreatedAt: time.Now().Add(-400 * 24 * time.Hour),
	}, nil)
	users.On("CountVouches", ctx, sellerID).Return(0, nil)
	users.On("CountVouches", ctx, buyerID).Return(25, nil)
	users.On("CountResolvedReports", ctx, mock.Anything).Return(0, nil)
	disputes.On("GetByTradeID", ctx, trade.ID).Return(nil, apperror.ErrDisputeNotFound)

	report, err := svc.FlagTrade(ctx, trade)
	assert.NoError(t, err)
	assert.Equal(t, []string{risk.FlagHighValue, risk.FlagNewSeller}, report.Flags)
	assert.Equal(t, 50, report.SellerScore)
	assert.Equal(t, 0, report.BuyerScore)
}

func TestRiskService_FlagTrade_WithDispute(t *testing.T) {
	users := new(mockRiskUserRepo)
	disputes := new(mockRiskDisputeRepo)
	svc := NewRiskService(users, nil, disputes, staticThresholds{})
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	trade := &models.Trade{
		ID:       uuid.New(),
		SellerID: sellerID,
		BuyerID:  buyerID,
		Price:    100,
		Quantity: 1,
	}

	oldAccount := &models.User{CreatedAt: time.Now().Add(-400 * 24 * time.Hour)}
	users.On("GetByID", ctx, mock.Anything).Return(oldAccount, nil)
	users.On("CountVouches", ctx, mock.Anything).Return(25, nil)
	users.On("CountResolvedReports", ctx, mock.Anything).Return(0, nil)
	disputes.On("GetByTradeID", ctx, trade.ID).Return(&models.Dispute{
		TradeID: trade.ID,
		Status:  models.DisputeStatusOpen,
	}, nil)

	report, err := svc.FlagTrade(ctx, trade)
	assert.NoError(t, err)
	assert.Equal(t, []string{risk.FlagDisputeFiled}, report.Flags)
}
