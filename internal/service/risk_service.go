package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/risk"
)

// RiskUserRepository описывает чтения, нужные для сбора входных
// данных оценки риска.
type RiskUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CountVouches(ctx context.Context, userID uuid.UUID) (int, error)
	CountResolvedReports(ctx context.Context, userID uuid.UUID) (int, error)
}

// RiskDisputeRepository проверяет наличие спора по сделке.
type RiskDisputeRepository interface {
	GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error)
}

// RiskListingRepository считает активные объявления продавца.
type RiskListingRepository interface {
	CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error)
}

// RiskThresholdsProvider отдаёт действующие пороги пометки.
type RiskThresholdsProvider interface {
	Thresholds(ctx context.Context) (risk.Thresholds, error)
}

// RiskService собирает входные данные и применяет чистую эвристику
// из пакета risk. Сама эвристика не ходит в базу.
type RiskService struct {
	users    RiskUserRepository
	listings RiskListingRepository
	disputes RiskDisputeRepository
	settings RiskThresholdsProvider
	now      func() time.Time
}

// NewRiskService создаёт сервис оценки риска.
func NewRiskService(users RiskUserRepository, listings RiskListingRepository, disputes RiskDisputeRepository, settings RiskThresholdsProvider) *RiskService {
	return &RiskService{
		users:    users,
		listings: listings,
		disputes: disputes,
		settings: settings,
		now:      time.Now,
	}
}

// collectInput загружает производные поля пользователя.
func (s *RiskService) collectInput(ctx context.Context, user *models.User) (risk.Input, int, int, error) {
	vouches, err := s.users.CountVouches(ctx, user.ID)
	if err != nil {
		return risk.Input{}, 0, 0, err
	}
	reports, err := s.users.CountResolvedReports(ctx, user.ID)
	if err != nil {
		return risk.Input{}, 0, 0, err
	}

	in := risk.Input{
		AccountAge:      s.now().Sub(user.CreatedAt),
		VouchCount:      vouches,
		ResolvedReports: reports,
		Banned:          user.IsBanned,
		Verified:        user.IsVerified,
	}
	return in, vouches, reports, nil
}

// ScoreUser возвращает оценку риска пользователя.
func (s *RiskService) ScoreUser(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	in, _, _, err := s.collectInput(ctx, user)
	if err != nil {
		return 0, err
	}
	return risk.Score(in), nil
}

// UserTrust возвращает пользователя вместе с производными полями
// доверия для модераторского обзора.
func (s *RiskService) UserTrust(ctx context.Context, userID uuid.UUID) (*models.UserTrust, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	in, vouches, reports, err := s.collectInput(ctx, user)
	if err != nil {
		return nil, err
	}
	available, err := s.listings.CountAvailableBySeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UserTrust{
		User:              user,
		VouchCount:        vouches,
		ResolvedReports:   reports,
		RiskScore:         risk.Score(in),
		AvailableListings: available,
	}, nil
}

// TradeFlagsReport — результат триажа сделки для модераторов.
type TradeFlagsReport struct {
	Trade       *models.Trade `json:"trade"`
	SellerScore int           `json:"seller_score"`
	BuyerScore  int           `json:"buyer_score"`
	Flags       []string      `json:"flags"`
}

// FlagTrade вычисляет флаги сделки из оценок участников, атрибутов
// сделки и наличия спора.
func (s *RiskService) FlagTrade(ctx context.Context, trade *models.Trade) (*TradeFlagsReport, error) {
	seller, err := s.users.GetByID(ctx, trade.SellerID)
	if err != nil {
		return nil, err
	}
	sellerIn, _, _, err := s.collectInput(ctx, seller)
	if err != nil {
		return nil, err
	}

	buyerScore, err := s.ScoreUser(ctx, trade.BuyerID)
	if err != nil {
		return nil, err
	}

	hasDispute := true
	if _, err := s.disputes.GetByTradeID(ctx, trade.ID); err != nil {
		if !errors.Is(err, apperror.ErrDisputeNotFound) {
			return nil, err
		}
		hasDispute = false
	}

	thresholds, err := s.settings.Thresholds(ctx)
	if err != nil {
		return nil, err
	}

	sellerScore := risk.Score(sellerIn)
	flags := risk.Flags(risk.TradeInput{
		Price:      trade.Price,
		TotalPrice: trade.TotalPrice,
		Rate:       trade.Rate,
		SellerAge:  sellerIn.AccountAge,
		HasDispute: hasDispute,
	}, sellerScore, buyerScore, thresholds)

	return &TradeFlagsReport{
		Trade:       trade,
		SellerScore: sellerScore,
		BuyerScore:  buyerScore,
		Flags:       flags,
	}, nil
}
