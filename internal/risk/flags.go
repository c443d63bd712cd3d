package risk

import "time"

// Флаги, которыми помечаются сделки для модераторской очереди.
const (
	FlagHighValue      = "high-value"
	FlagNewSeller      = "new-seller"
	FlagHighRiskUser   = "high-risk-user"
	FlagSuspiciousRate = "suspicious-rate"
	FlagDisputeFiled   = "dispute-filed"
)

// Thresholds — пороги пометки. Значения по умолчанию живут в таблице
// настроек и читаются через сервис настроек.
type Thresholds struct {
	HighValue      float64
	SuspiciousRate float64
	DefaultRate    float64
}

// DefaultThresholds — значения, с которыми сеется таблица настроек.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValue:      15000,
		SuspiciousRate: 0.25,
		DefaultRate:    0.35,
	}
}

// TradeInput — атрибуты сделки, нужные для пометки.
type TradeInput struct {
	Price      float64
	TotalPrice *float64
	Rate       *float64
	SellerAge  time.Duration
	HasDispute bool
}

// rule — одна проверка пометки. Правила независимы: сделка может нести
// несколько флагов одновременно, каждый срабатывает не более одного раза.
type rule struct {
	flag    string
	applies func(in TradeInput, sellerScore, buyerScore int, th Thresholds) bool
}

var rules = []rule{
	{FlagHighValue, func(in TradeInput, _, _ int, th Thresholds) bool {
		price := in.Price
		if in.TotalPrice != nil {
			price = *in.TotalPrice
		}
		return price > th.HighValue
	}},
	{FlagNewSeller, func(in TradeInput, _, _ int, _ Thresholds) bool {
		return in.SellerAge < 7*day
	}},
	{FlagHighRiskUser, func(_ TradeInput, sellerScore, buyerScore int, _ Thresholds) bool {
		return sellerScore > HighRiskThreshold || buyerScore > HighRiskThreshold
	}},
	{FlagSuspiciousRate, func(in TradeInput, _, _ int, th Thresholds) bool {
		rate := th.DefaultRate
		if in.Rate != nil {
			rate = *in.Rate
		}
		return rate < th.SuspiciousRate
	}},
	{FlagDisputeFiled, func(in TradeInput, _, _ int, _ Thresholds) bool {
		return in.HasDispute
	}},
}

// Flags возвращает флаги сделки в порядке проверки правил.
// Чистая детерминированная функция.
func Flags(in TradeInput, sellerScore, buyerScore int, th Thresholds) []string {
	var out []string
	for _, r := range rules {
		if r.applies(in, sellerScore, buyerScore, th) {
			out = append(out, r.flag)
		}
	}
	return out
}
