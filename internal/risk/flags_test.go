package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestFlags_Rules(t *testing.T) {
	th := DefaultThresholds()
	oldSeller := 365 * 24 * time.Hour

	tests := []struct {
		name        string
		in          TradeInput
		sellerScore int
		buyerScore  int
		want        []string
	}{
		{
			name: "чистая сделка без флагов",
			in:   TradeInput{Price: 100, SellerAge: oldSeller},
			want: nil,
		},
		{
			name: "дорогая сделка по total_price",
			in:   TradeInput{Price: 10, TotalPrice: f64(20000), SellerAge: oldSeller},
			want: []string{FlagHighValue},
		},
		{
			name: "цена за единицу без total_price",
			in:   TradeInput{Price: 16000, SellerAge: oldSeller},
			want: []string{FlagHighValue},
		},
		{
			name: "свежий продавец",
			in:   TradeInput{Price: 100, SellerAge: 3 * 24 * time.Hour},
			want: []string{FlagNewSeller},
		},
		{
			name:        "высокорисковый покупатель",
			in:          TradeInput{Price: 100, SellerAge: oldSeller},
			buyerScore:  71,
			want:        []string{FlagHighRiskUser},
		},
		{
			name:        "оценка ровно на пороге не флагуется",
			in:          TradeInput{Price: 100, SellerAge: oldSeller},
			sellerScore: 70,
			want:        nil,
		},
		{
			name: "подозрительный курс",
			in:   TradeInput{Price: 100, Rate: f64(0.1), SellerAge: oldSeller},
			want: []string{FlagSuspiciousRate},
		},
		{
			name: "курс по умолчанию выше пола",
			in:   TradeInput{Price: 100, SellerAge: oldSeller},
			want: nil,
		},
		{
			name: "открытый спор",
			in:   TradeInput{Price: 100, SellerAge: oldSeller, HasDispute: true},
			want: []string{FlagDisputeFiled},
		},
		{
			name:        "несколько флагов в порядке проверки правил",
			in:          TradeInput{Price: 20000, Rate: f64(0.1), SellerAge: time.Hour, HasDispute: true},
			sellerScore: 90,
			want:        []string{FlagHighValue, FlagNewSeller, FlagHighRiskUser, FlagSuspiciousRate, FlagDisputeFiled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flags(tt.in, tt.sellerScore, tt.buyerScore, th)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlags_Deterministic(t *testing.T) {
	th := DefaultThresholds()
	in := TradeInput{Price: 20000, Rate: f64(0.2), SellerAge: time.Hour, HasDispute: true}

	first := Flags(in, 80, 10, th)
	second := Flags(in, 80, 10, th)
	assert.Equal(t, first, second)
}
