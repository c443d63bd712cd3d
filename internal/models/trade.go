package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade описывает согласованную сделку между покупателем и продавцом
// по одному объявлению. Ссылка на объявление хранится дискриминатором
// (listing_type, listing_id), а не внешним ключом.
type Trade struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	ListingKind     ListingKind `db:"listing_type" json:"listing_type"`
	ListingID       uuid.UUID   `db:"listing_id" json:"listing_id"`
	BuyerID         uuid.UUID   `db:"buyer_id" json:"buyer_id"`
	SellerID        uuid.UUID   `db:"seller_id" json:"seller_id"`
	Price           float64     `db:"price" json:"price"`
	Quantity        int         `db:"quantity" json:"quantity"`
	TotalPrice      *float64    `db:"total_price" json:"total_price,omitempty"`
	Rate            *float64    `db:"rate" json:"rate,omitempty"`
	Status          string      `db:"status" json:"status"`
	BuyerConfirmed  bool        `db:"buyer_confirmed" json:"buyer_confirmed"`
	SellerConfirmed bool        `db:"seller_confirmed" json:"seller_confirmed"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// ListingRef возвращает типизированную ссылку на объявление сделки.
func (t *Trade) ListingRef() ListingRef {
	return ListingRef{Kind: t.ListingKind, ID: t.ListingID}
}

// EffectivePrice возвращает полную стоимость сделки: total_price,
// если он задан, иначе цену за единицу.
func (t *Trade) EffectivePrice() float64 {
	if t.TotalPrice != nil {
		return *t.TotalPrice
	}
	return t.Price
}

// IsTerminal сообщает, завершена ли сделка.
func (t *Trade) IsTerminal() bool {
	return t.Status == TradeStatusCompleted || t.Status == TradeStatusCancelled
}
