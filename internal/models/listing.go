package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListingKind различает предметные и валютные объявления.
// Сделки и диалоги ссылаются на объявление парой (kind, id), потому что
// объявления двух видов живут в разных таблицах.
type ListingKind string

const (
	ListingKindItem     ListingKind = "item"
	ListingKindCurrency ListingKind = "currency"
)

// Valid сообщает, известен ли вид объявления.
func (k ListingKind) Valid() bool {
	return k == ListingKindItem || k == ListingKindCurrency
}

// ListingRef — типизированная ссылка на объявление любого вида.
type ListingRef struct {
	Kind ListingKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
}

// NewListingRef создаёт ссылку, проверяя вид объявления.
func NewListingRef(kind string, id uuid.UUID) (ListingRef, error) {
	ref := ListingRef{Kind: ListingKind(kind), ID: id}
	if !ref.Kind.Valid() {
		return ListingRef{}, fmt.Errorf("models: неизвестный вид объявления %q", kind)
	}
	return ref, nil
}

// String возвращает короткое представление для логов и аудита.
func (r ListingRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// Listing описывает объявление о продаже: игровой предмет или игровую валюту.
// Оба вида разделяют жизненный цикл статусов; валютные объявления дополнительно
// несут курс обмена и объём.
type Listing struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Kind        ListingKind `db:"-" json:"kind"`
	SellerID    uuid.UUID   `db:"seller_id" json:"seller_id"`
	Title       string      `db:"title" json:"title"`
	Description *string     `db:"description" json:"description,omitempty"`
	Price       float64     `db:"price" json:"price"`
	Stock       int         `db:"stock" json:"stock"`
	Rate        *float64    `db:"rate" json:"rate,omitempty"`
	Amount      *float64    `db:"amount" json:"amount,omitempty"`
	Status      string      `db:"status" json:"status"`
	IsFeatured  bool        `db:"is_featured" json:"is_featured"`
	ViewCount   int         `db:"view_count" json:"view_count"`
	VoteCount   int         `db:"vote_count" json:"vote_count"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Ref возвращает типизированную ссылку на объявление.
func (l *Listing) Ref() ListingRef {
	return ListingRef{Kind: l.Kind, ID: l.ID}
}

// IsTerminal сообщает, находится ли объявление в терминальном статусе.
func (l *Listing) IsTerminal() bool {
	_, ok := TerminalListingStatuses[l.Status]
	return ok
}
